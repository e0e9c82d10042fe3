// Package model defines the planar linkage domain types: joints, links,
// and the mechanism that ties them together.
package model

import (
	"fmt"

	curve "honnef.co/go/curve"
)

// JointKind is the closed set of joint behaviours.
type JointKind int

const (
	// Fixed joints are ground attachments; their position never changes.
	Fixed JointKind = iota
	// Free joints are positioned numerically by link-length constraints.
	Free
	// Driven joints are placed analytically on a circular path around
	// their pivot; a mechanism has exactly one.
	Driven
)

// String implements fmt.Stringer.
func (k JointKind) String() string {
	switch k {
	case Fixed:
		return "fixed"
	case Free:
		return "free"
	case Driven:
		return "driven"
	}
	return fmt.Sprintf("JointKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler so kinds serialize as
// "fixed"/"free"/"driven" in JSON payloads.
func (k JointKind) MarshalText() ([]byte, error) {
	switch k {
	case Fixed, Free, Driven:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("model: unknown joint kind %d", int(k))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *JointKind) UnmarshalText(text []byte) error {
	parsed, err := ParseJointKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseJointKind converts the wire representation of a joint kind.
func ParseJointKind(s string) (JointKind, error) {
	switch s {
	case "fixed":
		return Fixed, nil
	case "free":
		return Free, nil
	case "driven":
		return Driven, nil
	}
	return 0, fmt.Errorf("model: unknown joint kind %q", s)
}

// Pivot is the circular-path payload carried only by Driven joints.
// Radius is derived once from the joint's initial position and held
// fixed for the life of the mechanism.
type Pivot struct {
	Cx     float64 `json:"cx"`
	Cy     float64 `json:"cy"`
	Radius float64 `json:"radius"`
}

// Center returns the pivot center as a point.
func (p Pivot) Center() curve.Point {
	return curve.Pt(p.Cx, p.Cy)
}

// Joint is a single point of the linkage. Pivot is set if and only if
// Kind is Driven.
type Joint struct {
	X     float64   `json:"x"`
	Y     float64   `json:"y"`
	Kind  JointKind `json:"kind"`
	Pivot *Pivot    `json:"pivot,omitempty"`
}

// Pos returns the joint's rest position.
func (j Joint) Pos() curve.Point {
	return curve.Pt(j.X, j.Y)
}

// Link is a rigid bar between two joints, referenced by index into the
// mechanism's joint list. The endpoint pair is unordered. Length is the
// frozen rest length; Protected marks the mandatory pivot-to-driven
// crank link that must never be removed by configuration tools.
type Link struct {
	A         int     `json:"a"`
	B         int     `json:"b"`
	Length    float64 `json:"length,omitempty"`
	Protected bool    `json:"protected,omitempty"`
}

// Other returns the endpoint opposite to joint index i, or -1 when i is
// not an endpoint of the link.
func (l Link) Other(i int) int {
	switch i {
	case l.A:
		return l.B
	case l.B:
		return l.A
	}
	return -1
}

// Mechanism is an ordered joint list plus an ordered link list, with
// identity and version bookkeeping kept separate from the geometric
// definition. ID is assigned on first save; Version starts at 1 and is
// bumped by the store on every real change.
type Mechanism struct {
	ID      string  `json:"id,omitempty"`
	Name    string  `json:"name"`
	Version int     `json:"version,omitempty"`
	Joints  []Joint `json:"joints"`
	Links   []Link  `json:"links"`
}

// DrivenIndex returns the index of the driven joint, or -1 when the
// mechanism has none.
func (m *Mechanism) DrivenIndex() int {
	for i, j := range m.Joints {
		if j.Kind == Driven {
			return i
		}
	}
	return -1
}

// FreeIndices returns the joint indices solved numerically, in order.
func (m *Mechanism) FreeIndices() []int {
	var out []int
	for i, j := range m.Joints {
		if j.Kind == Free {
			out = append(out, i)
		}
	}
	return out
}

// CrankLink returns the index of the protected link attached to the
// driven joint, or -1 when no such link exists.
func (m *Mechanism) CrankLink() int {
	driven := m.DrivenIndex()
	if driven < 0 {
		return -1
	}
	for i, l := range m.Links {
		if l.Protected && (l.A == driven || l.B == driven) {
			return i
		}
	}
	return -1
}

// Positions returns a fresh working buffer of all joint rest positions.
// Solvers mutate the buffer, never the mechanism itself.
func (m *Mechanism) Positions() []curve.Point {
	out := make([]curve.Point, len(m.Joints))
	for i, j := range m.Joints {
		out[i] = j.Pos()
	}
	return out
}

// Clone returns a deep copy of the mechanism.
func (m *Mechanism) Clone() *Mechanism {
	out := &Mechanism{
		ID:      m.ID,
		Name:    m.Name,
		Version: m.Version,
		Joints:  make([]Joint, len(m.Joints)),
		Links:   make([]Link, len(m.Links)),
	}
	copy(out.Joints, m.Joints)
	copy(out.Links, m.Links)
	for i, j := range m.Joints {
		if j.Pivot != nil {
			p := *j.Pivot
			out.Joints[i].Pivot = &p
		}
	}
	return out
}

// Equal reports value equality over the canonical (name, joints, links)
// tuple. Identity and version are deliberately excluded; the store uses
// Equal to detect no-op saves.
func (m *Mechanism) Equal(o *Mechanism) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Name != o.Name || len(m.Joints) != len(o.Joints) || len(m.Links) != len(o.Links) {
		return false
	}
	for i := range m.Joints {
		if !jointEqual(m.Joints[i], o.Joints[i]) {
			return false
		}
	}
	for i := range m.Links {
		if m.Links[i] != o.Links[i] {
			return false
		}
	}
	return true
}

func jointEqual(a, b Joint) bool {
	if a.X != b.X || a.Y != b.Y || a.Kind != b.Kind {
		return false
	}
	if (a.Pivot == nil) != (b.Pivot == nil) {
		return false
	}
	if a.Pivot != nil && *a.Pivot != *b.Pivot {
		return false
	}
	return true
}
