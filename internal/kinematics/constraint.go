// Package kinematics positions a mechanism's joints across a full
// revolution of its driven crank: the constraint model freezes link rest
// lengths, the pose solver places the free joints per angle, and the
// trajectory engine sweeps the whole rotation.
package kinematics

import (
	"fmt"
	"math"

	curve "honnef.co/go/curve"

	"github.com/starford/raido/internal/model"
)

// Model is the frozen constraint view of a mechanism: derived link rest
// lengths, the derived crank radius, and the partition of joints into
// analytically placed (fixed, driven) versus numerically solved (free).
//
// Construction mutates the mechanism once (filling in missing lengths
// and the pivot radius); everything afterwards works on per-frame
// position buffers and leaves the rest configuration untouched.
type Model struct {
	mech   *model.Mechanism
	free   []int // joint indices forming the unknown vector, in order
	driven int   // -1 when absent
}

// NewModel validates geometric preconditions and freezes the constraint
// data. Topology validation is the caller's responsibility and must
// already have passed.
func NewModel(m *model.Mechanism) (*Model, error) {
	if err := DeriveLengths(m); err != nil {
		return nil, err
	}
	driven := m.DrivenIndex()
	if driven >= 0 {
		j := &m.Joints[driven]
		if j.Pivot == nil {
			return nil, fmt.Errorf("kinematics: driven joint %d has no pivot", driven)
		}
		if j.Pivot.Radius == 0 {
			j.Pivot.Radius = j.Pos().Distance(j.Pivot.Center())
		}
		if j.Pivot.Radius <= 0 {
			return nil, fmt.Errorf("kinematics: driven joint %d has non-positive crank radius", driven)
		}
	}
	return &Model{
		mech:   m,
		free:   m.FreeIndices(),
		driven: driven,
	}, nil
}

// DeriveLengths freezes the rest length of every link that does not
// carry one yet, as the distance between its endpoints' initial
// positions. Explicitly overridden lengths are kept as-is.
func DeriveLengths(m *model.Mechanism) error {
	for i := range m.Links {
		l := &m.Links[i]
		if l.A < 0 || l.A >= len(m.Joints) || l.B < 0 || l.B >= len(m.Joints) {
			return fmt.Errorf("kinematics: link %d references joint out of range", i)
		}
		if l.Length == 0 {
			l.Length = m.Joints[l.A].Pos().Distance(m.Joints[l.B].Pos())
		}
		if l.Length <= 0 {
			return fmt.Errorf("kinematics: link %d has non-positive rest length %g", i, l.Length)
		}
	}
	return nil
}

// FreeCount returns the number of numerically solved joints.
func (mdl *Model) FreeCount() int {
	return len(mdl.free)
}

// StartAngle returns the polar angle of the driven joint's initial
// position about its pivot center.
func (mdl *Model) StartAngle() float64 {
	j := mdl.mech.Joints[mdl.driven]
	return j.Pos().Sub(j.Pivot.Center()).Angle()
}

// PlaceDriven sets the driven joint's entry in the position buffer to
// its analytic location at crank angle theta.
func (mdl *Model) PlaceDriven(frame []curve.Point, theta float64) {
	p := mdl.mech.Joints[mdl.driven].Pivot
	frame[mdl.driven] = curve.Pt(
		p.Cx+p.Radius*math.Cos(theta),
		p.Cy+p.Radius*math.Sin(theta),
	)
}

// residuals writes one entry per link into out: the current length of
// the link under the candidate free coordinates x minus its rest
// length. Fixed and driven endpoints are read from frame; free
// endpoints from x, laid out as (x0, y0, x1, y1, ...) in free-index
// order.
func (mdl *Model) residuals(frame []curve.Point, x, out []float64) {
	for i, ji := range mdl.free {
		frame[ji] = curve.Pt(x[2*i], x[2*i+1])
	}
	for i, l := range mdl.mech.Links {
		out[i] = frame[l.A].Distance(frame[l.B]) - l.Length
	}
}
