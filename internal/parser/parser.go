// Package parser converts YAML design files into mechanisms.
//
// A design file carries a name, an ordered joint list, and an ordered
// link list referencing joints by index:
//
//	name: Four-bar
//	joints:
//	  - {x: 0, y: 0, kind: fixed}
//	  - {x: 0.25, y: 0, kind: driven, pivot: {cx: 0, cy: 0}}
//	  - {x: 2, y: 2, kind: free}
//	  - {x: 2, y: 0, kind: fixed}
//	links:
//	  - {a: 0, b: 1, protected: true}
//	  - {a: 1, b: 2}
//	  - {a: 3, b: 2}
//
// The crank radius may be omitted: it is derived from the driven
// joint's position and its pivot center. Link lengths may be omitted
// and are derived from the initial configuration when the mechanism is
// first solved.
package parser

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/model"
)

type designFile struct {
	Name   string        `yaml:"name"`
	Joints []designJoint `yaml:"joints"`
	Links  []designLink  `yaml:"links"`
}

type designJoint struct {
	X     float64      `yaml:"x"`
	Y     float64      `yaml:"y"`
	Kind  string       `yaml:"kind"`
	Pivot *designPivot `yaml:"pivot"`
}

type designPivot struct {
	Cx     float64 `yaml:"cx"`
	Cy     float64 `yaml:"cy"`
	Radius float64 `yaml:"radius"`
}

type designLink struct {
	A         int     `yaml:"a"`
	B         int     `yaml:"b"`
	Length    float64 `yaml:"length"`
	Protected bool    `yaml:"protected"`
}

// Parse builds a mechanism from raw design-file bytes. The result has
// no identity or version; those are assigned by the store. Topology is
// not validated here; callers decide whether an invalid design is
// fatal.
func Parse(data []byte) (*model.Mechanism, error) {
	var df designFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("parser: invalid design file: %w", err)
	}
	if df.Name == "" {
		return nil, fmt.Errorf("parser: design file has no name")
	}

	m := &model.Mechanism{
		Name:   df.Name,
		Joints: make([]model.Joint, len(df.Joints)),
		Links:  make([]model.Link, len(df.Links)),
	}

	for i, dj := range df.Joints {
		kind, err := model.ParseJointKind(dj.Kind)
		if err != nil {
			return nil, fmt.Errorf("parser: joint %d: %w", i, err)
		}
		j := model.Joint{X: dj.X, Y: dj.Y, Kind: kind}
		switch {
		case kind == model.Driven && dj.Pivot == nil:
			return nil, fmt.Errorf("parser: joint %d is driven but has no pivot", i)
		case kind != model.Driven && dj.Pivot != nil:
			return nil, fmt.Errorf("parser: joint %d is %s and must not carry a pivot", i, kind)
		case kind == model.Driven:
			p := model.Pivot{Cx: dj.Pivot.Cx, Cy: dj.Pivot.Cy, Radius: dj.Pivot.Radius}
			if p.Radius == 0 {
				p.Radius = j.Pos().Distance(p.Center())
			}
			if p.Radius <= 0 {
				return nil, fmt.Errorf("parser: joint %d has a degenerate crank radius", i)
			}
			j.Pivot = &p
		}
		m.Joints[i] = j
	}

	for i, dl := range df.Links {
		if dl.A < 0 || dl.A >= len(m.Joints) || dl.B < 0 || dl.B >= len(m.Joints) {
			return nil, fmt.Errorf("parser: link %d references joint out of range", i)
		}
		m.Links[i] = model.Link{A: dl.A, B: dl.B, Length: dl.Length, Protected: dl.Protected}
	}

	return m, nil
}
