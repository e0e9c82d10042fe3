package model

import (
	"encoding/json"
	"testing"
)

func TestJointKind_TextRoundTrip(t *testing.T) {
	for _, k := range []JointKind{Fixed, Free, Driven} {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatalf("marshal %v: %v", k, err)
		}
		var back JointKind
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("unmarshal %q: %v", text, err)
		}
		if back != k {
			t.Errorf("round trip %v -> %q -> %v", k, text, back)
		}
	}
}

func TestJointKind_UnmarshalUnknown(t *testing.T) {
	var k JointKind
	if err := k.UnmarshalText([]byte("spinny")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestJoint_JSONUsesKindNames(t *testing.T) {
	data, err := json.Marshal(Joint{X: 1, Y: 2, Kind: Driven, Pivot: &Pivot{Cx: 1, Cy: 1, Radius: 3}})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m["kind"] != "driven" {
		t.Errorf("kind = %v, want driven", m["kind"])
	}
}

func TestMechanism_DrivenAndFreeIndices(t *testing.T) {
	m := &Mechanism{Joints: fourBarJoints()}
	if got := m.DrivenIndex(); got != 2 {
		t.Errorf("DrivenIndex = %d, want 2", got)
	}
	free := m.FreeIndices()
	if len(free) != 1 || free[0] != 3 {
		t.Errorf("FreeIndices = %v, want [3]", free)
	}
}

func TestMechanism_CrankLink(t *testing.T) {
	m := &Mechanism{Joints: fourBarJoints(), Links: fourBarLinks()}
	if got := m.CrankLink(); got != 0 {
		t.Errorf("CrankLink = %d, want 0", got)
	}

	m.Links[0].Protected = false
	if got := m.CrankLink(); got != -1 {
		t.Errorf("CrankLink = %d, want -1 without protected link", got)
	}
}

func TestMechanism_Equal(t *testing.T) {
	a := &Mechanism{ID: "a", Version: 1, Name: "m", Joints: fourBarJoints(), Links: fourBarLinks()}
	b := a.Clone()
	b.ID = "b"
	b.Version = 7
	if !a.Equal(b) {
		t.Fatal("identity and version must not affect Equal")
	}

	b.Joints[3].X += 0.001
	if a.Equal(b) {
		t.Fatal("joint position change must break Equal")
	}

	c := a.Clone()
	c.Links[1].Length = 9
	if a.Equal(c) {
		t.Fatal("link length change must break Equal")
	}

	d := a.Clone()
	d.Joints[2].Pivot.Radius = 1
	if a.Equal(d) {
		t.Fatal("pivot change must break Equal")
	}
}

func TestMechanism_CloneIsDeep(t *testing.T) {
	a := &Mechanism{Name: "m", Joints: fourBarJoints(), Links: fourBarLinks()}
	b := a.Clone()
	b.Joints[2].Pivot.Radius = 99
	if a.Joints[2].Pivot.Radius == 99 {
		t.Fatal("clone shares pivot pointer")
	}
}

func TestLink_Other(t *testing.T) {
	l := Link{A: 2, B: 5}
	if l.Other(2) != 5 || l.Other(5) != 2 {
		t.Errorf("Other mismatch")
	}
	if l.Other(1) != -1 {
		t.Errorf("Other(1) = %d, want -1", l.Other(1))
	}
}
