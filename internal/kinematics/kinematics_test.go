package kinematics_test

import (
	"errors"
	"math"
	"testing"

	curve "honnef.co/go/curve"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/kinematics"
	"github.com/starford/raido/internal/model"
	"github.com/starford/raido/internal/testutil"
)

// circleIntersectUpper returns the intersection of the circles
// (c1, r1) and (c2, r2) with the larger y coordinate. The four-bar
// fixture is built so this point is the free joint's exact pose.
func circleIntersectUpper(t *testing.T, c1 curve.Point, r1 float64, c2 curve.Point, r2 float64) curve.Point {
	t.Helper()
	d := c1.Distance(c2)
	if d > r1+r2 || d < math.Abs(r1-r2) {
		t.Fatalf("circles do not intersect: d=%g r1=%g r2=%g", d, r1, r2)
	}
	a := (d*d + r1*r1 - r2*r2) / (2 * d)
	h := math.Sqrt(r1*r1 - a*a)
	ex := (c2.X - c1.X) / d
	ey := (c2.Y - c1.Y) / d
	p1 := curve.Pt(c1.X+a*ex-h*ey, c1.Y+a*ey+h*ex)
	p2 := curve.Pt(c1.X+a*ex+h*ey, c1.Y+a*ey-h*ex)
	if p1.Y >= p2.Y {
		return p1
	}
	return p2
}

func TestEngineRun_FourBarMatchesClosedForm(t *testing.T) {
	m := testutil.FourBar()
	engine := kinematics.Engine{}

	// 361 steps puts samples exactly one degree apart, so frames 0,
	// 90, 180 and 270 land on round crank angles.
	traj, err := engine.Run(m, 361)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if traj.FailCount != 0 {
		t.Fatalf("FailCount = %d, want 0", traj.FailCount)
	}
	if len(traj.Frames) != 361 || len(traj.Thetas) != 361 {
		t.Fatalf("got %d frames, %d thetas", len(traj.Frames), len(traj.Thetas))
	}

	ground := curve.Pt(2, 0)
	const coupler, rocker = 2.658, 2.0
	for _, i := range []int{0, 90, 180, 270, 360} {
		frame := traj.Frames[i]
		crankTip := frame[2]

		// The driven joint must lie exactly on its pivot circle.
		if r := crankTip.Distance(curve.Pt(0, 0)); math.Abs(r-0.25) > 1e-12 {
			t.Errorf("frame %d: crank radius = %g, want 0.25", i, r)
		}

		want := circleIntersectUpper(t, crankTip, coupler, ground, rocker)
		got := frame[3]
		if got.Distance(want) > 1e-6 {
			t.Errorf("frame %d: free joint = (%g, %g), want (%g, %g)",
				i, got.X, got.Y, want.X, want.Y)
		}
	}
}

func TestEngineRun_WarmStartContinuity(t *testing.T) {
	m := testutil.FourBar()
	traj, err := kinematics.Engine{}.Run(m, 361)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One degree of crank motion moves the free joint by a bounded
	// amount; a branch jump would show up as a large jump between
	// neighbouring frames.
	for i := 1; i < len(traj.Frames); i++ {
		d := traj.Frames[i][3].Distance(traj.Frames[i-1][3])
		if d > 0.2 {
			t.Fatalf("discontinuity at frame %d: free joint moved %g", i, d)
		}
	}

	// A full revolution closes the loop.
	first, last := traj.Frames[0], traj.Frames[len(traj.Frames)-1]
	for j := range first {
		if first[j].Distance(last[j]) > 1e-6 {
			t.Errorf("joint %d: loop does not close, gap %g", j, first[j].Distance(last[j]))
		}
	}
}

func TestEngineRun_StartsAtInitialCrankAngle(t *testing.T) {
	m := testutil.StrandbeestLeg()
	traj, err := kinematics.Engine{}.Run(m, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	j := m.Joints[2]
	want := j.Pos().Sub(j.Pivot.Center()).Angle()
	if math.Abs(traj.Thetas[0]-want) > 1e-12 {
		t.Errorf("theta[0] = %g, want %g", traj.Thetas[0], want)
	}
	if math.Abs(traj.Thetas[9]-(want+2*math.Pi)) > 1e-12 {
		t.Errorf("theta[9] = %g, want %g", traj.Thetas[9], want+2*math.Pi)
	}
}

func TestEngineRun_StrandbeestLegConverges(t *testing.T) {
	m := testutil.StrandbeestLeg()
	traj, err := kinematics.Engine{}.Run(m, 361)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if traj.FailCount != 0 {
		t.Fatalf("FailCount = %d, want 0", traj.FailCount)
	}

	// The foot joint must trace a closed loop below the frame.
	foot := 6
	first := traj.Frames[0][foot]
	last := traj.Frames[len(traj.Frames)-1][foot]
	if first.Distance(last) > 1e-6 {
		t.Errorf("foot loop does not close, gap %g", first.Distance(last))
	}
	for i, frame := range traj.Frames {
		if frame[foot].Y > 0 {
			t.Fatalf("frame %d: foot above the frame at y=%g", i, frame[foot].Y)
		}
	}
}

func TestEngineRun_UsageErrors(t *testing.T) {
	m := testutil.FourBar()

	if _, err := (kinematics.Engine{}).Run(m, 1); !errors.Is(err, apperr.ErrUsage) {
		t.Errorf("steps=1: err = %v, want ErrUsage", err)
	}

	small := &model.Mechanism{
		Joints: []model.Joint{{Kind: model.Fixed}, {Kind: model.Fixed}, {Kind: model.Free}},
	}
	if _, err := (kinematics.Engine{}).Run(small, 10); !errors.Is(err, apperr.ErrUsage) {
		t.Errorf("3 joints: err = %v, want ErrUsage", err)
	}

	noDriven := testutil.FourBar()
	noDriven.Joints[2].Kind = model.Free
	noDriven.Joints[2].Pivot = nil
	if _, err := (kinematics.Engine{}).Run(noDriven, 10); !errors.Is(err, apperr.ErrUsage) {
		t.Errorf("no driven joint: err = %v, want ErrUsage", err)
	}
}

func TestEngineRun_SoftFailureKeepsSweeping(t *testing.T) {
	// A coupler far longer than the linkage can ever stretch makes
	// every frame unsolvable. The sweep must still finish, flag each
	// frame, and report the aggregate.
	m := testutil.FourBar()
	m.Links[1].Length = 10

	traj, err := kinematics.Engine{}.Run(m, 20)
	if err != nil {
		t.Fatalf("unexpected hard error: %v", err)
	}
	if traj.FailCount != 20 {
		t.Errorf("FailCount = %d, want 20", traj.FailCount)
	}
	for i, ok := range traj.Converged {
		if ok {
			t.Errorf("frame %d flagged converged", i)
		}
	}
	if len(traj.Frames) != 20 {
		t.Errorf("got %d frames, want best-effort frames for all steps", len(traj.Frames))
	}
}

func TestDeriveLengths(t *testing.T) {
	m := testutil.FourBar()
	if err := kinematics.DeriveLengths(m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The crank link carried no explicit length; it freezes to the
	// rest distance between its endpoints.
	if got := m.Links[0].Length; math.Abs(got-0.25) > 1e-12 {
		t.Errorf("derived crank length = %g, want 0.25", got)
	}
	// Explicit lengths are kept as-is.
	if m.Links[1].Length != 2.658 || m.Links[2].Length != 2 {
		t.Errorf("explicit lengths changed: %v", m.Links)
	}
}

func TestDeriveLengths_DegenerateLink(t *testing.T) {
	m := testutil.FourBar()
	// Coincident endpoints with no explicit length derive to zero.
	m.Joints[3].X = m.Joints[1].X
	m.Joints[3].Y = m.Joints[1].Y
	m.Links[2].Length = 0
	if err := kinematics.DeriveLengths(m); err == nil {
		t.Fatal("expected error for zero-length link")
	}

	m = testutil.FourBar()
	m.Links[1].Length = -1
	if err := kinematics.DeriveLengths(m); err == nil {
		t.Fatal("expected error for negative length")
	}
}

func TestNewModel_DerivesPivotRadius(t *testing.T) {
	m := testutil.StrandbeestLeg()
	if m.Joints[2].Pivot.Radius != 0 {
		t.Fatal("fixture should leave the crank radius underived")
	}
	if _, err := kinematics.NewModel(m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := math.Hypot(49.73-38, -1.55-7.81)
	if got := m.Joints[2].Pivot.Radius; math.Abs(got-want) > 1e-12 {
		t.Errorf("derived radius = %g, want %g", got, want)
	}
}

func TestSolvePose_RespectsWarmStartBranch(t *testing.T) {
	m := testutil.FourBar()
	mdl, err := kinematics.NewModel(m)
	if err != nil {
		t.Fatal(err)
	}

	// Mirror the initial guess below the x axis; the solver should
	// settle on the lower intersection branch instead.
	frame := m.Positions()
	frame[3] = curve.Pt(frame[3].X, -frame[3].Y)
	sol := mdl.SolvePose(frame, kinematics.SolverOptions{})
	if !sol.Converged {
		t.Fatalf("solve did not converge: residual %g", sol.Residual)
	}
	if frame[3].Y >= 0 {
		t.Errorf("free joint y = %g, want negative (lower branch)", frame[3].Y)
	}
}
