package simservice_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/model"
	"github.com/starford/raido/internal/simservice"
	"github.com/starford/raido/internal/testutil"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *eventRecorder) record(kind, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind)
}

func (r *eventRecorder) has(kind string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == kind {
			return true
		}
	}
	return false
}

func newService(t *testing.T) (*simservice.Service, *eventRecorder) {
	t.Helper()
	rec := &eventRecorder{}
	svc := simservice.New(testutil.TestDB(t), simservice.Options{
		DefaultSteps: 36,
		Events:       rec.record,
	})
	return svc, rec
}

func TestSaveMechanism_RejectsInvalidTopology(t *testing.T) {
	svc, _ := newService(t)

	m := testutil.FourBar()
	m.Joints[0].Kind = model.Free
	_, _, err := svc.SaveMechanism(context.Background(), m)
	var se *model.StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StructuralError", err)
	}

	// Nothing was persisted.
	items, err := svc.ListMechanisms(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("invalid mechanism was persisted: %v", items)
	}
}

func TestSaveMechanism_RequiresProtectedCrank(t *testing.T) {
	svc, _ := newService(t)

	m := testutil.FourBar()
	m.Links[0].Protected = false
	_, _, err := svc.SaveMechanism(context.Background(), m)
	var se *model.StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StructuralError", err)
	}
	if !strings.Contains(se.Reason, "crank") {
		t.Errorf("reason = %q, want mention of the crank link", se.Reason)
	}
}

func TestSaveMechanism_EmitsEvents(t *testing.T) {
	svc, rec := newService(t)

	m := testutil.FourBar()
	id, _, err := svc.SaveMechanism(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.has("mechanism.created") {
		t.Error("missing mechanism.created event")
	}

	m2 := testutil.FourBar()
	m2.ID = id
	m2.Joints[3].X += 0.1
	if _, _, err := svc.SaveMechanism(context.Background(), m2); err != nil {
		t.Fatal(err)
	}
	if !rec.has("mechanism.updated") {
		t.Error("missing mechanism.updated event")
	}

	if err := svc.DeleteMechanism(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	if !rec.has("mechanism.deleted") {
		t.Error("missing mechanism.deleted event")
	}
}

func TestSimulate_CachesCleanRuns(t *testing.T) {
	svc, rec := newService(t)

	id, _, err := svc.SaveMechanism(context.Background(), testutil.FourBar())
	if err != nil {
		t.Fatal(err)
	}

	traj, cached, err := svc.Simulate(context.Background(), id, 20, false)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if cached {
		t.Error("first run reported as cached")
	}
	if traj.Steps != 20 || traj.FailCount != 0 {
		t.Fatalf("steps=%d failcount=%d", traj.Steps, traj.FailCount)
	}
	if !rec.has("trajectory.computed") {
		t.Error("missing trajectory.computed event")
	}

	_, cached, err = svc.Simulate(context.Background(), id, 20, false)
	if err != nil {
		t.Fatal(err)
	}
	if !cached {
		t.Error("second identical run should hit the cache")
	}

	// Different step count is a different trajectory.
	_, cached, err = svc.Simulate(context.Background(), id, 21, false)
	if err != nil {
		t.Fatal(err)
	}
	if cached {
		t.Error("different step count must not hit the cache")
	}
}

func TestSimulate_ForceBypassesCache(t *testing.T) {
	svc, _ := newService(t)

	id, _, err := svc.SaveMechanism(context.Background(), testutil.FourBar())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Simulate(context.Background(), id, 20, false); err != nil {
		t.Fatal(err)
	}
	_, cached, err := svc.Simulate(context.Background(), id, 20, true)
	if err != nil {
		t.Fatal(err)
	}
	if cached {
		t.Error("force=true must recompute")
	}
}

func TestSimulate_EditInvalidatesCache(t *testing.T) {
	svc, _ := newService(t)

	id, _, err := svc.SaveMechanism(context.Background(), testutil.FourBar())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Simulate(context.Background(), id, 20, false); err != nil {
		t.Fatal(err)
	}

	edited := testutil.FourBar()
	edited.ID = id
	edited.Links[1].Length = 2.7
	if _, _, err := svc.SaveMechanism(context.Background(), edited); err != nil {
		t.Fatal(err)
	}

	_, cached, err := svc.Simulate(context.Background(), id, 20, false)
	if err != nil {
		t.Fatal(err)
	}
	if cached {
		t.Error("stale trajectory served after mechanism edit")
	}
}

func TestSimulate_DefaultSteps(t *testing.T) {
	svc, _ := newService(t)

	id, _, err := svc.SaveMechanism(context.Background(), testutil.FourBar())
	if err != nil {
		t.Fatal(err)
	}
	traj, _, err := svc.Simulate(context.Background(), id, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if traj.Steps != 36 {
		t.Errorf("Steps = %d, want configured default 36", traj.Steps)
	}
}

func TestSimulate_UnknownMechanism(t *testing.T) {
	svc, _ := newService(t)
	if _, _, err := svc.Simulate(context.Background(), "missing", 10, false); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSimulate_FailedRunsAreNotCached(t *testing.T) {
	svc, _ := newService(t)

	// Unreachable coupler length: every frame fails softly.
	m := testutil.FourBar()
	m.Links[1].Length = 10
	id, _, err := svc.SaveMechanism(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}

	traj, cached, err := svc.Simulate(context.Background(), id, 10, false)
	if err != nil {
		t.Fatalf("soft failures must not be hard errors: %v", err)
	}
	if cached || traj.FailCount != 10 {
		t.Fatalf("cached=%v failcount=%d", cached, traj.FailCount)
	}

	// The failed run must be recomputed, never served from cache.
	_, cached, err = svc.Simulate(context.Background(), id, 10, false)
	if err != nil {
		t.Fatal(err)
	}
	if cached {
		t.Error("failed trajectory was cached")
	}
}

func TestGait_EndToEnd(t *testing.T) {
	svc, _ := newService(t)

	id, _, err := svc.SaveMechanism(context.Background(), testutil.StrandbeestLeg())
	if err != nil {
		t.Fatal(err)
	}
	res, err := svc.Gait(context.Background(), id, 120, 6, 60, 2.0)
	if err != nil {
		t.Fatalf("gait: %v", err)
	}
	if res.MaxSpeed <= 0 || res.StrideLength <= 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestExportCSV_EndToEnd(t *testing.T) {
	svc, _ := newService(t)

	id, _, err := svc.SaveMechanism(context.Background(), testutil.FourBar())
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	if err := svc.ExportCSV(context.Background(), id, 5, &sb); err != nil {
		t.Fatalf("export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want header + 5 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Theta (rad),Joint_1_x,Joint_1_y") {
		t.Errorf("header = %q", lines[0])
	}
}
