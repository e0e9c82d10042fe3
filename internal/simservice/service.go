// Package simservice coordinates validation, solving, caching, and
// analysis on top of the store. It is the layer the API, MCP server,
// and importer talk to.
package simservice

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/export"
	"github.com/starford/raido/internal/gait"
	"github.com/starford/raido/internal/kinematics"
	"github.com/starford/raido/internal/model"
	"github.com/starford/raido/internal/store"
)

// EventFunc receives notifications after state changes so transports
// (SSE) stay decoupled from orchestration. kind is one of
// "mechanism.created", "mechanism.updated", "mechanism.deleted",
// "trajectory.computed".
type EventFunc func(kind, mechanismID string)

// Options tune the service.
type Options struct {
	// DefaultSteps is used when a caller passes steps <= 0.
	DefaultSteps int
	// Solver bounds forwarded to the trajectory engine.
	Solver kinematics.SolverOptions
	// Events, if non-nil, is called after state changes.
	Events EventFunc
}

// Service owns the solve pipeline: validate, check the trajectory
// cache, run the engine, cache clean results.
type Service struct {
	db     store.Store
	engine kinematics.Engine
	steps  int
	events EventFunc
}

// New creates a simulation service.
func New(db store.Store, opts Options) *Service {
	if opts.DefaultSteps < 2 {
		opts.DefaultSteps = 360
	}
	return &Service{
		db:     db,
		engine: kinematics.Engine{Opts: opts.Solver},
		steps:  opts.DefaultSteps,
		events: opts.Events,
	}
}

func (s *Service) emit(kind, id string) {
	if s.events != nil {
		s.events(kind, id)
	}
}

// SaveMechanism validates and persists m, returning its identity and
// version. Structurally invalid mechanisms are rejected before they
// can ever reach the solver; a mechanism whose driven joint lacks its
// protected crank link is rejected too, since delete paths must never
// drop it.
func (s *Service) SaveMechanism(_ context.Context, m *model.Mechanism) (string, int, error) {
	if err := model.ValidateTopology(m.Joints, m.Links); err != nil {
		return "", 0, err
	}
	if m.CrankLink() < 0 {
		return "", 0, &model.StructuralError{Reason: "the driven joint has no protected crank link"}
	}
	created := m.ID == ""
	id, version, err := s.db.SaveMechanism(m)
	if err != nil {
		return "", 0, err
	}
	if created {
		s.emit("mechanism.created", id)
	} else {
		s.emit("mechanism.updated", id)
	}
	return id, version, nil
}

// GetMechanism loads one mechanism.
func (s *Service) GetMechanism(_ context.Context, id string) (*model.Mechanism, error) {
	return s.db.GetMechanism(id)
}

// ListMechanisms lists stored mechanisms, optionally filtered by name
// substring.
func (s *Service) ListMechanisms(_ context.Context, nameFilter string) ([]store.MechanismInfo, error) {
	return s.db.ListMechanisms(nameFilter)
}

// DeleteMechanism removes a mechanism and its cached trajectory.
func (s *Service) DeleteMechanism(_ context.Context, id string) error {
	if err := s.db.DeleteMechanism(id); err != nil {
		return err
	}
	s.emit("mechanism.deleted", id)
	return nil
}

// Simulate returns the trajectory of the mechanism over steps samples,
// serving from the cache when the stored entry matches the mechanism's
// current version and the requested step count. force skips the cache
// probe. The returned bool reports whether the result came from cache.
//
// A trajectory with solver failures is still returned (best effort,
// per-frame flags set) but is never cached.
func (s *Service) Simulate(_ context.Context, id string, steps int, force bool) (*kinematics.Trajectory, bool, error) {
	if steps <= 0 {
		steps = s.steps
	}
	m, err := s.db.GetMechanism(id)
	if err != nil {
		return nil, false, err
	}
	if err := model.ValidateTopology(m.Joints, m.Links); err != nil {
		return nil, false, err
	}

	if !force {
		if traj, err := s.db.LoadTrajectory(m.ID, m.Version, steps); err == nil {
			return traj, true, nil
		} else if !errors.Is(err, apperr.ErrCacheMiss) {
			return nil, false, err
		}
	}

	traj, err := s.engine.Run(m, steps)
	if err != nil {
		return nil, false, err
	}
	if traj.FailCount == 0 {
		if err := s.db.SaveTrajectory(traj); err != nil {
			return nil, false, err
		}
	}
	s.emit("trajectory.computed", id)
	return traj, false, nil
}

// Gait runs (or loads) the trajectory and derives the walking-speed
// estimate for the given foot joint.
func (s *Service) Gait(ctx context.Context, id string, steps, footIndex int, rpm, tolerance float64) (*gait.Result, error) {
	traj, _, err := s.Simulate(ctx, id, steps, false)
	if err != nil {
		return nil, err
	}
	return gait.Analyze(traj, footIndex, rpm, tolerance)
}

// ExportCSV writes the trajectory in the tabular interchange format.
func (s *Service) ExportCSV(ctx context.Context, id string, steps int, w io.Writer) error {
	traj, _, err := s.Simulate(ctx, id, steps, false)
	if err != nil {
		return err
	}
	if err := export.Write(w, traj.Thetas, traj.Frames); err != nil {
		return fmt.Errorf("simservice: export: %w", err)
	}
	return nil
}
