package kinematics

import (
	"fmt"
	"math"

	curve "honnef.co/go/curve"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/model"
)

// Trajectory is the immutable result of sweeping a mechanism's crank
// through a full revolution: one frame of joint positions per sampled
// angle, in joint order. It is keyed by (mechanism id, mechanism
// version, step count) and must be recomputed whenever the mechanism's
// version moves.
type Trajectory struct {
	MechanismID      string          `json:"mechanism_id,omitempty"`
	MechanismVersion int             `json:"mechanism_version,omitempty"`
	Steps            int             `json:"steps"`
	Thetas           []float64       `json:"thetas"`
	Frames           [][]curve.Point `json:"frames"`
	// Converged flags each frame's solve individually; FailCount is the
	// aggregate. Both are exposed so consumers can warn per frame or in
	// summary.
	Converged []bool `json:"converged,omitempty"`
	FailCount int    `json:"fail_count"`
}

// Engine sweeps a validated mechanism across a full crank revolution,
// invoking the pose solver once per angle.
//
// Frames are produced strictly in increasing angle order: each solve is
// warm-started from the previous frame's solution, which is what keeps
// the solver on the same assembly branch of the constraint manifold.
// Running frames out of order or in parallel would let the optimizer
// jump branches between neighbouring angles.
type Engine struct {
	Opts SolverOptions
}

// Run computes the trajectory of m over steps samples of the range
// [theta0, theta0+2pi], where theta0 is the crank's initial polar
// angle. The first and last samples coincide after a full turn; spacing
// is 2pi/(steps-1).
//
// Solver non-convergence on individual frames is soft: the best-effort
// positions are recorded, the frame is flagged, and the sweep
// continues. The mechanism's rest configuration is never mutated beyond
// the one-time rest-length derivation.
func (e Engine) Run(m *model.Mechanism, steps int) (*Trajectory, error) {
	if steps < 2 {
		return nil, fmt.Errorf("%w: step count %d, need at least 2", apperr.ErrUsage, steps)
	}
	if len(m.Joints) < 4 {
		return nil, fmt.Errorf("%w: mechanism has %d joints, need at least 4", apperr.ErrUsage, len(m.Joints))
	}
	mdl, err := NewModel(m)
	if err != nil {
		return nil, err
	}
	if mdl.driven < 0 {
		return nil, fmt.Errorf("%w: mechanism has no driven joint", apperr.ErrUsage)
	}

	theta0 := mdl.StartAngle()
	traj := &Trajectory{
		MechanismID:      m.ID,
		MechanismVersion: m.Version,
		Steps:            steps,
		Thetas:           make([]float64, steps),
		Frames:           make([][]curve.Point, steps),
		Converged:        make([]bool, steps),
	}

	// Working buffer, warm-started from the rest configuration and then
	// carried from frame to frame.
	frame := m.Positions()

	for i := 0; i < steps; i++ {
		theta := theta0 + 2*math.Pi*float64(i)/float64(steps-1)
		traj.Thetas[i] = theta

		mdl.PlaceDriven(frame, theta)
		sol := mdl.SolvePose(frame, e.Opts)

		snapshot := make([]curve.Point, len(frame))
		copy(snapshot, frame)
		traj.Frames[i] = snapshot
		traj.Converged[i] = sol.Converged
		if !sol.Converged {
			traj.FailCount++
		}
	}
	return traj, nil
}
