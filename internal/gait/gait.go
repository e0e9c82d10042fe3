// Package gait derives forward-walking speed from a foot joint's
// trajectory, treating the part of the path near its lowest point as
// the ground-contact (propulsion) phase.
package gait

import (
	"errors"
	"fmt"
	"math"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/kinematics"
)

var (
	// ErrNoGroundContact means no frame fell within the ground-contact
	// tolerance above the foot's lowest point.
	ErrNoGroundContact = errors.New("gait: no ground contact detected")
	// ErrNoForwardMotion means the foot covers no horizontal distance
	// during contact.
	ErrNoForwardMotion = errors.New("gait: no effective forward motion")
	// ErrDegenerateTiming means the derived contact duration is not
	// positive.
	ErrDegenerateTiming = errors.New("gait: degenerate contact timing")
)

// Result is the first-order walking-speed estimate for one leg.
type Result struct {
	// MaxSpeed is the estimated forward speed during ground contact, in
	// coordinate units per second.
	MaxSpeed float64 `json:"max_speed"`
	// StrideLength is the horizontal distance covered while in contact.
	StrideLength float64 `json:"stride_length"`
	// ContactDuration is the elapsed real time of the contact phase, in
	// seconds.
	ContactDuration float64 `json:"contact_duration"`
	// ContactFrames is the number of trajectory frames spanning the
	// stride.
	ContactFrames int `json:"contact_frames"`
}

// Analyze estimates the forward speed of the foot joint at footIndex.
//
// rpm is the crank's rotation speed; tolerance is the vertical distance
// above the foot's lowest point still counted as touching the ground.
// Frames flagged as non-converged are included as-is: the caller is
// expected to have checked the trajectory's FailCount if best-effort
// frames are unacceptable.
func Analyze(traj *kinematics.Trajectory, footIndex int, rpm, tolerance float64) (*Result, error) {
	if rpm <= 0 {
		return nil, fmt.Errorf("%w: rpm must be positive, got %g", apperr.ErrUsage, rpm)
	}
	if traj == nil || len(traj.Frames) == 0 {
		return nil, fmt.Errorf("%w: empty trajectory", apperr.ErrUsage)
	}
	if footIndex < 0 || footIndex >= len(traj.Frames[0]) {
		return nil, fmt.Errorf("%w: foot joint index %d out of range", apperr.ErrUsage, footIndex)
	}

	total := len(traj.Frames)
	xs := make([]float64, total)
	ys := make([]float64, total)
	for i, frame := range traj.Frames {
		xs[i] = frame[footIndex].X
		ys[i] = frame[footIndex].Y
	}

	// Ground-contact set: every frame within tolerance of the lowest
	// point reached by the foot.
	yMin := math.Inf(1)
	for _, y := range ys {
		yMin = math.Min(yMin, y)
	}
	level := yMin + tolerance
	var contact []int
	for i, y := range ys {
		if y <= level {
			contact = append(contact, i)
		}
	}
	if len(contact) == 0 {
		return nil, ErrNoGroundContact
	}

	xMin, xMax := xs[contact[0]], xs[contact[0]]
	for _, i := range contact {
		xMin = math.Min(xMin, xs[i])
		xMax = math.Max(xMax, xs[i])
	}
	stride := xMax - xMin
	if stride <= 0 {
		return nil, ErrNoForwardMotion
	}

	// Frames actually spanning the stride.
	n := 0
	for _, i := range contact {
		if xs[i] >= xMin && xs[i] <= xMax {
			n++
		}
	}

	omega := 2 * math.Pi * rpm / 60
	duration := float64(n) * (2 * math.Pi) / (omega * float64(total))
	if duration <= 0 {
		return nil, ErrDegenerateTiming
	}

	return &Result{
		MaxSpeed:        stride / duration,
		StrideLength:    stride,
		ContactDuration: duration,
		ContactFrames:   n,
	}, nil
}
