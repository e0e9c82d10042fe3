package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/gait"
	"github.com/starford/raido/internal/kinematics"
	"github.com/starford/raido/internal/model"
	"github.com/starford/raido/internal/store"
)

// MechanismRequest is the request body for creating or updating a
// mechanism. Topology rules are enforced by the service; this only
// rejects obviously malformed payloads early.
type MechanismRequest struct {
	Name   string        `json:"name"`
	Joints []model.Joint `json:"joints"`
	Links  []model.Link  `json:"links"`
}

// Validate implements basic schema validation.
func (r MechanismRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Joints, validation.Required, validation.Length(4, 0)),
		validation.Field(&r.Links, validation.Required),
	)
}

// Mechanism converts the request into a domain value with the given
// identity ("" for create).
func (r MechanismRequest) Mechanism(id string) *model.Mechanism {
	return &model.Mechanism{
		ID:     id,
		Name:   r.Name,
		Joints: r.Joints,
		Links:  r.Links,
	}
}

// MechanismResponse is the full mechanism payload.
type MechanismResponse struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Version int           `json:"version"`
	Joints  []model.Joint `json:"joints"`
	Links   []model.Link  `json:"links"`
}

func mechanismResponse(m *model.Mechanism) MechanismResponse {
	return MechanismResponse{
		ID:      m.ID,
		Name:    m.Name,
		Version: m.Version,
		Joints:  m.Joints,
		Links:   m.Links,
	}
}

// MechanismListResponse wraps the listing.
type MechanismListResponse struct {
	Mechanisms []store.MechanismInfo `json:"mechanisms"`
	Total      int                   `json:"total"`
}

// TrajectoryResponse is the solved-trajectory payload. Frames are
// (x, y) pairs per joint, in joint order.
type TrajectoryResponse struct {
	MechanismID      string         `json:"mechanism_id"`
	MechanismVersion int            `json:"mechanism_version"`
	Steps            int            `json:"steps"`
	Thetas           []float64      `json:"thetas"`
	Frames           [][][2]float64 `json:"frames"`
	Converged        []bool         `json:"converged,omitempty"`
	FailCount        int            `json:"fail_count"`
	Cached           bool           `json:"cached"`
}

func trajectoryResponse(t *kinematics.Trajectory, cached bool) TrajectoryResponse {
	frames := make([][][2]float64, len(t.Frames))
	for i, frame := range t.Frames {
		frames[i] = make([][2]float64, len(frame))
		for j, p := range frame {
			frames[i][j] = [2]float64{p.X, p.Y}
		}
	}
	return TrajectoryResponse{
		MechanismID:      t.MechanismID,
		MechanismVersion: t.MechanismVersion,
		Steps:            t.Steps,
		Thetas:           t.Thetas,
		Frames:           frames,
		Converged:        t.Converged,
		FailCount:        t.FailCount,
		Cached:           cached,
	}
}

// GaitResponse wraps the walking-speed estimate.
type GaitResponse = gait.Result
