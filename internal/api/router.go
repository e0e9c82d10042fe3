package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/simservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth
// group.
func NewRouter(svc *simservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Mechanism CRUD.
	r.Get("/mechanisms", h.ListMechanisms)
	r.Post("/mechanisms", h.CreateMechanism)
	r.Get("/mechanisms/{id}", h.GetMechanism)
	r.Put("/mechanisms/{id}", h.UpdateMechanism)
	r.Delete("/mechanisms/{id}", h.DeleteMechanism)

	// Kinematics.
	r.Post("/mechanisms/{id}/simulate", h.Simulate)
	r.Get("/mechanisms/{id}/trajectory", h.GetTrajectory)
	r.Get("/mechanisms/{id}/trajectory.csv", h.ExportTrajectoryCSV)

	// Gait analysis.
	r.Get("/mechanisms/{id}/gait", h.Gait)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
