package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/export"
	"github.com/starford/raido/internal/gait"
	"github.com/starford/raido/internal/model"
	"github.com/starford/raido/internal/simservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *simservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *simservice.Service) *Handler {
	return &Handler{svc: svc}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error, context string) {
	var structural *model.StructuralError
	switch {
	case errors.As(err, &structural):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(structural.Reason))
	case errors.Is(err, apperr.ErrUsage):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, gait.ErrNoGroundContact),
		errors.Is(err, gait.ErrNoForwardMotion),
		errors.Is(err, gait.ErrDegenerateTiming):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		slog.Error(context, slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListMechanisms handles GET /mechanisms.
func (h *Handler) ListMechanisms(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListMechanisms(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, err, "list mechanisms failed")
		return
	}
	writeJSON(w, http.StatusOK, MechanismListResponse{Mechanisms: items, Total: len(items)})
}

// CreateMechanism handles POST /mechanisms.
func (h *Handler) CreateMechanism(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req MechanismRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	m := req.Mechanism("")
	if _, _, err := h.svc.SaveMechanism(r.Context(), m); err != nil {
		writeError(w, err, "create mechanism failed")
		return
	}
	writeJSON(w, http.StatusCreated, mechanismResponse(m))
}

// GetMechanism handles GET /mechanisms/{id}.
func (h *Handler) GetMechanism(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GetMechanism(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "get mechanism failed")
		return
	}
	writeJSON(w, http.StatusOK, mechanismResponse(m))
}

// UpdateMechanism handles PUT /mechanisms/{id}.
func (h *Handler) UpdateMechanism(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")
	if _, err := h.svc.GetMechanism(r.Context(), id); err != nil {
		writeError(w, err, "update mechanism failed")
		return
	}
	var req MechanismRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	m := req.Mechanism(id)
	if _, _, err := h.svc.SaveMechanism(r.Context(), m); err != nil {
		writeError(w, err, "update mechanism failed")
		return
	}
	writeJSON(w, http.StatusOK, mechanismResponse(m))
}

// DeleteMechanism handles DELETE /mechanisms/{id}.
func (h *Handler) DeleteMechanism(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteMechanism(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err, "delete mechanism failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Simulate handles POST /mechanisms/{id}/simulate.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	steps, _ := strconv.Atoi(r.URL.Query().Get("steps"))
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	traj, cached, err := h.svc.Simulate(r.Context(), chi.URLParam(r, "id"), steps, force)
	if err != nil {
		writeError(w, err, "simulate failed")
		return
	}
	writeJSON(w, http.StatusOK, trajectoryResponse(traj, cached))
}

// GetTrajectory handles GET /mechanisms/{id}/trajectory.
func (h *Handler) GetTrajectory(w http.ResponseWriter, r *http.Request) {
	steps, _ := strconv.Atoi(r.URL.Query().Get("steps"))
	traj, cached, err := h.svc.Simulate(r.Context(), chi.URLParam(r, "id"), steps, false)
	if err != nil {
		writeError(w, err, "trajectory failed")
		return
	}
	writeJSON(w, http.StatusOK, trajectoryResponse(traj, cached))
}

// ExportTrajectoryCSV handles GET /mechanisms/{id}/trajectory.csv.
func (h *Handler) ExportTrajectoryCSV(w http.ResponseWriter, r *http.Request) {
	steps, _ := strconv.Atoi(r.URL.Query().Get("steps"))
	id := chi.URLParam(r, "id")

	// Solve before touching the response so errors can still be
	// reported as JSON.
	traj, _, err := h.svc.Simulate(r.Context(), id, steps, false)
	if err != nil {
		writeError(w, err, "csv export failed")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trajectory.csv"`)
	if err := export.Write(w, traj.Thetas, traj.Frames); err != nil {
		slog.Error("csv export failed", slog.String("id", id), slog.String("error", err.Error()))
	}
}

// Gait handles GET /mechanisms/{id}/gait.
func (h *Handler) Gait(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	joint, err := strconv.Atoi(q.Get("joint"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'joint' is required"))
		return
	}
	rpm, err := strconv.ParseFloat(q.Get("rpm"), 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'rpm' is required"))
		return
	}
	tolerance, err := strconv.ParseFloat(q.Get("tolerance"), 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'tolerance' is required"))
		return
	}
	steps, _ := strconv.Atoi(q.Get("steps"))

	res, err := h.svc.Gait(r.Context(), chi.URLParam(r, "id"), steps, joint, rpm, tolerance)
	if err != nil {
		writeError(w, err, "gait analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
