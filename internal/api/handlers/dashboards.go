package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/metricdeck/internal/api/dto"
	"github.com/hugh/metricdeck/internal/api/validation"
	"github.com/hugh/metricdeck/internal/dashboard"
	"github.com/hugh/metricdeck/internal/database/models"
	"github.com/hugh/metricdeck/internal/project"
)

type DashboardHandler struct {
	projects *project.Service
	composer *dashboard.Composer
}

func NewDashboardHandler(projects *project.Service, composer *dashboard.Composer) *DashboardHandler {
	return &DashboardHandler{projects: projects, composer: composer}
}

func (h *DashboardHandler) List(w http.ResponseWriter, r *http.Request) {
	proj, _, ok := resolveProject(w, r, h.projects, models.PermissionView)
	if !ok {
		return
	}

	dashboards, err := h.composer.ListForProject(r.Context(), proj.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not list dashboards"})
		return
	}

	writeJSON(w, http.StatusOK, dashboards)
}

// Get returns the composed, render-ready dashboard: widgets with rows
// attached, hidden widgets dropped, invalid charts degraded to tables.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	proj, _, ok := resolveProject(w, r, h.projects, models.PermissionView)
	if !ok {
		return
	}

	composed, err := h.composer.Compose(r.Context(), proj.ID, chi.URLParam(r, "name"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not compose dashboard"})
		return
	}
	if composed == nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Dashboard not found"})
		return
	}

	writeJSON(w, http.StatusOK, composed)
}

// Upsert replaces the dashboard's config wholesale. Edit permission required;
// viewers get 403.
func (h *DashboardHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	proj, _, ok := resolveProject(w, r, h.projects, models.PermissionEdit)
	if !ok {
		return
	}

	name := chi.URLParam(r, "name")
	if !validation.IsValidResourceName(name) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid dashboard name"})
		return
	}

	var req dto.UpsertDashboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	dash, err := h.composer.Upsert(r.Context(), proj.ID, name, string(req.Config))
	if err != nil {
		if errors.Is(err, dashboard.ErrInvalidConfig) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid dashboard config"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not save dashboard"})
		return
	}

	writeJSON(w, http.StatusOK, dash)
}
