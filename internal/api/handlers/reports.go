package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/metricdeck/internal/api/dto"
	"github.com/hugh/metricdeck/internal/api/validation"
	"github.com/hugh/metricdeck/internal/database/models"
	"github.com/hugh/metricdeck/internal/project"
	"github.com/hugh/metricdeck/internal/report"
)

type ReportHandler struct {
	projects *project.Service
	reports  *report.Service
}

func NewReportHandler(projects *project.Service, reports *report.Service) *ReportHandler {
	return &ReportHandler{projects: projects, reports: reports}
}

type ReportResponse struct {
	Name      string            `json:"name"`
	Content   string            `json:"content"`
	Citations []report.Citation `json:"citations"`
}

func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	proj, _, ok := resolveProject(w, r, h.projects, models.PermissionView)
	if !ok {
		return
	}

	reports, err := h.reports.ListForProject(r.Context(), proj.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not list reports"})
		return
	}

	writeJSON(w, http.StatusOK, reports)
}

// Get returns the report with its citation markers resolved into links under
// the project.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	proj, _, ok := resolveProject(w, r, h.projects, models.PermissionView)
	if !ok {
		return
	}

	rep, err := h.reports.GetByName(r.Context(), proj.ID, chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, report.ErrReportNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Report not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not load report"})
		return
	}

	content, citations := report.ResolveCitations(rep.Content, proj.Slug)

	writeJSON(w, http.StatusOK, ReportResponse{
		Name:      rep.Name,
		Content:   content,
		Citations: citations,
	})
}

func (h *ReportHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	proj, _, ok := resolveProject(w, r, h.projects, models.PermissionEdit)
	if !ok {
		return
	}

	name := chi.URLParam(r, "name")
	if !validation.IsValidResourceName(name) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid report name"})
		return
	}

	var req dto.UpsertReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	rep, err := h.reports.Upsert(r.Context(), proj.ID, name, req.Content)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not save report"})
		return
	}

	writeJSON(w, http.StatusOK, rep)
}
