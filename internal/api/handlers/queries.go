package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/metricdeck/internal/api/dto"
	"github.com/hugh/metricdeck/internal/api/validation"
	"github.com/hugh/metricdeck/internal/database/models"
	"github.com/hugh/metricdeck/internal/project"
	"github.com/hugh/metricdeck/internal/query"
	"github.com/hugh/metricdeck/internal/tasks"
)

type QueryHandler struct {
	projects *project.Service
	queries  *query.Service
	client   tasks.Enqueuer
}

func NewQueryHandler(projects *project.Service, queries *query.Service, client tasks.Enqueuer) *QueryHandler {
	return &QueryHandler{projects: projects, queries: queries, client: client}
}

type QueryResultResponse struct {
	Name       string      `json:"name"`
	Rows       []query.Row `json:"rows"`
	RowCount   int         `json:"row_count"`
	ExecutedAt *time.Time  `json:"executed_at,omitempty"`
}

func (h *QueryHandler) List(w http.ResponseWriter, r *http.Request) {
	proj, _, ok := resolveProject(w, r, h.projects, models.PermissionView)
	if !ok {
		return
	}

	queries, err := h.queries.ListForProject(r.Context(), proj.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not list queries"})
		return
	}

	writeJSON(w, http.StatusOK, queries)
}

func (h *QueryHandler) Get(w http.ResponseWriter, r *http.Request) {
	proj, _, ok := resolveProject(w, r, h.projects, models.PermissionView)
	if !ok {
		return
	}

	q, err := h.queries.GetByName(r.Context(), proj.ID, chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, query.ErrQueryNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Query not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not load query"})
		return
	}

	writeJSON(w, http.StatusOK, q)
}

// Upsert creates or replaces the named query's SQL and refresh schedule.
func (h *QueryHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	proj, _, ok := resolveProject(w, r, h.projects, models.PermissionEdit)
	if !ok {
		return
	}

	name := chi.URLParam(r, "name")
	if !validation.IsValidResourceName(name) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query name"})
		return
	}

	var req dto.UpsertQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	q, err := h.queries.Upsert(r.Context(), proj.ID, name, req.SQL, req.RefreshCron)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Could not save query: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, q)
}

// Run enqueues a warehouse execution for the query; the worker stores the
// result when it finishes.
func (h *QueryHandler) Run(w http.ResponseWriter, r *http.Request) {
	proj, user, ok := resolveProject(w, r, h.projects, models.PermissionEdit)
	if !ok {
		return
	}

	q, err := h.queries.GetByName(r.Context(), proj.ID, chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, query.ErrQueryNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Query not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not load query"})
		return
	}

	task, err := tasks.NewQueryRunTask(tasks.QueryRunPayload{QueryID: q.ID, RequestedBy: user.ID})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not enqueue query run"})
		return
	}
	if _, err := h.client.EnqueueContext(r.Context(), task); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not enqueue query run"})
		return
	}

	writeJSON(w, http.StatusAccepted, dto.SuccessResponse{Message: "Query run enqueued"})
}

// Result returns the query's latest stored rows. A query that has never run
// responds with an empty row sequence, not an error.
func (h *QueryHandler) Result(w http.ResponseWriter, r *http.Request) {
	proj, _, ok := resolveProject(w, r, h.projects, models.PermissionView)
	if !ok {
		return
	}

	q, err := h.queries.GetByName(r.Context(), proj.ID, chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, query.ErrQueryNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Query not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not load query"})
		return
	}

	rows, err := h.queries.ResultRows(q)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not read query result"})
		return
	}

	resp := QueryResultResponse{Name: q.Name, Rows: rows, RowCount: len(rows)}
	if q.Result != nil {
		resp.ExecutedAt = &q.Result.ExecutedAt
	}

	writeJSON(w, http.StatusOK, resp)
}
