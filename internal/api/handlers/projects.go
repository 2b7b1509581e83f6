package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/metricdeck/internal/api/dto"
	"github.com/hugh/metricdeck/internal/api/middleware"
	"github.com/hugh/metricdeck/internal/auth"
	"github.com/hugh/metricdeck/internal/database/models"
	"github.com/hugh/metricdeck/internal/project"
)

type ProjectHandler struct {
	projects *project.Service
}

func NewProjectHandler(projects *project.Service) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// resolveProject loads the project in the URL and enforces the required
// permission. A project the caller cannot view responds 404, same as one
// that does not exist; a caller who can view but lacks the required level
// gets 403. Returns false after writing the response when access is denied.
func resolveProject(w http.ResponseWriter, r *http.Request, projects *project.Service, required models.Permission) (*models.Project, *models.User, bool) {
	user := middleware.GetUser(r.Context())
	slug := chi.URLParam(r, "slug")

	proj, err := projects.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Project not found"})
		} else {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not load project"})
		}
		return nil, nil, false
	}

	canView, err := projects.CanView(r.Context(), user.ID, proj.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not load project"})
		return nil, nil, false
	}
	if !canView {
		// Hidden projects are indistinguishable from missing ones.
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Project not found"})
		return nil, nil, false
	}

	var ok bool
	switch required {
	case models.PermissionAdmin:
		ok, err = projects.CanAdmin(r.Context(), user.ID, proj.ID)
	case models.PermissionEdit:
		ok, err = projects.CanEdit(r.Context(), user.ID, proj.ID)
	default:
		ok = true
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not load project"})
		return nil, nil, false
	}
	if !ok {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Insufficient permission"})
		return nil, nil, false
	}

	return proj, user, true
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	projects, err := h.projects.ListForUser(r.Context(), user.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not list projects"})
		return
	}

	writeJSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req dto.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	proj, err := h.projects.CreateProject(r.Context(), user.ID, req.Slug, req.Name, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, project.ErrSlugTaken):
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Project slug already exists"})
		case errors.Is(err, project.ErrInvalidSlug):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid project slug"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not create project"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, proj)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	proj, _, ok := resolveProject(w, r, h.projects, models.PermissionView)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

func (h *ProjectHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	proj, _, ok := resolveProject(w, r, h.projects, models.PermissionView)
	if !ok {
		return
	}

	shares, err := h.projects.ListShares(r.Context(), proj.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not list shares"})
		return
	}

	writeJSON(w, http.StatusOK, shares)
}

// UpsertShare grants or updates a user's permission on the project. Repeating
// the call with a new level overwrites the existing share.
func (h *ProjectHandler) UpsertShare(w http.ResponseWriter, r *http.Request) {
	proj, user, ok := resolveProject(w, r, h.projects, models.PermissionView)
	if !ok {
		return
	}

	var req dto.ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	share, err := h.projects.UpsertShare(r.Context(), user.ID, proj.ID, req.Email, models.Permission(req.Permission))
	if err != nil {
		switch {
		case errors.Is(err, project.ErrNotAllowed):
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Sharing requires ADMIN permission"})
		case errors.Is(err, project.ErrInvalidPermission):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Permission must be VIEW, EDIT, or ADMIN"})
		case errors.Is(err, project.ErrOwnerShare):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Cannot share a project with its owner"})
		case errors.Is(err, auth.ErrWrongEmailDomain):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Email is not part of the organization"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not share project"})
		}
		return
	}

	writeJSON(w, http.StatusOK, share)
}

func (h *ProjectHandler) RemoveShare(w http.ResponseWriter, r *http.Request) {
	proj, user, ok := resolveProject(w, r, h.projects, models.PermissionView)
	if !ok {
		return
	}

	shareID, err := uuid.Parse(chi.URLParam(r, "shareID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid share ID"})
		return
	}

	if err := h.projects.RemoveShare(r.Context(), user.ID, proj.ID, shareID); err != nil {
		switch {
		case errors.Is(err, project.ErrNotAllowed):
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Sharing requires ADMIN permission"})
		case errors.Is(err, project.ErrShareNotFound):
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Share not found"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not remove share"})
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Share removed"})
}
