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
)

type PasscodeHandler struct {
	authService *auth.Service
}

func NewPasscodeHandler(authService *auth.Service) *PasscodeHandler {
	return &PasscodeHandler{authService: authService}
}

// Create issues a passcode for the authenticated user. The response is the
// only place the plaintext ever appears.
func (h *PasscodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req dto.CreatePasscodeRequest
	if r.Body != nil {
		// Body is optional; a bare POST creates an unnamed passcode.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	code, passcode, err := h.authService.CreatePasscode(r.Context(), user.ID, req.Name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not create passcode"})
		return
	}

	writeJSON(w, http.StatusCreated, dto.PasscodeCreatedResponse{
		ID:       passcode.ID.String(),
		Passcode: code,
		Hint:     passcode.CodeHint,
		Name:     passcode.Name,
	})
}

// List returns the caller's passcodes. Admins may list another user's with
// the email query parameter.
func (h *PasscodeHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	target := user
	if email := r.URL.Query().Get("email"); email != "" && email != user.Email {
		if !user.IsAdmin {
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
			return
		}
		other, err := h.authService.GetUserByEmail(r.Context(), email)
		if err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "User not found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not list passcodes"})
			return
		}
		target = other
	}

	passcodes, err := h.authService.ListPasscodes(r.Context(), target.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not list passcodes"})
		return
	}

	writeJSON(w, http.StatusOK, passcodes)
}

// Delete revokes a passcode. Owners and admins only; a foreign passcode is a
// 403, not a 404, because the row exists.
func (h *PasscodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid passcode ID"})
		return
	}

	if err := h.authService.DeletePasscode(r.Context(), user, id); err != nil {
		switch {
		case errors.Is(err, auth.ErrPasscodeNotFound):
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Passcode not found"})
		case errors.Is(err, auth.ErrNotAuthorized):
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not delete passcode"})
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Passcode deleted"})
}
