package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hugh/metricdeck/internal/api/dto"
	"github.com/hugh/metricdeck/internal/api/middleware"
	"github.com/hugh/metricdeck/internal/auth"
	"github.com/hugh/metricdeck/internal/database/models"
)

type AuthHandler struct {
	authService *auth.Service
	linkService *auth.MagicLinkService
	cookieTTL   int
	log         *slog.Logger
}

func NewAuthHandler(authService *auth.Service, linkService *auth.MagicLinkService, cookieTTLSeconds int, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		linkService: linkService,
		cookieTTL:   cookieTTLSeconds,
		log:         log,
	}
}

// Login exchanges a passcode for a session cookie. Unknown and revoked codes
// produce the same response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	user, err := h.authService.ValidatePasscode(r.Context(), req.Passcode)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPasscode) {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid passcode"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Login failed"})
		return
	}

	h.openSession(w, r, user)
}

// RequestMagicLink issues a signed sign-in link for an organization email.
// Delivery is out of band; the link is logged for the mailer to pick up.
func (h *AuthHandler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req dto.MagicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	if err := h.authService.CheckEmailDomain(req.Email); err != nil {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Email is not part of the organization"})
		return
	}

	token, err := h.linkService.IssueToken(req.Email)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not issue sign-in link"})
		return
	}

	h.log.Info("magic link issued", "email", req.Email, "url", h.linkService.LoginURL(token))

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Sign-in link sent"})
}

// RedeemMagicLink trades a link token for a session, creating the user on
// first sign-in.
func (h *AuthHandler) RedeemMagicLink(w http.ResponseWriter, r *http.Request) {
	var req dto.RedeemLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	email, err := h.linkService.RedeemToken(req.Token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrExpiredLinkToken):
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Sign-in link has expired"})
		default:
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid sign-in link"})
		}
		return
	}

	user, err := h.authService.GetOrCreateUser(r.Context(), email, "")
	if err != nil {
		if errors.Is(err, auth.ErrWrongEmailDomain) {
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Email is not part of the organization"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Login failed"})
		return
	}

	h.openSession(w, r, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookie); err == nil && cookie.Value != "" {
		if err := h.authService.DestroySession(r.Context(), cookie.Value); err != nil {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Logout failed"})
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Logged out"})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, userDTO(user))
}

func (h *AuthHandler) openSession(w http.ResponseWriter, r *http.Request, user *models.User) {
	token, err := h.authService.CreateSession(r.Context(), user.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Login failed"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		SameSite: http.SameSiteLaxMode,
		MaxAge:   h.cookieTTL,
	})

	writeJSON(w, http.StatusOK, dto.LoginResponse{User: userDTO(user)})
}

func userDTO(user *models.User) dto.UserDTO {
	return dto.UserDTO{
		ID:      user.ID.String(),
		Email:   user.Email,
		Name:    user.Name,
		IsAdmin: user.IsAdmin,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
