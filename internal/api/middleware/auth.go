package middleware

import (
	"context"
	"net/http"

	"github.com/hugh/metricdeck/internal/auth"
	"github.com/hugh/metricdeck/internal/database/models"
)

type contextKey string

const (
	UserKey         contextKey = "user"
	SessionTokenKey contextKey = "session_token"
)

// SessionCookie is the cookie carrying the opaque session token.
const SessionCookie = "session"

// Auth resolves the session cookie to a user and stores it in the request
// context. Requests without a live session get 401; expired sessions are
// indistinguishable from unknown tokens.
func Auth(sessions auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if cookie, err := r.Cookie(SessionCookie); err == nil {
				token = cookie.Value
			}
			if token == "" {
				token = r.Header.Get("X-Session-Token")
			}
			if token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			session, err := sessions.GetSession(r.Context(), token)
			if err != nil {
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if session == nil || session.User == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserKey, session.User)
			ctx = context.WithValue(ctx, SessionTokenKey, token)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser returns the authenticated user, or nil outside the auth middleware.
func GetUser(ctx context.Context) *models.User {
	if user, ok := ctx.Value(UserKey).(*models.User); ok {
		return user
	}
	return nil
}

// GetSessionToken returns the token the current request authenticated with.
func GetSessionToken(ctx context.Context) string {
	if token, ok := ctx.Value(SessionTokenKey).(string); ok {
		return token
	}
	return ""
}

// RequireAdmin ensures the authenticated user has the admin flag.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		if user == nil || !user.IsAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
