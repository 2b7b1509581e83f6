package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/metricdeck/internal/database/models"
	"github.com/stretchr/testify/assert"
)

type stubAuthenticator struct {
	sessions map[string]*models.Session
}

func (s *stubAuthenticator) ValidatePasscode(ctx context.Context, code string) (*models.User, error) {
	return nil, nil
}

func (s *stubAuthenticator) CreateSession(ctx context.Context, userID uuid.UUID) (string, error) {
	return "", nil
}

func (s *stubAuthenticator) GetSession(ctx context.Context, token string) (*models.Session, error) {
	return s.sessions[token], nil
}

func (s *stubAuthenticator) DestroySession(ctx context.Context, token string) error {
	return nil
}

func TestAuth(t *testing.T) {
	user := &models.User{Base: models.Base{ID: uuid.New()}, Email: "casey@rippling.com"}
	auth := &stubAuthenticator{
		sessions: map[string]*models.Session{
			"good-token": {User: user},
		},
	}

	var seen *models.User
	handler := Auth(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("session cookie", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good-token"})
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, user.Email, seen.Email)
	})

	t.Run("header fallback", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Session-Token", "good-token")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotNil(t, seen)
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "stale"})
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("admin passes", func(t *testing.T) {
		admin := &models.User{Base: models.Base{ID: uuid.New()}, IsAdmin: true}
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), UserKey, admin))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("regular user forbidden", func(t *testing.T) {
		user := &models.User{Base: models.Base{ID: uuid.New()}}
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), UserKey, user))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("no user forbidden", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}
