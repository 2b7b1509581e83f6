package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hugh/metricdeck/internal/api/dto"
	"github.com/hugh/metricdeck/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	env := setupEnv(t)
	user := testutil.CreateTestUser(t, env.db)
	code, _, err := env.auth.CreatePasscode(context.Background(), user.ID, "laptop")
	require.NoError(t, err)

	t.Run("valid passcode opens a session", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", map[string]string{"passcode": code})
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.LoginResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, user.Email, resp.User.Email)

		cookies := rr.Result().Cookies()
		require.NotEmpty(t, cookies)
		var sessionValue string
		for _, c := range cookies {
			if c.Name == "session" {
				sessionValue = c.Value
				assert.True(t, c.HttpOnly)
			}
		}
		assert.Len(t, sessionValue, 64)
	})

	t.Run("case and separator insensitive", func(t *testing.T) {
		loose := " " + strings.ToLower(strings.ReplaceAll(code, "-", "")) + " "
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", map[string]string{"passcode": loose})
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("wrong passcode", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", map[string]string{"passcode": "ABCD-2345-EFGH-6789"})
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Invalid passcode", resp.Error)
	})

	t.Run("missing passcode", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", map[string]string{})
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestLogout(t *testing.T) {
	env := setupEnv(t)
	user := testutil.CreateTestUser(t, env.db)
	token := env.login(t, user)

	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/auth/logout", nil, token)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	testutil.AssertStatus(t, rr, http.StatusOK)

	// The session is gone now.
	req = testutil.AuthenticatedRequest(t, "GET", "/api/v1/me", nil, token)
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestMe(t *testing.T) {
	env := setupEnv(t)
	user := testutil.CreateTestUser(t, env.db)

	t.Run("requires a session", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "GET", "/api/v1/me", nil)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("returns the session user", func(t *testing.T) {
		token := env.login(t, user)
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/me", nil, token)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.UserDTO
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, user.Email, resp.Email)
	})
}

func TestMagicLink(t *testing.T) {
	env := setupEnv(t)

	t.Run("foreign domain is rejected", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/magic-link", map[string]string{"email": "mallory@evil.com"})
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("organization email gets a link", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/magic-link", map[string]string{"email": "casey@rippling.com"})
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("redeem creates the user and a session", func(t *testing.T) {
		token, err := env.links.IssueToken("newhire@rippling.com")
		require.NoError(t, err)

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/magic-link/redeem", map[string]string{"token": token})
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.LoginResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "newhire@rippling.com", resp.User.Email)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/magic-link/redeem", map[string]string{"token": "bogus"})
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func TestPasscodeEndpoints(t *testing.T) {
	env := setupEnv(t)
	user := testutil.CreateTestUser(t, env.db)
	other := testutil.CreateTestUser(t, env.db)
	admin := testutil.CreateTestAdmin(t, env.db)
	token := env.login(t, user)

	var createdID string

	t.Run("create returns the plaintext once", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/passcodes/", map[string]string{"name": "laptop"}, token)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusCreated)

		var resp dto.PasscodeCreatedResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Len(t, resp.Passcode, 19)
		assert.Len(t, resp.Hint, 4)
		assert.Equal(t, "laptop", resp.Name)
		createdID = resp.ID
	})

	t.Run("list own", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/passcodes/", nil, token)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("non-admin cannot list another user's", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/passcodes/?email="+other.Email, nil, token)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("admin can list another user's", func(t *testing.T) {
		adminToken := env.login(t, admin)
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/passcodes/?email="+user.Email, nil, adminToken)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("stranger cannot delete", func(t *testing.T) {
		otherToken := env.login(t, other)
		req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/passcodes/"+createdID, nil, otherToken)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("owner deletes", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/passcodes/"+createdID, nil, token)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
	})
}
