package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hugh/metricdeck/internal/api/handlers"
	"github.com/hugh/metricdeck/internal/database/models"
	"github.com/hugh/metricdeck/internal/tasks"
	"github.com/hugh/metricdeck/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryEndpoints(t *testing.T) {
	env := setupEnv(t)
	owner := testutil.CreateTestUser(t, env.db)
	viewer := testutil.CreateTestUser(t, env.db)

	proj := testutil.CreateTestProject(t, env.db, owner)
	testutil.CreateTestShare(t, env.db, proj, viewer, models.PermissionView)

	ownerToken := env.login(t, owner)
	viewerToken := env.login(t, viewer)
	base := "/api/v1/projects/" + proj.Slug + "/queries/"

	t.Run("viewer cannot save queries", func(t *testing.T) {
		body := map[string]string{"sql": "SELECT 1"}
		req := testutil.AuthenticatedRequest(t, "PUT", base+"total_signups", body, viewerToken)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("owner saves a query", func(t *testing.T) {
		body := map[string]string{"sql": "SELECT COUNT(*) AS count FROM signups"}
		req := testutil.AuthenticatedRequest(t, "PUT", base+"total_signups", body, ownerToken)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var q models.Query
		testutil.ParseJSONResponse(t, rr, &q)
		assert.Equal(t, "total_signups", q.Name)
	})

	t.Run("invalid name rejected", func(t *testing.T) {
		body := map[string]string{"sql": "SELECT 1"}
		req := testutil.AuthenticatedRequest(t, "PUT", base+"bad%20name", body, ownerToken)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("viewer reads the query", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", base+"total_signups", nil, viewerToken)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("run enqueues a background execution", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "POST", base+"total_signups/run", nil, ownerToken)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusAccepted)

		require.Len(t, env.enqueuer.enqueued, 1)
		assert.Equal(t, tasks.TypeQueryRun, env.enqueuer.enqueued[0].Type())
	})

	t.Run("viewer cannot run", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "POST", base+"total_signups/run", nil, viewerToken)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("result is empty before any run", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", base+"total_signups/result", nil, viewerToken)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp handlers.QueryResultResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Empty(t, resp.Rows)
		assert.Zero(t, resp.RowCount)
	})

	t.Run("result returns stored rows, legacy shape included", func(t *testing.T) {
		var q models.Query
		require.NoError(t, env.db.Where("project_id = ? AND name = ?", proj.ID, "total_signups").First(&q).Error)

		// Legacy payload shape: object wrapping a data array.
		result := models.QueryResult{
			QueryID:  q.ID,
			Rows:     `{"data":[{"count":42}]}`,
			RowCount: 1,
		}
		require.NoError(t, env.db.Create(&result).Error)

		req := testutil.AuthenticatedRequest(t, "GET", base+"total_signups/result", nil, viewerToken)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp handlers.QueryResultResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		require.Len(t, resp.Rows, 1)
		assert.Equal(t, float64(42), resp.Rows[0]["count"])
	})

	t.Run("unknown query is 404", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", base+"absent", nil, viewerToken)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}
