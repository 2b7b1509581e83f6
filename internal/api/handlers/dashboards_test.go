package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hugh/metricdeck/internal/dashboard"
	"github.com/hugh/metricdeck/internal/database/models"
	"github.com/hugh/metricdeck/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardEndpoints(t *testing.T) {
	env := setupEnv(t)
	owner := testutil.CreateTestUser(t, env.db)
	viewer := testutil.CreateTestUser(t, env.db)
	editor := testutil.CreateTestUser(t, env.db)

	proj := testutil.CreateTestProject(t, env.db, owner)
	testutil.CreateTestShare(t, env.db, proj, viewer, models.PermissionView)
	testutil.CreateTestShare(t, env.db, proj, editor, models.PermissionEdit)

	q := testutil.CreateTestQuery(t, env.db, proj, "total_signups")
	testutil.CreateTestResult(t, env.db, q, []map[string]interface{}{{"count": 1248}})

	viewerToken := env.login(t, viewer)
	editorToken := env.login(t, editor)
	base := "/api/v1/projects/" + proj.Slug + "/dashboards/"

	config := map[string]interface{}{
		"title": "Growth",
		"widgets": []map[string]interface{}{
			{"queryName": "total_signups", "type": "metric", "valueKey": "count"},
			{"queryName": "total_signups", "type": "table", "hidden": true},
		},
	}
	rawConfig, err := json.Marshal(config)
	require.NoError(t, err)

	t.Run("viewer cannot write config", func(t *testing.T) {
		body := map[string]json.RawMessage{"config": rawConfig}
		req := testutil.AuthenticatedRequest(t, "PATCH", base+"main", body, viewerToken)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("editor writes config", func(t *testing.T) {
		body := map[string]json.RawMessage{"config": rawConfig}
		req := testutil.AuthenticatedRequest(t, "PATCH", base+"main", body, editorToken)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		body := map[string]json.RawMessage{"config": json.RawMessage(`"not an object"`)}
		req := testutil.AuthenticatedRequest(t, "PATCH", base+"main", body, editorToken)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("viewer reads the composed dashboard", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", base+"main", nil, viewerToken)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var composed dashboard.RenderableDashboard
		testutil.ParseJSONResponse(t, rr, &composed)
		assert.Equal(t, "Growth", composed.Title)
		require.Len(t, composed.Widgets, 1, "hidden widget filtered out")
		assert.Equal(t, dashboard.WidgetMetric, composed.Widgets[0].Type)
		require.Len(t, composed.Widgets[0].Rows, 1)
		assert.Equal(t, float64(1248), composed.Widgets[0].Rows[0]["count"])
	})

	t.Run("missing dashboard is 404", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", base+"absent", nil, viewerToken)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})

	t.Run("list", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", base, nil, viewerToken)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var dashboards []models.Dashboard
		testutil.ParseJSONResponse(t, rr, &dashboards)
		assert.Len(t, dashboards, 1)
	})
}
