package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/metricdeck/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Run migrations
	err = db.AutoMigrate(
		&models.User{},
		&models.Passcode{},
		&models.Session{},
		&models.Project{},
		&models.ProjectShare{},
		&models.Query{},
		&models.QueryResult{},
		&models.Dashboard{},
		&models.DashboardQuery{},
		&models.Report{},
		&models.ReportQuery{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// CreateTestUser creates a user on the default test domain
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := &models.User{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email: "test-" + uuid.New().String()[:8] + "@rippling.com",
		Name:  "Test User",
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateTestAdmin creates a user with the admin flag set
func CreateTestAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := CreateTestUser(t, db)
	if err := db.Model(user).Update("is_admin", true).Error; err != nil {
		t.Fatalf("failed to promote test user: %v", err)
	}
	user.IsAdmin = true
	return user
}

// CreateTestProject creates a project owned by the given user
func CreateTestProject(t *testing.T, db *gorm.DB, owner *models.User) *models.Project {
	t.Helper()

	project := &models.Project{
		Base: models.Base{
			ID: uuid.New(),
		},
		Slug:    "test-project-" + uuid.New().String()[:8],
		Name:    "Test Project",
		OwnerID: owner.ID,
	}

	if err := db.Create(project).Error; err != nil {
		t.Fatalf("failed to create test project: %v", err)
	}

	project.Owner = owner
	return project
}

// CreateTestShare grants the user a permission on the project
func CreateTestShare(t *testing.T, db *gorm.DB, project *models.Project, user *models.User, perm models.Permission) *models.ProjectShare {
	t.Helper()

	share := &models.ProjectShare{
		Base: models.Base{
			ID: uuid.New(),
		},
		ProjectID:  project.ID,
		UserID:     user.ID,
		Permission: perm,
	}

	if err := db.Create(share).Error; err != nil {
		t.Fatalf("failed to create test share: %v", err)
	}

	return share
}

// CreateTestQuery creates a saved query in the project
func CreateTestQuery(t *testing.T, db *gorm.DB, project *models.Project, name string) *models.Query {
	t.Helper()

	q := &models.Query{
		Base: models.Base{
			ID: uuid.New(),
		},
		ProjectID: project.ID,
		Name:      name,
		SQL:       "SELECT 1 AS value",
	}

	if err := db.Create(q).Error; err != nil {
		t.Fatalf("failed to create test query: %v", err)
	}

	return q
}

// CreateTestResult stores rows as the query's latest result
func CreateTestResult(t *testing.T, db *gorm.DB, q *models.Query, rows interface{}) *models.QueryResult {
	t.Helper()

	payload, err := json.Marshal(rows)
	if err != nil {
		t.Fatalf("failed to marshal test rows: %v", err)
	}

	count := 0
	if s, ok := rows.([]map[string]interface{}); ok {
		count = len(s)
	}

	result := &models.QueryResult{
		Base: models.Base{
			ID: uuid.New(),
		},
		QueryID:    q.ID,
		Rows:       string(payload),
		RowCount:   count,
		ExecutedAt: time.Now(),
	}

	if err := db.Create(result).Error; err != nil {
		t.Fatalf("failed to create test result: %v", err)
	}

	q.Result = result
	return result
}

// CreateTestDashboard creates a dashboard with the given raw config JSON
func CreateTestDashboard(t *testing.T, db *gorm.DB, project *models.Project, name, config string) *models.Dashboard {
	t.Helper()

	d := &models.Dashboard{
		Base: models.Base{
			ID: uuid.New(),
		},
		ProjectID: project.ID,
		Name:      name,
		Config:    config,
	}

	if err := db.Create(d).Error; err != nil {
		t.Fatalf("failed to create test dashboard: %v", err)
	}

	return d
}

// CreateTestReport creates a markdown report in the project
func CreateTestReport(t *testing.T, db *gorm.DB, project *models.Project, name, content string) *models.Report {
	t.Helper()

	r := &models.Report{
		Base: models.Base{
			ID: uuid.New(),
		},
		ProjectID: project.ID,
		Name:      name,
		Content:   content,
	}

	if err := db.Create(r).Error; err != nil {
		t.Fatalf("failed to create test report: %v", err)
	}

	return r
}

// AuthenticatedRequest creates an HTTP request carrying a session cookie
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: token})
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without a session
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}
