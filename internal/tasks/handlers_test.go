package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/metricdeck/internal/auth"
	"github.com/hugh/metricdeck/internal/dashboard"
	"github.com/hugh/metricdeck/internal/database/models"
	"github.com/hugh/metricdeck/internal/query"
	"github.com/hugh/metricdeck/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// stubRunner returns canned rows instead of hitting a warehouse.
type stubRunner struct {
	rows []query.Row
	err  error
	sql  string
}

func (s *stubRunner) Run(ctx context.Context, sqlText string) ([]query.Row, error) {
	s.sql = sqlText
	return s.rows, s.err
}

// stubEnqueuer records enqueued tasks.
type stubEnqueuer struct {
	enqueued []*asynq.Task
}

func (s *stubEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	s.enqueued = append(s.enqueued, task)
	return &asynq.TaskInfo{}, nil
}

type handlerFixture struct {
	handler  *Handler
	db       *gorm.DB
	queries  *query.Service
	composer *dashboard.Composer
	auth     *auth.Service
	runner   *stubRunner
	enqueuer *stubEnqueuer
}

func newFixture(t *testing.T) *handlerFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	queries := query.NewService(db)
	composer := dashboard.NewComposer(db, queries, log)
	authService := auth.NewService(db, "rippling.com", time.Hour, bcrypt.MinCost)
	runner := &stubRunner{}
	enqueuer := &stubEnqueuer{}

	return &handlerFixture{
		handler:  NewHandler(db, queries, composer, authService, runner, enqueuer, log),
		db:       db,
		queries:  queries,
		composer: composer,
		auth:     authService,
		runner:   runner,
		enqueuer: enqueuer,
	}
}

func TestHandleQueryRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := testutil.CreateTestUser(t, f.db)
	proj := testutil.CreateTestProject(t, f.db, owner)
	q := testutil.CreateTestQuery(t, f.db, proj, "weekly_trend")

	t.Run("stores the runner's rows", func(t *testing.T) {
		f.runner.rows = []query.Row{
			{"week": "W01", "signups": float64(210)},
			{"week": "W02", "signups": float64(245)},
		}

		task, err := NewQueryRunTask(QueryRunPayload{QueryID: q.ID, RequestedBy: owner.ID})
		require.NoError(t, err)

		require.NoError(t, f.handler.HandleQueryRun(ctx, task))
		assert.Equal(t, q.SQL, f.runner.sql)

		stored, err := f.queries.GetByName(ctx, proj.ID, "weekly_trend")
		require.NoError(t, err)
		require.NotNil(t, stored.Result)
		assert.Equal(t, 2, stored.Result.RowCount)
		assert.Equal(t, owner.ID, stored.Result.ExecutedBy)
	})

	t.Run("warehouse failure surfaces for retry", func(t *testing.T) {
		f.runner.err = errors.New("warehouse unavailable")
		defer func() { f.runner.err = nil }()

		task, err := NewQueryRunTask(QueryRunPayload{QueryID: q.ID})
		require.NoError(t, err)

		assert.Error(t, f.handler.HandleQueryRun(ctx, task))
	})

	t.Run("bad payload", func(t *testing.T) {
		task := asynq.NewTask(TypeQueryRun, []byte("not json"))
		assert.Error(t, f.handler.HandleQueryRun(ctx, task))
	})
}

func TestHandleLinkReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := testutil.CreateTestUser(t, f.db)
	proj := testutil.CreateTestProject(t, f.db, owner)
	testutil.CreateTestDashboard(t, f.db, proj, "main", `{"widgets":[{"queryName":"linked","type":"table"}]}`)
	testutil.CreateTestQuery(t, f.db, proj, "linked")

	t.Run("single project", func(t *testing.T) {
		task, err := NewLinkReconcileTask(LinkReconcilePayload{ProjectID: proj.ID})
		require.NoError(t, err)
		require.NoError(t, f.handler.HandleLinkReconcile(ctx, task))

		var count int64
		require.NoError(t, f.db.Model(&models.DashboardQuery{}).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("nil project id sweeps every project", func(t *testing.T) {
		other := testutil.CreateTestProject(t, f.db, owner)
		testutil.CreateTestDashboard(t, f.db, other, "main", `{"widgets":[{"queryName":"other_q","type":"table"}]}`)
		testutil.CreateTestQuery(t, f.db, other, "other_q")

		task, err := NewLinkReconcileTask(LinkReconcilePayload{})
		require.NoError(t, err)
		require.NoError(t, f.handler.HandleLinkReconcile(ctx, task))

		var count int64
		require.NoError(t, f.db.Model(&models.DashboardQuery{}).Count(&count).Error)
		assert.EqualValues(t, 2, count)
	})
}

func TestHandleSessionSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, f.db)
	token, err := f.auth.CreateSession(ctx, user.ID)
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, f.db.Model(&models.Session{}).Where("token = ?", token).Update("expires_at", past).Error)

	require.NoError(t, f.handler.HandleSessionSweep(ctx, NewSessionSweepTask()))

	var count int64
	require.NoError(t, f.db.Model(&models.Session{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestHandleRefreshTick(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := testutil.CreateTestUser(t, f.db)
	proj := testutil.CreateTestProject(t, f.db, owner)

	due, err := f.queries.Upsert(ctx, proj.ID, "due", "SELECT 1", "*/5 * * * *")
	require.NoError(t, err)
	_, err = f.queries.Upsert(ctx, proj.ID, "manual", "SELECT 1", "")
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, f.db.Model(&models.Query{}).Where("id = ?", due.ID).Update("next_refresh_at", past).Error)

	require.NoError(t, f.handler.HandleRefreshTick(ctx, NewRefreshTickTask()))

	t.Run("enqueues only due queries", func(t *testing.T) {
		require.Len(t, f.enqueuer.enqueued, 1)
		assert.Equal(t, TypeQueryRun, f.enqueuer.enqueued[0].Type())
	})

	t.Run("advances the schedule", func(t *testing.T) {
		remaining, err := f.queries.DueForRefresh(ctx, time.Now())
		require.NoError(t, err)
		assert.Empty(t, remaining)
	})
}
