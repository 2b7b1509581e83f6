package query

import (
	"context"
	"testing"
	"time"

	"github.com/hugh/metricdeck/internal/database/models"
	"github.com/hugh/metricdeck/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	return NewService(db), db
}

func TestUpsertQuery(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	owner := testutil.CreateTestUser(t, db)
	proj := testutil.CreateTestProject(t, db, owner)

	t.Run("creates", func(t *testing.T) {
		q, err := svc.Upsert(ctx, proj.ID, "total_signups", "SELECT COUNT(*) AS count FROM signups", "")
		require.NoError(t, err)
		assert.Equal(t, "total_signups", q.Name)
		assert.Nil(t, q.NextRefreshAt)
	})

	t.Run("re-save replaces sql in place", func(t *testing.T) {
		q, err := svc.Upsert(ctx, proj.ID, "total_signups", "SELECT 2", "")
		require.NoError(t, err)
		assert.Equal(t, "SELECT 2", q.SQL)

		var count int64
		require.NoError(t, db.Model(&models.Query{}).Where("project_id = ?", proj.ID).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("refresh schedule sets next run", func(t *testing.T) {
		q, err := svc.Upsert(ctx, proj.ID, "scheduled", "SELECT 1", "0 6 * * *")
		require.NoError(t, err)
		require.NotNil(t, q.NextRefreshAt)
		assert.True(t, q.NextRefreshAt.After(time.Now()))
	})

	t.Run("rejects a bad cron expression", func(t *testing.T) {
		_, err := svc.Upsert(ctx, proj.ID, "bad-cron", "SELECT 1", "not a cron")
		assert.Error(t, err)
	})

	t.Run("same name in another project is independent", func(t *testing.T) {
		other := testutil.CreateTestProject(t, db, owner)
		q, err := svc.Upsert(ctx, other.ID, "total_signups", "SELECT 3", "")
		require.NoError(t, err)
		assert.Equal(t, "SELECT 3", q.SQL)

		orig, err := svc.GetByName(ctx, proj.ID, "total_signups")
		require.NoError(t, err)
		assert.Equal(t, "SELECT 2", orig.SQL)
	})
}

func TestSaveResult(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	owner := testutil.CreateTestUser(t, db)
	proj := testutil.CreateTestProject(t, db, owner)
	q := testutil.CreateTestQuery(t, db, proj, "weekly_trend")

	first := []Row{{"week": "W01", "signups": float64(210)}}
	res, err := svc.SaveResult(ctx, q.ID, first, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowCount)

	t.Run("latest execution wins", func(t *testing.T) {
		second := []Row{
			{"week": "W01", "signups": float64(210)},
			{"week": "W02", "signups": float64(245)},
		}
		_, err := svc.SaveResult(ctx, q.ID, second, owner.ID)
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&models.QueryResult{}).Where("query_id = ?", q.ID).Count(&count).Error)
		assert.EqualValues(t, 1, count)

		reloaded, err := svc.GetByName(ctx, proj.ID, "weekly_trend")
		require.NoError(t, err)
		rows, err := svc.ResultRows(reloaded)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("never-run query yields empty rows", func(t *testing.T) {
		fresh := testutil.CreateTestQuery(t, db, proj, "never_run")
		loaded, err := svc.GetByName(ctx, proj.ID, fresh.Name)
		require.NoError(t, err)

		rows, err := svc.ResultRows(loaded)
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})
}

func TestRefreshScheduling(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	owner := testutil.CreateTestUser(t, db)
	proj := testutil.CreateTestProject(t, db, owner)

	due, err := svc.Upsert(ctx, proj.ID, "due", "SELECT 1", "*/5 * * * *")
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, proj.ID, "manual", "SELECT 1", "")
	require.NoError(t, err)

	// Force the schedule into the past.
	past := time.Now().Add(-time.Minute)
	require.NoError(t, db.Model(&models.Query{}).Where("id = ?", due.ID).Update("next_refresh_at", past).Error)

	t.Run("only scheduled queries come due", func(t *testing.T) {
		got, err := svc.DueForRefresh(ctx, time.Now())
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, due.ID, got[0].ID)
	})

	t.Run("advancing the schedule clears the backlog", func(t *testing.T) {
		got, err := svc.DueForRefresh(ctx, time.Now())
		require.NoError(t, err)
		require.Len(t, got, 1)

		require.NoError(t, svc.ScheduleNextRefresh(ctx, &got[0], time.Now()))

		after, err := svc.DueForRefresh(ctx, time.Now())
		require.NoError(t, err)
		assert.Empty(t, after)
	})
}
