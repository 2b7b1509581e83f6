package handlers_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/metricdeck/internal/api"
	"github.com/hugh/metricdeck/internal/auth"
	"github.com/hugh/metricdeck/internal/database/models"
	"github.com/hugh/metricdeck/internal/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// stubEnqueuer records enqueued tasks instead of talking to Redis.
type stubEnqueuer struct {
	enqueued []*asynq.Task
}

func (s *stubEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	s.enqueued = append(s.enqueued, task)
	return &asynq.TaskInfo{}, nil
}

type testEnv struct {
	router   *api.Router
	db       *gorm.DB
	auth     *auth.Service
	links    *auth.MagicLinkService
	enqueuer *stubEnqueuer
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authService := auth.NewService(db, "rippling.com", time.Hour, bcrypt.MinCost)
	linkService := auth.NewMagicLinkService("test-secret", "http://localhost:8080", 15*time.Minute)
	enqueuer := &stubEnqueuer{}

	router := api.NewRouter(api.RouterConfig{
		DB:          db,
		Logger:      logger,
		AuthService: authService,
		LinkService: linkService,
		AsynqClient: enqueuer,
		SessionSecs: 3600,
	})

	return &testEnv{
		router:   router,
		db:       db,
		auth:     authService,
		links:    linkService,
		enqueuer: enqueuer,
	}
}

// login opens a session for the user and returns its cookie token.
func (e *testEnv) login(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := e.auth.CreateSession(context.Background(), user.ID)
	require.NoError(t, err)
	return token
}
