package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/hugh/metricdeck/internal/auth"
	"github.com/hugh/metricdeck/internal/dashboard"
	"github.com/hugh/metricdeck/internal/database"
	"github.com/hugh/metricdeck/internal/query"
	"github.com/hugh/metricdeck/internal/tasks"
	"github.com/hugh/metricdeck/internal/warehouse"
	"github.com/hugh/metricdeck/pkg/config"
	"github.com/hugh/metricdeck/pkg/queue"
	"github.com/hugh/metricdeck/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting metricdeck worker")

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Warehouse connection for query runs
	runner, err := warehouse.NewSnowflake(&cfg.Snowflake, logger)
	if err != nil {
		logger.Error("failed to connect to warehouse", "error", err)
		os.Exit(1)
	}

	// Services
	authService := auth.NewService(db, cfg.Org.EmailDomain, cfg.Auth.SessionTTL(), cfg.Auth.PasscodeCost)
	queryService := query.NewService(db)
	composer := dashboard.NewComposer(db, queryService, logger)

	// Asynq client so the refresh tick can fan out query runs
	client := queue.NewClient(&cfg.Redis)

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, 10)

	// Create task handler
	handler := tasks.NewHandler(db, queryService, composer, authService, runner, client, logger)

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Periodic tasks: refresh tick every minute, session sweep and link
	// reconciliation hourly.
	scheduler := queue.NewScheduler(&cfg.Redis)
	if _, err := scheduler.Register("* * * * *", tasks.NewRefreshTickTask()); err != nil {
		logger.Error("failed to register refresh tick", "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.Register("0 * * * *", tasks.NewSessionSweepTask()); err != nil {
		logger.Error("failed to register session sweep", "error", err)
		os.Exit(1)
	}
	reconcileTask, err := tasks.NewLinkReconcileTask(tasks.LinkReconcilePayload{})
	if err != nil {
		logger.Error("failed to build reconcile task", "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.Register("30 * * * *", reconcileTask); err != nil {
		logger.Error("failed to register link reconcile", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	// Handle shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		scheduler.Shutdown()
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	// Start the server
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	<-ctx.Done()

	client.Close()
	runner.Close()

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
