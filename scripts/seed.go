//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hugh/metricdeck/internal/auth"
	"github.com/hugh/metricdeck/internal/dashboard"
	"github.com/hugh/metricdeck/internal/database"
	"github.com/hugh/metricdeck/internal/project"
	"github.com/hugh/metricdeck/internal/query"
	"github.com/hugh/metricdeck/internal/report"
	"github.com/hugh/metricdeck/pkg/config"
	"github.com/hugh/metricdeck/pkg/util"
	"github.com/joho/godotenv"
)

// Seeds an example project with a dashboard, queries, stored results, and a
// cited report, then prints a passcode for the owner.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()

	authService := auth.NewService(db, cfg.Org.EmailDomain, cfg.Auth.SessionTTL(), cfg.Auth.PasscodeCost)
	projectService := project.NewService(db, authService)
	queryService := query.NewService(db)
	reportService := report.NewService(db)
	composer := dashboard.NewComposer(db, queryService, logger)

	email := os.Getenv("SEED_EMAIL")
	if email == "" {
		email = "owner@" + cfg.Org.EmailDomain
	}

	owner, err := authService.GetOrCreateUser(ctx, email, "Example Owner")
	if err != nil {
		log.Fatalf("failed to create owner: %v", err)
	}

	proj, err := projectService.CreateProject(ctx, owner.ID, "example-metrics", "Example Metrics", "Seeded demo project")
	if err != nil {
		if err == project.ErrSlugTaken {
			log.Fatalf("project example-metrics already exists; nothing to do")
		}
		log.Fatalf("failed to create project: %v", err)
	}

	// Queries with canned results so the dashboard renders without a
	// warehouse connection.
	signups, err := queryService.Upsert(ctx, proj.ID, "total_signups", "SELECT COUNT(*) AS count FROM signups", "")
	if err != nil {
		log.Fatalf("failed to create query: %v", err)
	}
	if _, err := queryService.SaveResult(ctx, signups.ID, []query.Row{{"count": float64(1248)}}, owner.ID); err != nil {
		log.Fatalf("failed to store result: %v", err)
	}

	trend, err := queryService.Upsert(ctx, proj.ID, "weekly_trend",
		"SELECT week, signups FROM weekly_signups ORDER BY week", "0 6 * * *")
	if err != nil {
		log.Fatalf("failed to create query: %v", err)
	}
	trendRows := []query.Row{
		{"week": "2026-W01", "signups": float64(210)},
		{"week": "2026-W02", "signups": float64(245)},
		{"week": "2026-W03", "signups": float64(312)},
		{"week": "2026-W04", "signups": float64(481)},
	}
	if _, err := queryService.SaveResult(ctx, trend.ID, trendRows, owner.ID); err != nil {
		log.Fatalf("failed to store result: %v", err)
	}

	dashConfig := `{
  "title": "Example Metrics",
  "layout": "grid",
  "widgets": [
    {"queryName": "total_signups", "type": "metric", "title": "Total signups", "valueKey": "count"},
    {"queryName": "weekly_trend", "type": "chart", "chartType": "line", "title": "Weekly signups", "xKey": "week", "yKey": "signups"}
  ]
}`
	if _, err := composer.Upsert(ctx, proj.ID, "main", dashConfig); err != nil {
		log.Fatalf("failed to create dashboard: %v", err)
	}

	reportContent := `# Signup growth

Signups accelerated through January [1].

[1]: weekly_trend
`
	if _, err := reportService.Upsert(ctx, proj.ID, "signup-growth", reportContent); err != nil {
		log.Fatalf("failed to create report: %v", err)
	}

	if _, err := composer.Reconcile(ctx, proj.ID); err != nil {
		log.Fatalf("failed to reconcile links: %v", err)
	}

	code, _, err := authService.CreatePasscode(ctx, owner.ID, "seed")
	if err != nil {
		log.Fatalf("failed to create passcode: %v", err)
	}

	fmt.Println("Seeded project example-metrics")
	fmt.Printf("Owner:    %s\n", owner.Email)
	fmt.Printf("Passcode: %s\n", code)
	fmt.Println("The passcode is not shown again.")
}
