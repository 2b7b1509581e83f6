package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hugh/metricdeck/internal/api/handlers"
	"github.com/hugh/metricdeck/internal/api/middleware"
	"github.com/hugh/metricdeck/internal/auth"
	"github.com/hugh/metricdeck/internal/dashboard"
	"github.com/hugh/metricdeck/internal/project"
	"github.com/hugh/metricdeck/internal/query"
	"github.com/hugh/metricdeck/internal/report"
	"github.com/hugh/metricdeck/internal/tasks"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	AuthService    *auth.Service
	LinkService    *auth.MagicLinkService
	AsynqClient    tasks.Enqueuer
	AllowedOrigins []string // CORS allowed origins
	RateLimitReqs  int      // Rate limit requests per window
	RateLimitSecs  int      // Rate limit window in seconds
	SessionSecs    int      // Session cookie lifetime in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	// CORS - restrict to configured origins, or allow localhost in development
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Session-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize services
	projectService := project.NewService(cfg.DB, cfg.AuthService)
	queryService := query.NewService(cfg.DB)
	reportService := report.NewService(cfg.DB)
	composer := dashboard.NewComposer(cfg.DB, queryService, cfg.Logger)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.LinkService, cfg.SessionSecs, cfg.Logger)
	passcodeHandler := handlers.NewPasscodeHandler(cfg.AuthService)
	projectHandler := handlers.NewProjectHandler(projectService)
	queryHandler := handlers.NewQueryHandler(projectService, queryService, cfg.AsynqClient)
	dashboardHandler := handlers.NewDashboardHandler(projectService, composer)
	reportHandler := handlers.NewReportHandler(projectService, reportService)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/auth/magic-link", authHandler.RequestMagicLink)
		r.Post("/auth/magic-link/redeem", authHandler.RedeemMagicLink)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.AuthService))

			r.Get("/me", authHandler.Me)

			// Passcode endpoints
			r.Route("/passcodes", func(r chi.Router) {
				r.Get("/", passcodeHandler.List)
				r.Post("/", passcodeHandler.Create)
				r.Delete("/{id}", passcodeHandler.Delete)
			})

			// Project endpoints
			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectHandler.List)
				r.Post("/", projectHandler.Create)

				r.Route("/{slug}", func(r chi.Router) {
					r.Get("/", projectHandler.Get)

					r.Route("/shares", func(r chi.Router) {
						r.Get("/", projectHandler.ListShares)
						r.Put("/", projectHandler.UpsertShare)
						r.Delete("/{shareID}", projectHandler.RemoveShare)
					})

					r.Route("/queries", func(r chi.Router) {
						r.Get("/", queryHandler.List)
						r.Get("/{name}", queryHandler.Get)
						r.Put("/{name}", queryHandler.Upsert)
						r.Post("/{name}/run", queryHandler.Run)
						r.Get("/{name}/result", queryHandler.Result)
					})

					r.Route("/dashboards", func(r chi.Router) {
						r.Get("/", dashboardHandler.List)
						r.Get("/{name}", dashboardHandler.Get)
						r.Patch("/{name}", dashboardHandler.Upsert)
						r.Put("/{name}", dashboardHandler.Upsert)
					})

					r.Route("/reports", func(r chi.Router) {
						r.Get("/", reportHandler.List)
						r.Get("/{name}", reportHandler.Get)
						r.Put("/{name}", reportHandler.Upsert)
					})
				})
			})
		})
	})

	return &Router{r}
}
