package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/metricdeck/internal/auth"
	"github.com/hugh/metricdeck/internal/dashboard"
	"github.com/hugh/metricdeck/internal/database/models"
	"github.com/hugh/metricdeck/internal/query"
	"github.com/hugh/metricdeck/internal/warehouse"
	"gorm.io/gorm"
)

// Enqueuer is the slice of the asynq client the handlers need; the refresh
// tick fans out into query-run tasks through it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Handler struct {
	db       *gorm.DB
	queries  *query.Service
	composer *dashboard.Composer
	auth     *auth.Service
	runner   warehouse.Runner
	client   Enqueuer
	log      *slog.Logger
}

func NewHandler(db *gorm.DB, queries *query.Service, composer *dashboard.Composer, authService *auth.Service, runner warehouse.Runner, client Enqueuer, log *slog.Logger) *Handler {
	return &Handler{
		db:       db,
		queries:  queries,
		composer: composer,
		auth:     authService,
		runner:   runner,
		client:   client,
		log:      log,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeQueryRun, h.HandleQueryRun)
	mux.HandleFunc(TypeLinkReconcile, h.HandleLinkReconcile)
	mux.HandleFunc(TypeSessionSweep, h.HandleSessionSweep)
	mux.HandleFunc(TypeRefreshTick, h.HandleRefreshTick)
}

// HandleQueryRun executes the query against the warehouse and overwrites its
// stored result. A failed warehouse run returns the error so asynq retries.
func (h *Handler) HandleQueryRun(ctx context.Context, t *asynq.Task) error {
	var payload QueryRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decoding query run payload: %w", err)
	}

	q, err := h.queries.GetByID(ctx, payload.QueryID)
	if err != nil {
		return err
	}

	rows, err := h.runner.Run(ctx, q.SQL)
	if err != nil {
		return fmt.Errorf("running query %s: %w", q.Name, err)
	}

	if _, err := h.queries.SaveResult(ctx, q.ID, rows, payload.RequestedBy); err != nil {
		return err
	}

	h.log.Info("query executed", "query", q.Name, "rows", len(rows))
	return nil
}

// HandleLinkReconcile runs the orphan-link maintenance pass.
func (h *Handler) HandleLinkReconcile(ctx context.Context, t *asynq.Task) error {
	var payload LinkReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decoding reconcile payload: %w", err)
	}

	projectIDs := []uuid.UUID{payload.ProjectID}
	if payload.ProjectID == uuid.Nil {
		var projects []models.Project
		if err := h.db.WithContext(ctx).Select("id").Find(&projects).Error; err != nil {
			return fmt.Errorf("listing projects: %w", err)
		}
		projectIDs = projectIDs[:0]
		for _, p := range projects {
			projectIDs = append(projectIDs, p.ID)
		}
	}

	for _, id := range projectIDs {
		stats, err := h.composer.Reconcile(ctx, id)
		if err != nil {
			return err
		}
		h.log.Info("reconciled query links",
			"project_id", id,
			"dashboard_links", stats.DashboardLinks,
			"report_links", stats.ReportLinks,
			"orphans_attached", stats.OrphansAttached,
		)
	}
	return nil
}

// HandleSessionSweep deletes expired sessions in bulk. The read path expires
// lazily; this bounds table growth.
func (h *Handler) HandleSessionSweep(ctx context.Context, t *asynq.Task) error {
	n, err := h.auth.SweepExpiredSessions(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		h.log.Info("swept expired sessions", "count", n)
	}
	return nil
}

// HandleRefreshTick enqueues a run for every query whose refresh schedule is
// due, then advances the schedule so the next tick does not re-enqueue it.
func (h *Handler) HandleRefreshTick(ctx context.Context, t *asynq.Task) error {
	now := time.Now()
	due, err := h.queries.DueForRefresh(ctx, now)
	if err != nil {
		return err
	}

	for i := range due {
		task, err := NewQueryRunTask(QueryRunPayload{QueryID: due[i].ID})
		if err != nil {
			return err
		}
		if _, err := h.client.EnqueueContext(ctx, task, asynq.Queue("low")); err != nil {
			return fmt.Errorf("enqueuing refresh for %s: %w", due[i].Name, err)
		}
		if err := h.queries.ScheduleNextRefresh(ctx, &due[i], now); err != nil {
			return err
		}
	}

	if len(due) > 0 {
		h.log.Info("enqueued scheduled refreshes", "count", len(due))
	}
	return nil
}
