package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/metricdeck/internal/database/models"
	"github.com/hugh/metricdeck/internal/query"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidConfig = errors.New("invalid dashboard config")

// RenderableWidget pairs a widget's declared configuration with its live
// rows. Notice carries a chart-validation message when the widget degraded
// to a table.
type RenderableWidget struct {
	Widget
	Rows   []query.Row `json:"data"`
	Notice string      `json:"notice,omitempty"`
}

type RenderableDashboard struct {
	Name          string             `json:"name"`
	Title         string             `json:"title,omitempty"`
	Description   string             `json:"description,omitempty"`
	Layout        Layout             `json:"layout"`
	Widgets       []RenderableWidget `json:"widgets"`
	LinkedQueries []string           `json:"linkedQueries,omitempty"`
}

// ReconcileStats summarizes one orphan-reconciliation pass.
type ReconcileStats struct {
	DashboardLinks  int `json:"dashboard_links"`
	ReportLinks     int `json:"report_links"`
	OrphansAttached int `json:"orphans_attached"`
}

type Composer struct {
	db      *gorm.DB
	queries *query.Service
	log     *slog.Logger
}

func NewComposer(db *gorm.DB, queries *query.Service, log *slog.Logger) *Composer {
	return &Composer{db: db, queries: queries, log: log}
}

func (c *Composer) Get(ctx context.Context, projectID uuid.UUID, name string) (*models.Dashboard, error) {
	var dash models.Dashboard
	err := c.db.WithContext(ctx).
		Where("project_id = ? AND name = ?", projectID, name).
		First(&dash).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading dashboard: %w", err)
	}
	return &dash, nil
}

func (c *Composer) ListForProject(ctx context.Context, projectID uuid.UUID) ([]models.Dashboard, error) {
	var dashboards []models.Dashboard
	err := c.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("name ASC").
		Find(&dashboards).Error
	if err != nil {
		return nil, fmt.Errorf("listing dashboards: %w", err)
	}
	return dashboards, nil
}

// Upsert creates or replaces a dashboard's config by (project, name). The
// config must parse; a full replacement is the unit of update.
func (c *Composer) Upsert(ctx context.Context, projectID uuid.UUID, name, config string) (*models.Dashboard, error) {
	if _, err := ParseConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	dash := models.Dashboard{
		ProjectID: projectID,
		Name:      name,
		Config:    config,
	}
	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "name"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"config": config}),
		}).
		Create(&dash).Error
	if err != nil {
		return nil, fmt.Errorf("upserting dashboard: %w", err)
	}

	return c.Get(ctx, projectID, name)
}

// Compose assembles the render-ready view of a dashboard: every non-hidden
// widget with its rows attached. Missing query data becomes an empty row
// sequence, never an error; a widget with no stored type gets one inferred
// from its data; a chart that fails validation degrades to a table with the
// message attached. Returns nil only when the dashboard itself does not
// exist. Reads are snapshot-at-read: a result written concurrently may or
// may not appear, and the next refresh picks it up.
func (c *Composer) Compose(ctx context.Context, projectID uuid.UUID, name string) (*RenderableDashboard, error) {
	dash, err := c.Get(ctx, projectID, name)
	if err != nil {
		return nil, err
	}
	if dash == nil {
		return nil, nil
	}

	cfg, err := ParseConfig(dash.Config)
	if err != nil {
		return nil, err
	}

	queries, err := c.queries.ListForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	rowsByName := make(map[string][]query.Row, len(queries))
	for i := range queries {
		rows, err := c.queries.ResultRows(&queries[i])
		if err != nil {
			// A corrupt stored payload degrades that query to no data.
			c.log.Warn("unreadable query result", "query", queries[i].Name, "error", err)
			rows = []query.Row{}
		}
		rowsByName[queries[i].Name] = rows
	}

	layout := cfg.Layout
	if layout == "" {
		layout = LayoutGrid
	}

	out := &RenderableDashboard{
		Name:        dash.Name,
		Title:       cfg.Title,
		Description: cfg.Description,
		Layout:      layout,
		Widgets:     make([]RenderableWidget, 0, len(cfg.Widgets)),
	}

	for _, w := range cfg.Widgets {
		if w.Hidden {
			continue
		}

		rows, ok := rowsByName[w.QueryName]
		if !ok {
			rows = []query.Row{}
		}

		rw := RenderableWidget{Widget: w, Rows: rows}

		if rw.Type == "" {
			inferred := InferWidget(rows)
			rw.Type = inferred.Type
			if rw.ValueKey == "" {
				rw.ValueKey = inferred.ValueKey
			}
			if rw.Columns == nil {
				rw.Columns = inferred.Columns
			}
		}

		if rw.Type == WidgetChart {
			if v := ValidateChartData(rows, rw.XKey, rw.YKey, rw.ChartType); !v.Valid {
				rw.Type = WidgetTable
				rw.Notice = v.Message
				if rw.Columns == nil {
					rw.Columns = query.Columns(rows)
				}
			}
		}

		out.Widgets = append(out.Widgets, rw)
	}

	linked, err := c.linkedQueryNames(ctx, dash.ID)
	if err != nil {
		return nil, err
	}
	out.LinkedQueries = linked

	return out, nil
}

func (c *Composer) linkedQueryNames(ctx context.Context, dashboardID uuid.UUID) ([]string, error) {
	var names []string
	err := c.db.WithContext(ctx).
		Model(&models.DashboardQuery{}).
		Joins("JOIN queries ON queries.id = dashboard_queries.query_id").
		Where("dashboard_queries.dashboard_id = ?", dashboardID).
		Order("queries.name ASC").
		Pluck("queries.name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("listing linked queries: %w", err)
	}
	return names, nil
}

// LinkQueryToDashboard records the junction. Linking an already-linked pair
// is a no-op; the returned bool reports whether a new link was created.
func (c *Composer) LinkQueryToDashboard(ctx context.Context, dashboardID, queryID uuid.UUID) (bool, error) {
	link := models.DashboardQuery{DashboardID: dashboardID, QueryID: queryID}
	res := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&link)
	if res.Error != nil {
		return false, fmt.Errorf("linking query to dashboard: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// LinkQueryToReport records the junction, idempotently.
func (c *Composer) LinkQueryToReport(ctx context.Context, reportID, queryID uuid.UUID) (bool, error) {
	link := models.ReportQuery{ReportID: reportID, QueryID: queryID}
	res := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&link)
	if res.Error != nil {
		return false, fmt.Errorf("linking query to report: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Reconcile attaches unlinked queries for one project. Widget references
// create dashboard links; queries named "report_*" or "report-*" go to the
// project's first report; anything still unlinked lands on the dashboard
// named "main" when one exists. This is a maintenance operation, not an
// invariant enforced on writes — ad-hoc queries are allowed to stay
// unlinked when there is nowhere to put them.
func (c *Composer) Reconcile(ctx context.Context, projectID uuid.UUID) (ReconcileStats, error) {
	var stats ReconcileStats

	var dashboards []models.Dashboard
	if err := c.db.WithContext(ctx).Where("project_id = ?", projectID).Find(&dashboards).Error; err != nil {
		return stats, fmt.Errorf("loading dashboards: %w", err)
	}

	queries, err := c.queries.ListForProject(ctx, projectID)
	if err != nil {
		return stats, err
	}
	queryByName := make(map[string]*models.Query, len(queries))
	for i := range queries {
		queryByName[queries[i].Name] = &queries[i]
	}

	var reports []models.Report
	if err := c.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at ASC").Find(&reports).Error; err != nil {
		return stats, fmt.Errorf("loading reports: %w", err)
	}

	linked := make(map[uuid.UUID]bool)

	// Widget references.
	for i := range dashboards {
		cfg, err := ParseConfig(dashboards[i].Config)
		if err != nil {
			c.log.Warn("skipping dashboard with unreadable config", "dashboard", dashboards[i].Name, "error", err)
			continue
		}
		for _, w := range cfg.Widgets {
			q, ok := queryByName[w.QueryName]
			if !ok {
				continue
			}
			created, err := c.LinkQueryToDashboard(ctx, dashboards[i].ID, q.ID)
			if err != nil {
				return stats, err
			}
			if created {
				stats.DashboardLinks++
			}
			linked[q.ID] = true
		}
	}

	// Report-prefixed queries attach to the project's first report.
	if len(reports) > 0 {
		first := reports[0]
		for i := range queries {
			name := queries[i].Name
			if !strings.HasPrefix(name, "report_") && !strings.HasPrefix(name, "report-") {
				continue
			}
			created, err := c.LinkQueryToReport(ctx, first.ID, queries[i].ID)
			if err != nil {
				return stats, err
			}
			if created {
				stats.ReportLinks++
			}
			linked[queries[i].ID] = true
		}
	}

	// Remaining orphans go to "main".
	var main *models.Dashboard
	for i := range dashboards {
		if dashboards[i].Name == "main" {
			main = &dashboards[i]
			break
		}
	}
	if main != nil {
		for i := range queries {
			if linked[queries[i].ID] {
				continue
			}
			created, err := c.LinkQueryToDashboard(ctx, main.ID, queries[i].ID)
			if err != nil {
				return stats, err
			}
			if created {
				stats.OrphansAttached++
			}
		}
	}

	return stats, nil
}
