package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/metricdeck/internal/database/models"
	"github.com/hugh/metricdeck/pkg/util"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrQueryNotFound = errors.New("query not found")

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Upsert creates or updates a query by (project, name). Re-saving replaces
// the SQL and refresh schedule; the name is the stable identifier.
func (s *Service) Upsert(ctx context.Context, projectID uuid.UUID, name, sqlText, refreshCron string) (*models.Query, error) {
	var nextRefresh *time.Time
	if refreshCron != "" {
		next, err := util.NextRefreshTime(refreshCron, time.Now())
		if err != nil {
			return nil, err
		}
		nextRefresh = &next
	}

	q := models.Query{
		ProjectID:     projectID,
		Name:          name,
		SQL:           sqlText,
		RefreshCron:   refreshCron,
		NextRefreshAt: nextRefresh,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "project_id"}, {Name: "name"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"sql":             sqlText,
				"refresh_cron":    refreshCron,
				"next_refresh_at": nextRefresh,
			}),
		}).
		Create(&q).Error
	if err != nil {
		return nil, fmt.Errorf("upserting query: %w", err)
	}

	return s.GetByName(ctx, projectID, name)
}

func (s *Service) GetByName(ctx context.Context, projectID uuid.UUID, name string) (*models.Query, error) {
	var q models.Query
	err := s.db.WithContext(ctx).
		Preload("Result").
		Where("project_id = ? AND name = ?", projectID, name).
		First(&q).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQueryNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Query, error) {
	var q models.Query
	err := s.db.WithContext(ctx).Preload("Result").First(&q, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQueryNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (s *Service) ListForProject(ctx context.Context, projectID uuid.UUID) ([]models.Query, error) {
	var queries []models.Query
	err := s.db.WithContext(ctx).
		Preload("Result").
		Where("project_id = ?", projectID).
		Order("name ASC").
		Find(&queries).Error
	if err != nil {
		return nil, fmt.Errorf("listing queries: %w", err)
	}
	return queries, nil
}

// SaveResult overwrites the query's result in place; the latest execution
// wins and no history is retained. The write is a single insert-or-update on
// the query_id unique key, so concurrent executions cannot duplicate rows.
func (s *Service) SaveResult(ctx context.Context, queryID uuid.UUID, rows []Row, executedBy uuid.UUID) (*models.QueryResult, error) {
	payload, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encoding result rows: %w", err)
	}

	now := time.Now()
	result := models.QueryResult{
		QueryID:    queryID,
		Rows:       string(payload),
		RowCount:   len(rows),
		ExecutedAt: now,
		ExecutedBy: executedBy,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "query_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"rows":        string(payload),
				"row_count":   len(rows),
				"executed_at": now,
				"executed_by": executedBy,
			}),
		}).
		Create(&result).Error
	if err != nil {
		return nil, fmt.Errorf("saving query result: %w", err)
	}

	return &result, nil
}

// ResultRows returns the query's stored rows in canonical form, or an empty
// sequence when the query has never been run.
func (s *Service) ResultRows(q *models.Query) ([]Row, error) {
	if q.Result == nil {
		return []Row{}, nil
	}
	return NormalizeRows([]byte(q.Result.Rows))
}

// DueForRefresh returns queries whose refresh schedule has come due.
func (s *Service) DueForRefresh(ctx context.Context, now time.Time) ([]models.Query, error) {
	var queries []models.Query
	err := s.db.WithContext(ctx).
		Where("refresh_cron <> '' AND next_refresh_at IS NOT NULL AND next_refresh_at <= ?", now).
		Find(&queries).Error
	if err != nil {
		return nil, fmt.Errorf("listing due queries: %w", err)
	}
	return queries, nil
}

// ScheduleNextRefresh advances the query's next refresh time past now.
func (s *Service) ScheduleNextRefresh(ctx context.Context, q *models.Query, now time.Time) error {
	if q.RefreshCron == "" {
		return nil
	}
	next, err := util.NextRefreshTime(q.RefreshCron, now)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(q).Update("next_refresh_at", next).Error
}
