package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hugh/metricdeck/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrReportNotFound = errors.New("report not found")

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) GetByName(ctx context.Context, projectID uuid.UUID, name string) (*models.Report, error) {
	var rep models.Report
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND name = ?", projectID, name).
		First(&rep).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return &rep, nil
}

func (s *Service) ListForProject(ctx context.Context, projectID uuid.UUID) ([]models.Report, error) {
	var reports []models.Report
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	return reports, nil
}

// Upsert creates or replaces a report's markdown by (project, name).
func (s *Service) Upsert(ctx context.Context, projectID uuid.UUID, name, content string) (*models.Report, error) {
	rep := models.Report{
		ProjectID: projectID,
		Name:      name,
		Content:   content,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "name"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"content": content}),
		}).
		Create(&rep).Error
	if err != nil {
		return nil, fmt.Errorf("upserting report: %w", err)
	}

	return s.GetByName(ctx, projectID, name)
}
