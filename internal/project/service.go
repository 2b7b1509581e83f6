package project

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/hugh/metricdeck/internal/auth"
	"github.com/hugh/metricdeck/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrProjectNotFound   = errors.New("project not found")
	ErrSlugTaken         = errors.New("project slug already exists")
	ErrInvalidSlug       = errors.New("invalid project slug")
	ErrInvalidPermission = errors.New("permission must be VIEW, EDIT, or ADMIN")
	ErrOwnerShare        = errors.New("cannot share a project with its owner")
	ErrShareNotFound     = errors.New("share not found")
	ErrNotAllowed        = errors.New("insufficient permission")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type Service struct {
	db   *gorm.DB
	auth *auth.Service
}

func NewService(db *gorm.DB, authService *auth.Service) *Service {
	return &Service{db: db, auth: authService}
}

// CreateProject creates a project owned by ownerID. The slug is immutable
// once created; collisions are detected atomically on the unique index so
// two concurrent creates for the same slug cannot both succeed.
func (s *Service) CreateProject(ctx context.Context, ownerID uuid.UUID, slug, name, description string) (*models.Project, error) {
	if !slugPattern.MatchString(slug) {
		return nil, ErrInvalidSlug
	}

	proj := models.Project{
		Slug:        slug,
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(&proj)
	if res.Error != nil {
		return nil, fmt.Errorf("creating project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrSlugTaken
	}
	return &proj, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Project, error) {
	var proj models.Project
	err := s.db.WithContext(ctx).Preload("Owner").Where("slug = ?", slug).First(&proj).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &proj, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var proj models.Project
	err := s.db.WithContext(ctx).Preload("Owner").First(&proj, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &proj, nil
}

// ListForUser returns projects the user owns or holds any share on.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	err := s.db.WithContext(ctx).
		Distinct("projects.*").
		Joins("LEFT JOIN project_shares ON project_shares.project_id = projects.id").
		Where("projects.owner_id = ? OR project_shares.user_id = ?", userID, userID).
		Order("projects.created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// sharePermission returns the user's share level on the project, or "" when
// no share exists. Permission is recomputed from the store on every call so
// revocation takes effect immediately.
func (s *Service) sharePermission(ctx context.Context, userID, projectID uuid.UUID) (models.Permission, error) {
	var share models.ProjectShare
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&share).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return share.Permission, nil
}

// CanView reports whether the user owns the project or holds any share on it.
func (s *Service) CanView(ctx context.Context, userID, projectID uuid.UUID) (bool, error) {
	proj, err := s.GetByID(ctx, projectID)
	if err != nil {
		return false, err
	}
	if proj.OwnerID == userID {
		return true, nil
	}
	perm, err := s.sharePermission(ctx, userID, projectID)
	if err != nil {
		return false, err
	}
	return perm.Valid(), nil
}

// CanEdit reports whether the user owns the project or holds an EDIT or
// ADMIN share.
func (s *Service) CanEdit(ctx context.Context, userID, projectID uuid.UUID) (bool, error) {
	proj, err := s.GetByID(ctx, projectID)
	if err != nil {
		return false, err
	}
	if proj.OwnerID == userID {
		return true, nil
	}
	perm, err := s.sharePermission(ctx, userID, projectID)
	if err != nil {
		return false, err
	}
	return perm == models.PermissionEdit || perm == models.PermissionAdmin, nil
}

// CanAdmin reports whether the user owns the project or holds an ADMIN
// share. Share management requires it.
func (s *Service) CanAdmin(ctx context.Context, userID, projectID uuid.UUID) (bool, error) {
	proj, err := s.GetByID(ctx, projectID)
	if err != nil {
		return false, err
	}
	if proj.OwnerID == userID {
		return true, nil
	}
	perm, err := s.sharePermission(ctx, userID, projectID)
	if err != nil {
		return false, err
	}
	return perm == models.PermissionAdmin, nil
}

func (s *Service) ListShares(ctx context.Context, projectID uuid.UUID) ([]models.ProjectShare, error) {
	var shares []models.ProjectShare
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&shares).Error
	if err != nil {
		return nil, fmt.Errorf("listing shares: %w", err)
	}
	return shares, nil
}

// UpsertShare grants or updates targetEmail's permission on the project.
// The actor must hold ADMIN. The target user is created on first share (they
// verify when they first log in), must match the org email domain, and must
// not be the owner. A second upsert for the same pair overwrites the
// permission in place.
func (s *Service) UpsertShare(ctx context.Context, actorID, projectID uuid.UUID, targetEmail string, perm models.Permission) (*models.ProjectShare, error) {
	if !perm.Valid() {
		return nil, ErrInvalidPermission
	}

	ok, err := s.CanAdmin(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAllowed
	}

	target, err := s.auth.GetOrCreateUser(ctx, targetEmail, "")
	if err != nil {
		return nil, err
	}

	proj, err := s.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if target.ID == proj.OwnerID {
		return nil, ErrOwnerShare
	}

	share := models.ProjectShare{
		ProjectID:  projectID,
		UserID:     target.ID,
		Permission: perm,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"permission": perm}),
		}).
		Create(&share).Error
	if err != nil {
		return nil, fmt.Errorf("upserting share: %w", err)
	}

	// Load the canonical row; on conflict the insert's ID is not the stored one.
	var out models.ProjectShare
	err = s.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ? AND user_id = ?", projectID, target.ID).
		First(&out).Error
	if err != nil {
		return nil, fmt.Errorf("loading share: %w", err)
	}
	return &out, nil
}

// RemoveShare revokes a share. The actor must hold ADMIN on the project.
func (s *Service) RemoveShare(ctx context.Context, actorID, projectID, shareID uuid.UUID) error {
	ok, err := s.CanAdmin(ctx, actorID, projectID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAllowed
	}

	res := s.db.WithContext(ctx).
		Where("id = ? AND project_id = ?", shareID, projectID).
		Delete(&models.ProjectShare{})
	if res.Error != nil {
		return fmt.Errorf("removing share: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrShareNotFound
	}
	return nil
}
