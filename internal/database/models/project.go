package models

import "github.com/google/uuid"

type Project struct {
	Base
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	OwnerID     uuid.UUID `gorm:"type:uuid;index;not null" json:"owner_id"`

	Owner      *User          `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Shares     []ProjectShare `gorm:"foreignKey:ProjectID" json:"-"`
	Queries    []Query        `gorm:"foreignKey:ProjectID" json:"-"`
	Dashboards []Dashboard    `gorm:"foreignKey:ProjectID" json:"-"`
	Reports    []Report       `gorm:"foreignKey:ProjectID" json:"-"`
}

func (Project) TableName() string {
	return "projects"
}

// Permission is the closed set of share levels. Anything else is a
// validation failure, never a silent default.
type Permission string

const (
	PermissionView  Permission = "VIEW"
	PermissionEdit  Permission = "EDIT"
	PermissionAdmin Permission = "ADMIN"
)

func (p Permission) Valid() bool {
	switch p {
	case PermissionView, PermissionEdit, PermissionAdmin:
		return true
	}
	return false
}

// ProjectShare grants a non-owner a permission level on a project.
// Unique per (project, user); upserting overwrites the permission.
type ProjectShare struct {
	Base
	ProjectID  uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_share_project_user;not null" json:"project_id"`
	UserID     uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_share_project_user;not null" json:"user_id"`
	Permission Permission `gorm:"not null" json:"permission"`

	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Project *Project `gorm:"foreignKey:ProjectID" json:"-"`
}

func (ProjectShare) TableName() string {
	return "project_shares"
}
