package models

import "github.com/google/uuid"

// Dashboard stores its widget layout as a JSON config blob; the typed view
// of that blob lives in the dashboard package.
type Dashboard struct {
	Base
	ProjectID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_dashboard_project_name;not null" json:"project_id"`
	Name      string    `gorm:"uniqueIndex:idx_dashboard_project_name;not null" json:"name"`
	Config    string    `gorm:"type:text;not null" json:"config"`

	Project *Project         `gorm:"foreignKey:ProjectID" json:"-"`
	Queries []DashboardQuery `gorm:"foreignKey:DashboardID" json:"-"`
}

func (Dashboard) TableName() string {
	return "dashboards"
}
