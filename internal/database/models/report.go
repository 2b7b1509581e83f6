package models

import "github.com/google/uuid"

// Report is free markdown. Lines of the form "[N]: query_name" are citation
// markers resolved at read time by the report package.
type Report struct {
	Base
	ProjectID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_report_project_name;not null" json:"project_id"`
	Name      string    `gorm:"uniqueIndex:idx_report_project_name;not null" json:"name"`
	Content   string    `gorm:"type:text;not null" json:"content"`

	Project *Project      `gorm:"foreignKey:ProjectID" json:"-"`
	Queries []ReportQuery `gorm:"foreignKey:ReportID" json:"-"`
}

func (Report) TableName() string {
	return "reports"
}
