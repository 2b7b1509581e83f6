package models

import (
	"time"

	"github.com/google/uuid"
)

// Query is a named SQL statement scoped to a project. Names are
// case-sensitive and unique per project.
type Query struct {
	Base
	ProjectID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_query_project_name;not null" json:"project_id"`
	Name      string    `gorm:"uniqueIndex:idx_query_project_name;not null" json:"name"`
	SQL       string    `gorm:"column:sql;not null" json:"sql"`

	// Optional cron schedule; when set the worker re-runs the query on a timer.
	RefreshCron   string     `json:"refresh_cron"`
	NextRefreshAt *time.Time `gorm:"index" json:"next_refresh_at"`

	Project    *Project         `gorm:"foreignKey:ProjectID" json:"-"`
	Result     *QueryResult     `gorm:"foreignKey:QueryID" json:"result,omitempty"`
	Dashboards []DashboardQuery `gorm:"foreignKey:QueryID" json:"-"`
	Reports    []ReportQuery    `gorm:"foreignKey:QueryID" json:"-"`
}

func (Query) TableName() string {
	return "queries"
}

// QueryResult is the latest execution of its query, overwritten in place.
// Rows is the raw JSON payload as returned by the warehouse run; consumers
// normalize it through query.NormalizeRows before use.
type QueryResult struct {
	Base
	QueryID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"query_id"`
	Rows       string    `gorm:"type:text;not null" json:"-"`
	RowCount   int       `json:"row_count"`
	ExecutedAt time.Time `gorm:"not null" json:"executed_at"`
	ExecutedBy uuid.UUID `gorm:"type:uuid" json:"executed_by"`

	Query *Query `gorm:"foreignKey:QueryID" json:"-"`
}

func (QueryResult) TableName() string {
	return "query_results"
}

// DashboardQuery and ReportQuery are bare many-to-many junctions. Linking an
// already-linked pair is a no-op.
type DashboardQuery struct {
	DashboardID uuid.UUID `gorm:"type:uuid;primaryKey" json:"dashboard_id"`
	QueryID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"query_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func (DashboardQuery) TableName() string {
	return "dashboard_queries"
}

type ReportQuery struct {
	ReportID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"report_id"`
	QueryID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"query_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (ReportQuery) TableName() string {
	return "report_queries"
}
