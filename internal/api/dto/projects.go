package dto

import (
	"encoding/json"

	"github.com/hugh/metricdeck/internal/api/validation"
)

type CreateProjectRequest struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (r CreateProjectRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Slug == "" {
		errors["slug"] = "Slug is required"
	} else if !validation.IsValidSlug(r.Slug) {
		errors["slug"] = "Slug must be lowercase letters, digits, and hyphens"
	}
	if r.Name == "" {
		errors["name"] = "Name is required"
	}

	return errors
}

type ShareRequest struct {
	Email      string `json:"email"`
	Permission string `json:"permission"`
}

func (r ShareRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(r.Email) {
		errors["email"] = "Email is not valid"
	}
	if r.Permission == "" {
		errors["permission"] = "Permission is required"
	} else if !validation.IsValidPermission(r.Permission) {
		errors["permission"] = "Permission must be VIEW, EDIT, or ADMIN"
	}

	return errors
}

type UpsertQueryRequest struct {
	SQL         string `json:"sql"`
	RefreshCron string `json:"refresh_cron,omitempty"`
}

func (r UpsertQueryRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.SQL == "" {
		errors["sql"] = "SQL is required"
	}

	return errors
}

type UpsertDashboardRequest struct {
	Config json.RawMessage `json:"config"`
}

func (r UpsertDashboardRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if len(r.Config) == 0 {
		errors["config"] = "Config is required"
	}

	return errors
}

type UpsertReportRequest struct {
	Content string `json:"content"`
}

func (r UpsertReportRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Content == "" {
		errors["content"] = "Content is required"
	}

	return errors
}
