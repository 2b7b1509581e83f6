package validation

import (
	"regexp"
)

var (
	// emailRegex validates email format
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// slugRegex validates project slugs: lowercase alphanumeric groups joined
	// by single hyphens
	slugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

	// uuidRegex validates UUID format
	uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	// nameRegex validates query, dashboard, and report names as used in URLs
	// and citation markers
	nameRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// IsValidSlug checks if the string is a valid project slug
func IsValidSlug(slug string) bool {
	if len(slug) > 64 {
		return false
	}
	return slugRegex.MatchString(slug)
}

// IsValidUUID checks if the string is a valid UUID format
func IsValidUUID(id string) bool {
	return uuidRegex.MatchString(id)
}

// IsValidPermission checks if the string is a recognized share level
func IsValidPermission(perm string) bool {
	return perm == "VIEW" || perm == "EDIT" || perm == "ADMIN"
}

// IsValidResourceName checks if the string can serve as a query, dashboard,
// or report name
func IsValidResourceName(name string) bool {
	if len(name) > 128 {
		return false
	}
	return nameRegex.MatchString(name)
}
