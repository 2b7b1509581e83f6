package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"casey@rippling.com", true},
		{"first.last+tag@sub.example.org", true},
		{"UPPER@EXAMPLE.COM", true},
		{"no-at-sign", false},
		{"@example.com", false},
		{"user@", false},
		{"user@example", false},
		{"", false},
		{strings.Repeat("a", 250) + "@example.com", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, IsValidEmail(tt.email), "email %q", tt.email)
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		slug  string
		valid bool
	}{
		{"growth", true},
		{"growth-metrics", true},
		{"a1-b2-c3", true},
		{"Growth", false},
		{"has space", false},
		{"-leading", false},
		{"trailing-", false},
		{"double--dash", false},
		{"", false},
		{strings.Repeat("a", 65), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, IsValidSlug(tt.slug), "slug %q", tt.slug)
	}
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"))
	assert.True(t, IsValidUUID("9B1DEB4D-3B7D-4BAD-9BDD-2B0D7B3DCB6D"))
	assert.False(t, IsValidUUID("9b1deb4d3b7d4bad9bdd2b0d7b3dcb6d"))
	assert.False(t, IsValidUUID("not-a-uuid"))
	assert.False(t, IsValidUUID(""))
}

func TestIsValidPermission(t *testing.T) {
	for _, p := range []string{"VIEW", "EDIT", "ADMIN"} {
		assert.True(t, IsValidPermission(p), p)
	}
	for _, p := range []string{"view", "OWNER", "WRITE", ""} {
		assert.False(t, IsValidPermission(p), p)
	}
}

func TestIsValidResourceName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"total_signups", true},
		{"weekly-trend", true},
		{"report.v2", true},
		{"Main", true},
		{"has space", false},
		{"slash/name", false},
		{"", false},
		{strings.Repeat("x", 129), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, IsValidResourceName(tt.name), "name %q", tt.name)
	}
}
