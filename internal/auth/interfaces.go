package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/metricdeck/internal/database/models"
)

// Authenticator defines the credential and session operations the HTTP layer
// depends on.
type Authenticator interface {
	ValidatePasscode(ctx context.Context, code string) (*models.User, error)
	CreateSession(ctx context.Context, userID uuid.UUID) (string, error)
	GetSession(ctx context.Context, token string) (*models.Session, error)
	DestroySession(ctx context.Context, token string) error
}

// LinkService defines magic-link issuance and redemption.
type LinkService interface {
	IssueToken(email string) (string, error)
	RedeemToken(tokenString string) (string, error)
	LoginURL(token string) string
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator = (*Service)(nil)
	_ LinkService   = (*MagicLinkService)(nil)
)
