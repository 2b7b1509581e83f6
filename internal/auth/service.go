package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/metricdeck/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidPasscode  = errors.New("invalid passcode")
	ErrWrongEmailDomain = errors.New("email does not match the organization domain")
	ErrPasscodeNotFound = errors.New("passcode not found")
	ErrNotAuthorized    = errors.New("not authorized")
	ErrUserNotFound     = errors.New("user not found")
)

const sessionTokenLength = 64

const sessionTokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type Service struct {
	db           *gorm.DB
	emailDomain  string
	sessionTTL   time.Duration
	passcodeCost int
}

func NewService(db *gorm.DB, emailDomain string, sessionTTL time.Duration, passcodeCost int) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 30 * 24 * time.Hour
	}
	return &Service{
		db:           db,
		emailDomain:  emailDomain,
		sessionTTL:   sessionTTL,
		passcodeCost: passcodeCost,
	}
}

// CheckEmailDomain rejects emails outside the organization before any store
// access. Every identity-producing operation goes through it.
func (s *Service) CheckEmailDomain(email string) error {
	if !strings.HasSuffix(email, "@"+s.emailDomain) {
		return ErrWrongEmailDomain
	}
	return nil
}

// GetOrCreateUser finds a user by email, creating one on first contact.
// Concurrent identical calls are safe: creation is insert-or-ignore on the
// unique email key.
func (s *Service) GetOrCreateUser(ctx context.Context, email, name string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if err := s.CheckEmailDomain(email); err != nil {
		return nil, err
	}

	user := models.User{Email: email, Name: name}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&user).Error
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	// Re-read: on conflict the insert returned no row.
	var out models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&out).Error; err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return &out, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// PromoteToAdmin grants the user the admin flag. Operator tooling only; there
// is no API surface for it.
func (s *Service) PromoteToAdmin(ctx context.Context, userID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("is_admin", true)
	if res.Error != nil {
		return fmt.Errorf("promoting user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CreatePasscode issues a new passcode for the user and returns the plaintext
// exactly once. Only the bcrypt hash and the 4-character hint are persisted.
func (s *Service) CreatePasscode(ctx context.Context, userID uuid.UUID, name string) (string, *models.Passcode, error) {
	code, err := GeneratePasscode()
	if err != nil {
		return "", nil, err
	}

	hash, err := HashPasscode(code, s.passcodeCost)
	if err != nil {
		return "", nil, err
	}

	passcode := models.Passcode{
		UserID:   userID,
		CodeHash: hash,
		CodeHint: PasscodeHint(code),
		Name:     name,
	}
	if err := s.db.WithContext(ctx).Create(&passcode).Error; err != nil {
		return "", nil, fmt.Errorf("saving passcode: %w", err)
	}

	return code, &passcode, nil
}

// ValidatePasscode checks a candidate against every stored passcode hash and
// returns the owning user on the first match, updating that passcode's
// last-used timestamp. A one-way hash cannot be indexed, so this is a linear
// scan; each comparison is independent and the scan short-circuits on match.
// Acceptable at current user-base scale.
func (s *Service) ValidatePasscode(ctx context.Context, code string) (*models.User, error) {
	clean := NormalizePasscode(code)
	if len(clean) != passcodeLength {
		// Malformed input never reaches the store.
		return nil, ErrInvalidPasscode
	}

	var passcodes []models.Passcode
	if err := s.db.WithContext(ctx).Find(&passcodes).Error; err != nil {
		return nil, fmt.Errorf("loading passcodes: %w", err)
	}

	for i := range passcodes {
		if !VerifyPasscode(clean, passcodes[i].CodeHash) {
			continue
		}

		now := time.Now()
		if err := s.db.WithContext(ctx).Model(&passcodes[i]).Update("last_used_at", now).Error; err != nil {
			return nil, fmt.Errorf("updating passcode last use: %w", err)
		}

		var user models.User
		if err := s.db.WithContext(ctx).First(&user, "id = ?", passcodes[i].UserID).Error; err != nil {
			return nil, fmt.Errorf("loading passcode owner: %w", err)
		}
		return &user, nil
	}

	return nil, ErrInvalidPasscode
}

func (s *Service) ListPasscodes(ctx context.Context, userID uuid.UUID) ([]models.Passcode, error) {
	var passcodes []models.Passcode
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&passcodes).Error
	if err != nil {
		return nil, fmt.Errorf("listing passcodes: %w", err)
	}
	return passcodes, nil
}

// DeletePasscode removes a passcode. The actor must own it or be an admin;
// attempts on foreign passcodes are an authorization failure, distinct from
// not-found.
func (s *Service) DeletePasscode(ctx context.Context, actor *models.User, passcodeID uuid.UUID) error {
	var passcode models.Passcode
	if err := s.db.WithContext(ctx).First(&passcode, "id = ?", passcodeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPasscodeNotFound
		}
		return err
	}

	if passcode.UserID != actor.ID && !actor.IsAdmin {
		return ErrNotAuthorized
	}

	return s.db.WithContext(ctx).Delete(&models.Passcode{}, "id = ?", passcodeID).Error
}

// CreateSession opens a session for the user and returns the opaque token
// for cookie assignment.
func (s *Service) CreateSession(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", err
	}

	session := models.Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}

	return token, nil
}

// GetSession resolves a token to a live session, or nil when the token is
// unknown or expired. Expired sessions are deleted on detection; the delete
// is idempotent so concurrent requests for the same token are safe.
func (s *Service) GetSession(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}

	var session models.Session
	err := s.db.WithContext(ctx).Preload("User").Where("token = ?", token).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}

	if session.Expired(time.Now()) {
		if err := s.DestroySession(ctx, token); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return &session, nil
}

// DestroySession deletes the session for the token. Absence is not an error.
func (s *Service) DestroySession(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error
}

// SweepExpiredSessions removes every expired session. The read path already
// expires lazily; the worker runs this periodically to bound storage growth.
func (s *Service) SweepExpiredSessions(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", time.Now()).Delete(&models.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("sweeping sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func generateSessionToken() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(sessionTokenAlphabet)))

	for i := 0; i < sessionTokenLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generating session token: %w", err)
		}
		b.WriteByte(sessionTokenAlphabet[n.Int64()])
	}

	return b.String(), nil
}
