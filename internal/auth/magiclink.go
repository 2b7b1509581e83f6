package auth

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidLinkToken = errors.New("invalid magic link token")
	ErrExpiredLinkToken = errors.New("magic link has expired")
)

type linkClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// MagicLinkService issues short-lived signed tokens that log a user in from
// an emailed link, as an alternative to typing a passcode.
type MagicLinkService struct {
	secret []byte
	ttl    time.Duration
	appURL string
}

func NewMagicLinkService(secret, appURL string, ttl time.Duration) *MagicLinkService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &MagicLinkService{
		secret: []byte(secret),
		ttl:    ttl,
		appURL: appURL,
	}
}

func (s *MagicLinkService) IssueToken(email string) (string, error) {
	now := time.Now()
	claims := linkClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "metricdeck",
			Subject:   email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// LoginURL builds the link to embed in the email.
func (s *MagicLinkService) LoginURL(token string) string {
	return fmt.Sprintf("%s/login?token=%s", s.appURL, url.QueryEscape(token))
}

// RedeemToken validates the token and returns the email it was issued for.
func (s *MagicLinkService) RedeemToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &linkClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidLinkToken
		}
		return s.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredLinkToken
		}
		return "", ErrInvalidLinkToken
	}

	claims, ok := token.Claims.(*linkClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidLinkToken
	}

	return claims.Email, nil
}
