package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"smmwallet/internal/domain"
	"smmwallet/pkg/errors"
)

// TokenIssuer signs member tokens with the shared HMAC secret that
// middleware.AuthMiddleware verifies.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// TokenResponse is returned when a token is issued.
type TokenResponse struct {
	AccessToken string           `json:"access_token"`
	ExpiresAt   time.Time        `json:"expires_at"`
	Account     domain.AccountID `json:"account"`
}

func NewTokenIssuer(secret string, expiry time.Duration) *TokenIssuer {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), expiry: expiry, now: time.Now}
}

// Issue signs a token whose user_id claim is account.
func (t *TokenIssuer) Issue(account domain.AccountID) (*TokenResponse, error) {
	if strings.TrimSpace(account.String()) == "" {
		return nil, errors.ErrUnauthorized
	}
	now := t.now()
	expiresAt := now.Add(t.expiry)

	claims := jwt.MapClaims{
		"user_id": account.String(),
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &TokenResponse{
		AccessToken: signed,
		ExpiresAt:   expiresAt,
		Account:     account,
	}, nil
}
