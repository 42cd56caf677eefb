package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smmwallet/internal/domain"
	"smmwallet/pkg/errors"
)

func TestAdminSet(t *testing.T) {
	admins := NewAdminSet("1001", " 1002 ", "")

	assert.Equal(t, 2, admins.Len())
	assert.True(t, admins.IsAuthorized("1001", ActionAdjustBalance))
	assert.True(t, admins.IsAuthorized("1002", ActionViewProviderBalance))
	assert.False(t, admins.IsAuthorized("2000", ActionAdjustBalance))
	assert.False(t, admins.IsAuthorized("", ActionAdjustBalance))

	var none *AdminSet
	assert.False(t, none.IsAuthorized("1001", ActionAdjustBalance))
}

func TestAuthorizerFunc(t *testing.T) {
	onlyReview := AuthorizerFunc(func(_ domain.AccountID, action Action) bool {
		return action == ActionReviewOrders
	})

	assert.True(t, onlyReview.IsAuthorized("x", ActionReviewOrders))
	assert.False(t, onlyReview.IsAuthorized("x", ActionAdjustBalance))
}

func TestTokenIssuer_Issue(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	issuer.now = func() time.Time { return fixed }

	resp, err := issuer.Issue("123456789")
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(time.Hour), resp.ExpiresAt)

	token, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (interface{}, error) {
		return []byte("s3cret"), nil
	}, jwt.WithTimeFunc(func() time.Time { return fixed }))
	require.NoError(t, err)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "123456789", claims["user_id"])
}

func TestTokenIssuer_EmptyAccount(t *testing.T) {
	_, err := NewTokenIssuer("s3cret", 0).Issue(" ")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}
