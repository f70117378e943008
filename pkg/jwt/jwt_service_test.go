package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodgram/domain"
)

func TestUserTokenRoundTrip(t *testing.T) {
	svc := NewJWTService()

	token := svc.GenerateTokenUser(42)
	require.NotEmpty(t, token)

	userID, err := svc.GetUserIDByToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestUserTokenInvalid(t *testing.T) {
	svc := NewJWTService()

	_, err := svc.GetUserIDByToken("not-a-token")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	token := svc.GenerateTokenUser(42)
	_, err = svc.GetUserIDByToken(token + "tampered")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestResetPasswordTokenRoundTrip(t *testing.T) {
	svc := NewJWTService()

	token, err := svc.GenerateTokenResetPassword("julia@example.com", 15*time.Minute)
	require.NoError(t, err)

	email, err := svc.ValidateTokenResetPassword(token)
	require.NoError(t, err)
	assert.Equal(t, "julia@example.com", email)
}

func TestResetPasswordTokenExpired(t *testing.T) {
	svc := NewJWTService()

	token, err := svc.GenerateTokenResetPassword("julia@example.com", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateTokenResetPassword(token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestResetPasswordTokenIsNotAUserToken(t *testing.T) {
	svc := NewJWTService()

	token, err := svc.GenerateTokenResetPassword("julia@example.com", 15*time.Minute)
	require.NoError(t, err)

	// A reset token carries no user id claim and must not authenticate.
	_, err = svc.GetUserIDByToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}
