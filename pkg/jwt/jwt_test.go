package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "portfolio_chat/pkg/errors"
)

const secret = "test-secret"

func TestGenerateAndValidate(t *testing.T) {
	token, err := GenerateAccessToken("user-1", "a@example.com", "user", secret, time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(token, secret, DefaultLeeway)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("user-1", "", "", secret, time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, "other", DefaultLeeway)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestValidateToken_ExpiredWithinLeeway(t *testing.T) {
	token, err := GenerateAccessToken("user-1", "", "", secret, -10*time.Second)
	require.NoError(t, err)

	claims, err := ValidateToken(token, secret, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestValidateToken_ExpiredBeyondLeeway(t *testing.T) {
	token, err := GenerateAccessToken("user-1", "", "", secret, -2*time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, secret, 30*time.Second)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestValidateToken_SubjectFallback(t *testing.T) {
	claims := gojwt.RegisteredClaims{
		Subject:   "legacy-user",
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	parsed, err := ValidateToken(token, secret, DefaultLeeway)
	require.NoError(t, err)
	assert.Equal(t, "legacy-user", parsed.UserID)
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := ValidateToken("not-a-token", secret, DefaultLeeway)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}
