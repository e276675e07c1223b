package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	id := uuid.New()
	token, err := GenerateAccessToken(id, "ayse@example.com", "Ayşe", "operator", testSecret, "realty-chat", time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, id, claims.OperatorID)
	assert.Equal(t, "Ayşe", claims.DisplayName)
	assert.Equal(t, "operator", claims.Role)
	assert.Equal(t, "realty-chat", claims.Issuer)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := GenerateAccessToken(uuid.New(), "a@b.c", "A", "operator", testSecret, "x", time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, "other-secret")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestValidateToken_Expired(t *testing.T) {
	token, err := GenerateAccessToken(uuid.New(), "a@b.c", "A", "operator", testSecret, "x", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, testSecret)
	assert.True(t, errors.Is(err, ErrTokenExpired))
}

func TestValidateToken_RejectsRefreshToken(t *testing.T) {
	refresh, err := GenerateRefreshToken(uuid.New(), testSecret, "x", time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(refresh, testSecret)
	assert.Error(t, err)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	id := uuid.New()
	refresh, err := GenerateRefreshToken(id, testSecret, "x", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateRefreshToken(refresh, testSecret)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
}
