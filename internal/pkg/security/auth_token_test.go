package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthTokenRoundTrip(t *testing.T) {
	token, err := GenerateAuthToken(42, "secret", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := VerifyAuthToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestAuthTokenWrongSecret(t *testing.T) {
	token, err := GenerateAuthToken(42, "secret", time.Hour)
	require.NoError(t, err)

	_, err = VerifyAuthToken(token, "other-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthTokenExpired(t *testing.T) {
	token, err := GenerateAuthToken(42, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = VerifyAuthToken(token, "secret")
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestAuthTokenGarbage(t *testing.T) {
	_, err := VerifyAuthToken("not.a.token", "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = VerifyAuthToken("", "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateAuthTokenRequiresSecret(t *testing.T) {
	_, err := GenerateAuthToken(42, "", time.Hour)
	require.Error(t, err)
}
