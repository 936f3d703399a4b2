package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundtrip(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager("test-secret", 60)

	token, err := tm.Generate("u42", "user@test.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u42", claims.UserID)
	assert.Equal(t, "user@test.com", claims.Email)
}

func TestTokenParse_WrongSecret(t *testing.T) {
	t.Parallel()

	token, err := NewTokenManager("secret-a", 60).Generate("u1", "")
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 60).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenParse_Expired(t *testing.T) {
	t.Parallel()

	// Нулевой TTL - токен протухает сразу
	tm := NewTokenManager("test-secret", 0)
	token, err := tm.Generate("u1", "")
	require.NoError(t, err)

	_, err = tm.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenParse_Garbage(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager("test-secret", 60)
	_, err := tm.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
