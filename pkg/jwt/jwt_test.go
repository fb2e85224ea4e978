package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceGenerateAndValidate(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	token, err := svc.GenerateToken("user-123", "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestServiceRejectsWrongSecret(t *testing.T) {
	token, err := NewService("secret-one", time.Hour).GenerateToken("user-123", "alice@example.com")
	require.NoError(t, err)

	_, err = NewService("secret-two", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestServiceRejectsExpiredToken(t *testing.T) {
	token, err := NewService("test-secret", -time.Minute).GenerateToken("user-123", "alice@example.com")
	require.NoError(t, err)

	_, err = NewService("test-secret", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestServiceRejectsGarbage(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	_, err := svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
