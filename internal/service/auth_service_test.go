package service

import (
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "parkpulse/internal/errors"
	"parkpulse/internal/repository"
)

func TestLoginIssuesToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	store := repository.NewMemoryStore()
	svc := NewAuthService(store)

	require.NoError(t, svc.CreateOperator("op@parkpulse.in", "s3cret"))

	tokenString, err := svc.Login("op@parkpulse.in", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "op@parkpulse.in", claims["email"])
	assert.NotEmpty(t, claims["operator_id"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	store := repository.NewMemoryStore()
	svc := NewAuthService(store)
	require.NoError(t, svc.CreateOperator("op@parkpulse.in", "s3cret"))

	_, err := svc.Login("op@parkpulse.in", "wrong")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	_, err = svc.Login("ghost@parkpulse.in", "s3cret")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
}

func TestCreateOperatorValidation(t *testing.T) {
	svc := NewAuthService(repository.NewMemoryStore())
	err := svc.CreateOperator("", "")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
