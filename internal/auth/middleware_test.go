package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protected(gotOperator *string) http.Handler {
	return OperatorAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotOperator != nil {
			*gotOperator = OperatorID(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func signToken(t *testing.T, secret string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"operator_id": "op-1",
		"exp":         exp.Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	req := httptest.NewRequest("GET", "/operator/dashboard", nil)
	w := httptest.NewRecorder()
	protected(nil).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsBadSignature(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	req := httptest.NewRequest("GET", "/operator/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()
	protected(nil).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	req := httptest.NewRequest("GET", "/operator/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "test-secret", time.Now().Add(-time.Hour)))
	w := httptest.NewRecorder()
	protected(nil).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsMissingOperatorClaim(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/operator/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	protected(nil).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewarePassesOperatorIDToHandler(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	var got string
	req := httptest.NewRequest("GET", "/operator/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "test-secret", time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()
	protected(&got).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "op-1", got, "handlers scope queries by the token identity")
}
