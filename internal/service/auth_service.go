package service

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	apperr "parkpulse/internal/errors"
	"parkpulse/internal/repository"
)

// AuthService authenticates operators and mints the bearer tokens the
// operator API requires.
type AuthService struct {
	store    repository.OperatorStore
	tokenTTL time.Duration
}

func NewAuthService(store repository.OperatorStore) *AuthService {
	return &AuthService{store: store, tokenTTL: 8 * time.Hour}
}

// Login verifies the credentials and returns a signed JWT. Lookup failures
// and bad passwords return the same error so the response does not leak
// which one happened.
func (s *AuthService) Login(email, password string) (string, error) {
	op, err := s.store.GetOperatorByEmail(email)
	if err != nil {
		return "", apperr.Unauthorized("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)) != nil {
		return "", apperr.Unauthorized("invalid credentials")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", apperr.Unauthorized("JWT_SECRET not set")
	}

	claims := jwt.MapClaims{
		"operator_id": op.ID,
		"email":       op.Email,
		"exp":         time.Now().Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (s *AuthService) CreateOperator(email, password string) error {
	if email == "" || password == "" {
		return apperr.Validation("email and password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.store.CreateOperator(email, string(hash))
}
