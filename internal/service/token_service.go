package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"customer-api/internal/domain"
)

// TokenTTL is how long an issued token stays valid.
const TokenTTL = time.Hour

// ErrSecretNotConfigured is returned when tokens are requested without a signing secret.
var ErrSecretNotConfigured = errors.New("jwt secret is not configured")

// Claims is the payload carried by issued tokens.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies stateless bearer tokens.
type TokenService interface {
	Issue(username string) (string, error)
	Verify(authHeader string) (*Claims, error)
}

// TokenOption customizes a TokenService.
type TokenOption func(*tokenService)

// WithClock overrides the time source used for issuing and verifying tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(s *tokenService) {
		s.now = now
	}
}

type tokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, opts ...TokenOption) TokenService {
	s := &tokenService{
		secret: []byte(secret),
		ttl:    TokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *tokenService) Issue(username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	if len(s.secret) == 0 {
		return "", ErrSecretNotConfigured
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify takes the second space separated field of a "Bearer <token>" header
// and validates its signature and expiry.
func (s *tokenService) Verify(authHeader string) (*Claims, error) {
	raw := bearerToken(authHeader)
	if raw == "" {
		return nil, domain.ErrMissingToken
	}
	if len(s.secret) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidToken, ErrSecretNotConfigured)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

func bearerToken(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
