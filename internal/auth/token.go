package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/readtrack/readtrack/internal/config"
	"github.com/readtrack/readtrack/internal/model"
)

// ErrSigningDisabled is returned when tokens are requested without a configured secret
var ErrSigningDisabled = errors.New("token secret not configured")

// TokenService handles JWT access token creation and validation.
type TokenService struct {
	cfg config.TokenConfig
	now func() time.Time
}

// TokenClaims represents the claims in an access token.
type TokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// NewTokenService creates a new TokenService.
func NewTokenService(cfg config.TokenConfig) *TokenService {
	return &TokenService{cfg: cfg, now: time.Now}
}

// GenerateAccessToken signs an HS256 access token for subject
func (s *TokenService) GenerateAccessToken(subject, role string) (string, error) {
	if !s.cfg.Enabled() {
		return "", ErrSigningDisabled
	}
	if role != "" && !model.Role(role).Valid() {
		return "", fmt.Errorf("unknown role %q", role)
	}

	now := s.now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)),
			ID:        uuid.New().String(),
		},
		Role: role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken validates an access token and returns the claims.
// Failures keep the jwt sentinel errors in their chain.
func (s *TokenService) ValidateAccessToken(tokenString string) (*TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(*jwt.Token) (any, error) {
		if !s.cfg.Enabled() {
			return nil, ErrSigningDisabled
		}
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims: %w", jwt.ErrTokenInvalidClaims)
	}

	return claims, nil
}
