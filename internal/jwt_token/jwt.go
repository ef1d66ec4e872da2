// Package jwttoken issues and checks the HS256 bearer tokens that carry a
// caller principal. Issuer and audience are pinned on both sides.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"mfgverify/pkg/domain"
	dErrors "mfgverify/pkg/domain-errors"
)

// Claims are the registered claims of a caller token; Subject is the principal.
type Claims struct {
	jwt.RegisteredClaims
}

// Service signs and validates caller tokens.
type Service struct {
	key      []byte
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLeeway tolerates clock skew when checking exp/iat.
func WithLeeway(d time.Duration) Option {
	return func(s *Service) { s.leeway = d }
}

// WithClock replaces time.Now for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewJWTService(signingKey, issuer, audience string, opts ...Option) *Service {
	s := &Service{
		key:      []byte(signingKey),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateAccessToken issues a token that lets the holder act as principal.
func (s *Service) GenerateAccessToken(principal domain.Principal, ttl time.Duration) (string, error) {
	if principal.IsZero() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal is required")
	}
	issued := s.now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   principal.String(),
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// ValidateToken checks signature, issuer, audience and expiry. Every failure
// is reported as CodeUnauthorized; only expiry gets its own message.
func (s *Service) ValidateToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	case err != nil:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	case claims.Subject == "":
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *Service) keyFunc(*jwt.Token) (any, error) { return s.key, nil }

// ExtractPrincipal validates the token and returns its subject as a principal.
func (s *Service) ExtractPrincipal(raw string) (domain.Principal, error) {
	claims, err := s.ValidateToken(raw)
	if err != nil {
		return "", err
	}
	return domain.ParsePrincipal(claims.Subject)
}
