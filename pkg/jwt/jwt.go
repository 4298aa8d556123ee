package jwt

import (
	"errors"
	"fmt"
	"time"

	jw "github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims of an access token. The subject
// identifies the recipient whose notifications the caller may touch.
type Claims = jw.RegisteredClaims

// Service signs and verifies HS256 tokens.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIssuer sets the issuer written by Generate and required by Parse.
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		s.issuer = issuer
	}
}

// WithTTL sets the lifetime of generated tokens. Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Service. The key should be at least 32 bytes.
func New(signingKey []byte, opts ...Option) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}
	s := &Service{signingKey: signingKey, ttl: time.Hour, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Generate issues a signed token for subject.
func (s *Service) Generate(subject string) (string, error) {
	if subject == "" {
		return "", ErrMissingSubject
	}
	now := s.now()
	claims := Claims{
		Subject:  subject,
		Issuer:   s.issuer,
		IssuedAt: jw.NewNumericDate(now),
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jw.NewNumericDate(now.Add(s.ttl))
	}

	token, err := jw.NewWithClaims(jw.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return token, nil
}

// Parse verifies the token signature and temporal claims and returns its
// claims. A token without a subject is rejected.
func (s *Service) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	opts := []jw.ParserOption{
		jw.WithValidMethods([]string{jw.SigningMethodHS256.Alg()}),
		jw.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jw.WithIssuer(s.issuer))
	}

	var claims Claims
	_, err := jw.ParseWithClaims(token, &claims, func(*jw.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)
	switch {
	case errors.Is(err, jw.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return &claims, nil
}
