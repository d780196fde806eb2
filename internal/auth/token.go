package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abduss/contactbook/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token scopes.
const (
	ScopeAccess  = "access_token"
	ScopeRefresh = "refresh_token"
	ScopeEmail   = "email_token"
)

// Claims is the decoded content of a token.
type Claims struct {
	Subject   string
	Scope     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// IssueOption tweaks a single token issuance.
type IssueOption func(*issueOptions)

type issueOptions struct {
	expiresIn time.Duration
}

// WithExpiry overrides the default lifetime. Non-positive values keep the default.
func WithExpiry(d time.Duration) IssueOption {
	return func(o *issueOptions) {
		if d > 0 {
			o.expiresIn = d
		}
	}
}

// TokenService signs and validates scoped JWTs with a shared symmetric secret.
type TokenService struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
	nowFunc    func() time.Time
	parser     *jwt.Parser
}

// NewTokenService builds a TokenService. Only HMAC algorithms are accepted.
func NewTokenService(cfg config.AuthConfig) (*TokenService, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("token secret is empty")
	}
	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}

	s := &TokenService{
		secret:     []byte(cfg.SecretKey),
		method:     method,
		accessTTL:  orDefault(cfg.AccessTokenTTL, 15*time.Minute),
		refreshTTL: orDefault(cfg.RefreshTokenTTL, 7*24*time.Hour),
		emailTTL:   orDefault(cfg.EmailTokenTTL, 24*time.Hour),
		nowFunc:    time.Now,
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.nowFunc() }),
	)
	return s, nil
}

// IssueAccessToken signs a short-lived access token for subject.
func (s *TokenService) IssueAccessToken(subject string, opts ...IssueOption) (string, error) {
	return s.issue(subject, ScopeAccess, s.accessTTL, opts)
}

// IssueRefreshToken signs a refresh token for subject.
func (s *TokenService) IssueRefreshToken(subject string, opts ...IssueOption) (string, error) {
	return s.issue(subject, ScopeRefresh, s.refreshTTL, opts)
}

// IssueEmailToken signs an email-confirmation token for subject.
func (s *TokenService) IssueEmailToken(subject string, opts ...IssueOption) (string, error) {
	return s.issue(subject, ScopeEmail, s.emailTTL, opts)
}

// Decode verifies signature, algorithm and expiry. It does not check the scope.
func (s *TokenService) Decode(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrInvalidToken
	}

	var tc tokenClaims
	parsed, err := s.parser.ParseWithClaims(token, &tc, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}

	claims := Claims{
		Subject: tc.Subject,
		Scope:   tc.Scope,
		ID:      tc.ID,
	}
	if tc.IssuedAt != nil {
		claims.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		claims.ExpiresAt = tc.ExpiresAt.Time
	}
	return claims, nil
}

// DecodeScoped decodes token and requires the given scope.
func (s *TokenService) DecodeScoped(token, scope string) (Claims, error) {
	claims, err := s.Decode(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.Scope != scope {
		return Claims{}, ErrInvalidScope
	}
	return claims, nil
}

func (s *TokenService) issue(subject, scope string, ttl time.Duration, opts []IssueOption) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("token subject is empty")
	}

	o := issueOptions{expiresIn: ttl}
	for _, opt := range opts {
		opt(&o)
	}

	now := s.nowFunc()
	claims := tokenClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(o.expiresIn)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", scope, err)
	}
	return signed, nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
