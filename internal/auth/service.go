package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abduss/contactbook/internal/logger"
	"github.com/abduss/contactbook/internal/mail"
	"github.com/abduss/contactbook/internal/metrics"
	"github.com/abduss/contactbook/internal/user"
	"go.uber.org/zap"
)

const minPasswordLength = 6

// userStore abstracts the persistence layer.
type userStore interface {
	Create(ctx context.Context, email, passwordHash string) (user.User, error)
	FindByEmail(ctx context.Context, email string) (user.User, error)
	SetRefreshToken(ctx context.Context, userID int64, token *string) error
	SwapRefreshToken(ctx context.Context, userID int64, expected, next string) (bool, error)
	Confirm(ctx context.Context, email string) error
}

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service encapsulates authentication use cases.
type Service struct {
	users   userStore
	tx      transactor
	hasher  *Hasher
	tokens  *TokenService
	mailer  mail.Sender
	baseURL string
	log     *zap.Logger
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithMailer enables confirmation emails whose links point at baseURL.
func WithMailer(sender mail.Sender, baseURL string) Option {
	return func(s *Service) {
		s.mailer = sender
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the fallback logger used outside of a request.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates a Service with dependencies.
func NewService(users userStore, tx transactor, hasher *Hasher, tokens *TokenService, opts ...Option) *Service {
	s := &Service{
		users:  users,
		tx:     tx,
		hasher: hasher,
		tokens: tokens,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignupInput carries data for user registration.
type SignupInput struct {
	Email    string
	Password string
}

// LoginInput carries login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}

// Signup creates a user with a hashed password. A confirmation email is sent
// afterwards on a best-effort basis.
func (s *Service) Signup(ctx context.Context, input SignupInput) (user.User, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return user.User{}, ErrInvalidEmail
	}
	if len(input.Password) < minPasswordLength || len(input.Password) > maxPasswordLength {
		return user.User{}, ErrInvalidPassword
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	var created user.User
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.users.Create(ctx, email, digest)
		return err
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return user.User{}, user.ErrDuplicateEmail
		}
		return user.User{}, fmt.Errorf("signup: %w", err)
	}
	metrics.ObserveAuthEvent(metrics.EventSignup)

	if err := s.sendConfirmation(ctx, created.Email); err != nil {
		s.logger(ctx).Warn("confirmation email not sent", zap.Int64("user_id", created.ID), zap.Error(err))
	}
	return created.SafeUser(), nil
}

// Login verifies credentials, issues a token pair and stores the refresh token
// as the user's only valid one.
func (s *Service) Login(ctx context.Context, input LoginInput) (TokenPair, error) {
	var pair TokenPair
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		u, err := s.users.FindByEmail(ctx, input.Email)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				return fmt.Errorf("%w: unknown email", ErrInvalidCredentials)
			}
			return err
		}
		if !s.hasher.Verify(input.Password, u.PasswordHash) {
			return fmt.Errorf("%w: password mismatch", ErrInvalidCredentials)
		}

		pair, err = s.issuePair(u.Email)
		if err != nil {
			return err
		}
		return s.users.SetRefreshToken(ctx, u.ID, &pair.RefreshToken)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger(ctx).Debug("login rejected", zap.Error(err))
			metrics.ObserveAuthEvent(metrics.EventLoginFailure)
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, fmt.Errorf("login: %w", err)
	}

	metrics.ObserveAuthEvent(metrics.EventLoginSuccess)
	return pair, nil
}

// Refresh exchanges the stored refresh token for a new pair. Each refresh
// token is accepted once; presenting anything other than the stored value
// clears the slot so that a fresh login is required.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.DecodeScoped(refreshToken, ScopeRefresh)
	if err != nil {
		return TokenPair{}, unauthenticated(err)
	}

	var (
		pair    TokenPair
		revoked bool
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		u, err := s.users.FindByEmail(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				return unauthenticated(err)
			}
			return err
		}

		pair, err = s.issuePair(u.Email)
		if err != nil {
			return err
		}

		swapped, err := s.users.SwapRefreshToken(ctx, u.ID, refreshToken, pair.RefreshToken)
		if err != nil {
			return err
		}
		if swapped {
			return nil
		}

		// Stale, reused or foreign token: revoke and commit.
		if err := s.users.SetRefreshToken(ctx, u.ID, nil); err != nil {
			return err
		}
		revoked = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return TokenPair{}, err
		}
		return TokenPair{}, fmt.Errorf("refresh: %w", err)
	}
	if revoked {
		s.logger(ctx).Warn("refresh token reuse detected, session revoked", zap.String("subject", claims.Subject))
		metrics.ObserveAuthEvent(metrics.EventRefreshRevoked)
		return TokenPair{}, ErrReusedRefreshToken
	}

	metrics.ObserveAuthEvent(metrics.EventRefreshRotated)
	return pair, nil
}

// RequestConfirmation sends a new confirmation email. Unknown addresses are
// ignored so the endpoint cannot be used to probe registrations.
func (s *Service) RequestConfirmation(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("request confirmation: %w", err)
	}
	if u.Confirmed {
		return ErrAlreadyConfirmed
	}
	return s.sendConfirmation(ctx, u.Email)
}

// ConfirmEmail marks the subject of an email token as confirmed.
func (s *Service) ConfirmEmail(ctx context.Context, token string) error {
	claims, err := s.tokens.DecodeScoped(token, ScopeEmail)
	if err != nil {
		return err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		u, err := s.users.FindByEmail(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				return fmt.Errorf("%w: unknown subject", ErrInvalidToken)
			}
			return err
		}
		if u.Confirmed {
			return ErrAlreadyConfirmed
		}
		return s.users.Confirm(ctx, u.Email)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrAlreadyConfirmed) {
			return err
		}
		return fmt.Errorf("confirm email: %w", err)
	}

	metrics.ObserveAuthEvent(metrics.EventEmailConfirmed)
	return nil
}

func (s *Service) issuePair(subject string) (TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(subject)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(subject)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (s *Service) sendConfirmation(ctx context.Context, email string) error {
	if s.mailer == nil {
		return nil
	}
	token, err := s.tokens.IssueEmailToken(email)
	if err != nil {
		return err
	}
	link := s.baseURL + "/api/auth/confirmed_email/" + token
	return s.mailer.Send(ctx, mail.Message{
		To:        email,
		Subject:   "Confirm your email",
		PlainText: "Open the following link to confirm your email: " + link,
		HTML:      `<p>Open the following link to confirm your email:</p><p><a href="` + link + `">` + link + `</a></p>`,
	})
}

func (s *Service) logger(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, s.log)
}
