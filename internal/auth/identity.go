package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abduss/contactbook/internal/user"
)

type userFinder interface {
	FindByEmail(ctx context.Context, email string) (user.User, error)
}

// Resolver maps an access token to the user it was issued for. It never writes.
type Resolver struct {
	tokens *TokenService
	users  userFinder
}

// NewResolver constructs a Resolver.
func NewResolver(tokens *TokenService, users userFinder) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve returns the owner of an access token or an error wrapping ErrUnauthenticated.
// Storage failures are returned unwrapped so callers can report them as faults.
func (r *Resolver) Resolve(ctx context.Context, token string) (user.User, error) {
	claims, err := r.tokens.DecodeScoped(token, ScopeAccess)
	if err != nil {
		return user.User{}, unauthenticated(err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return user.User{}, unauthenticated(errors.New("missing subject"))
	}

	u, err := r.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return user.User{}, unauthenticated(err)
		}
		return user.User{}, fmt.Errorf("resolve user: %w", err)
	}
	return u, nil
}

func unauthenticated(cause error) error {
	return fmt.Errorf("%w: %w", ErrUnauthenticated, cause)
}
