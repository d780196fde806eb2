package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abduss/contactbook/internal/storage"
	"github.com/jackc/pgx/v5"
)

const defaultQueryTimeout = 5 * time.Second

const userColumns = `id, email, password_hash, created_at, refresh_token, confirmed, avatar`

// Repository is the PostgreSQL-backed user store.
type Repository struct {
	db storage.DBTX
}

// NewRepository constructs a new Repository.
func NewRepository(db storage.DBTX) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) storage.DBTX {
	return storage.Conn(ctx, r.db)
}

// Create persists a new user record.
func (r *Repository) Create(ctx context.Context, email, passwordHash string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
INSERT INTO users (email, password_hash)
VALUES ($1, $2)
RETURNING ` + userColumns + `;`

	user, err := scanUser(r.conn(ctx).QueryRow(ctx, query, email, passwordHash))
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// FindByEmail fetches a user by exact email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1;`
	return r.findOne(ctx, query, email)
}

// FindByID fetches a user by id.
func (r *Repository) FindByID(ctx context.Context, id int64) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1;`
	return r.findOne(ctx, query, id)
}

// SetRefreshToken overwrites the refresh-token slot; nil clears it.
func (r *Repository) SetRefreshToken(ctx context.Context, userID int64, token *string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	tag, err := r.conn(ctx).Exec(ctx, `UPDATE users SET refresh_token = $2 WHERE id = $1;`, userID, token)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SwapRefreshToken replaces the slot only while it still holds expected.
// It reports false when another value (or none) was stored.
func (r *Repository) SwapRefreshToken(ctx context.Context, userID int64, expected, next string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
UPDATE users
SET refresh_token = $3
WHERE id = $1 AND refresh_token = $2;`

	tag, err := r.conn(ctx).Exec(ctx, query, userID, expected, next)
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Confirm marks the user's email as confirmed.
func (r *Repository) Confirm(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	tag, err := r.conn(ctx).Exec(ctx, `UPDATE users SET confirmed = TRUE WHERE email = $1;`, email)
	if err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetAvatar stores the avatar object key and returns the updated user.
func (r *Repository) SetAvatar(ctx context.Context, userID int64, objectKey string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `UPDATE users SET avatar = $2 WHERE id = $1 RETURNING ` + userColumns + `;`
	user, err := scanUser(r.conn(ctx).QueryRow(ctx, query, userID, objectKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("set avatar: %w", err)
	}
	return user, nil
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (User, error) {
	user, err := scanUser(r.conn(ctx).QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.RefreshToken, &u.Confirmed, &u.Avatar)
	return u, err
}
