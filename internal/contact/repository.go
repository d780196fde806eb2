package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abduss/contactbook/internal/storage"
	"github.com/jackc/pgx/v5"
)

const repositoryTimeout = 5 * time.Second

const contactColumns = `id, first_name, last_name, email, phone_number, birth_date, extra_data, user_id, created_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Repository is the PostgreSQL-backed contact store. Every statement filters on user_id.
type Repository struct {
	db storage.DBTX
}

// NewRepository constructs a contact repository.
func NewRepository(db storage.DBTX) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) storage.DBTX {
	return storage.Conn(ctx, r.db)
}

// Create inserts a contact for the owner.
func (r *Repository) Create(ctx context.Context, ownerID int64, in Input) (Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
INSERT INTO contacts (first_name, last_name, email, phone_number, birth_date, extra_data, user_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + contactColumns + `;`

	c, err := scanContact(r.conn(ctx).QueryRow(ctx, query,
		in.FirstName, in.LastName, in.Email, in.PhoneNumber, in.BirthDate.Time, in.ExtraData, ownerID))
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return Contact{}, ErrDuplicateEmail
		}
		return Contact{}, fmt.Errorf("create contact: %w", err)
	}
	return c, nil
}

// Get fetches a single contact ensuring ownership.
func (r *Repository) Get(ctx context.Context, ownerID, contactID int64) (Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND user_id = $2;`
	c, err := scanContact(r.conn(ctx).QueryRow(ctx, query, contactID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, ErrContactNotFound
		}
		return Contact{}, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

// List returns the owner's contacts matching filter, ordered by id.
func (r *Repository) List(ctx context.Context, ownerID int64, filter ListFilter) ([]Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	conds := []string{"user_id = $1"}
	args := []any{ownerID}
	like := func(v string) int {
		args = append(args, "%"+likeEscaper.Replace(v)+"%")
		return len(args)
	}

	if filter.Query != "" {
		n := like(filter.Query)
		conds = append(conds, fmt.Sprintf("(first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d OR email ILIKE $%[1]d)", n))
	}
	if filter.FirstName != "" {
		conds = append(conds, fmt.Sprintf("first_name ILIKE $%d", like(filter.FirstName)))
	}
	if filter.LastName != "" {
		conds = append(conds, fmt.Sprintf("last_name ILIKE $%d", like(filter.LastName)))
	}
	if filter.Email != "" {
		conds = append(conds, fmt.Sprintf("email ILIKE $%d", like(filter.Email)))
	}

	args = append(args, filter.Offset, filter.Limit)
	query := fmt.Sprintf(`
SELECT %s
FROM contacts
WHERE %s
ORDER BY id
OFFSET $%d LIMIT $%d;`, contactColumns, strings.Join(conds, " AND "), len(args)-1, len(args))

	return r.queryContacts(ctx, query, args...)
}

// Update replaces every writable field of an owned contact.
func (r *Repository) Update(ctx context.Context, ownerID, contactID int64, in Input) (Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
UPDATE contacts
SET first_name = $3,
    last_name = $4,
    email = $5,
    phone_number = $6,
    birth_date = $7,
    extra_data = $8
WHERE id = $1 AND user_id = $2
RETURNING ` + contactColumns + `;`

	c, err := scanContact(r.conn(ctx).QueryRow(ctx, query, contactID, ownerID,
		in.FirstName, in.LastName, in.Email, in.PhoneNumber, in.BirthDate.Time, in.ExtraData))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return Contact{}, ErrContactNotFound
		case storage.IsUniqueViolation(err):
			return Contact{}, ErrDuplicateEmail
		}
		return Contact{}, fmt.Errorf("update contact: %w", err)
	}
	return c, nil
}

// Delete removes an owned contact.
func (r *Repository) Delete(ctx context.Context, ownerID, contactID int64) error {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM contacts WHERE id = $1 AND user_id = $2;`, contactID, ownerID)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

// ByBirthdays returns the owner's contacts whose birth date falls on one of
// the given MM-DD days, in any year.
func (r *Repository) ByBirthdays(ctx context.Context, ownerID int64, monthDays []string) ([]Contact, error) {
	if len(monthDays) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT ` + contactColumns + `
FROM contacts
WHERE user_id = $1 AND to_char(birth_date, 'MM-DD') = ANY($2)
ORDER BY id;`

	return r.queryContacts(ctx, query, ownerID, monthDays)
}

func (r *Repository) queryContacts(ctx context.Context, query string, args ...any) ([]Contact, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return contacts, nil
}

func scanContact(row pgx.Row) (Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.PhoneNumber,
		&c.BirthDate.Time, &c.ExtraData, &c.UserID, &c.CreatedAt)
	return c, err
}
