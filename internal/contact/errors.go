package contact

import "errors"

var (
	// ErrContactNotFound is returned when a contact does not exist or belongs to another user.
	ErrContactNotFound = errors.New("contact not found")
	// ErrDuplicateEmail is returned when any contact already uses the email.
	ErrDuplicateEmail = errors.New("contact email already exists")
	// ErrInvalidContact is returned when input fails validation.
	ErrInvalidContact = errors.New("invalid contact")
	// ErrInvalidPagination rejects negative offsets or limits.
	ErrInvalidPagination = errors.New("offset and limit must not be negative")
)
