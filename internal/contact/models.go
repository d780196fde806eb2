package contact

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate returns the given calendar day at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("birth_date: %w", err)
	}
	if raw == nil || *raw == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return fmt.Errorf("birth_date must be YYYY-MM-DD: %w", err)
	}
	d.Time = t
	return nil
}

// Contact is an address-book entry owned by a single user.
type Contact struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	BirthDate   Date      `json:"birth_date"`
	ExtraData   *string   `json:"extra_data"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Input carries the writable fields of a contact.
type Input struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	BirthDate   Date
	ExtraData   *string
}

func (in Input) normalize() Input {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	return in
}

func (in Input) validate() error {
	var missing []string
	if in.FirstName == "" {
		missing = append(missing, "first_name")
	}
	if in.LastName == "" {
		missing = append(missing, "last_name")
	}
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.PhoneNumber == "" {
		missing = append(missing, "phone_number")
	}
	if in.BirthDate.IsZero() {
		missing = append(missing, "birth_date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidContact, strings.Join(missing, ", "))
	}
	return nil
}

// ListFilter narrows and pages a contact listing.
type ListFilter struct {
	Query     string
	FirstName string
	LastName  string
	Email     string
	Offset    int
	Limit     int
}

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func (f ListFilter) normalize() (ListFilter, error) {
	if f.Offset < 0 || f.Limit < 0 {
		return ListFilter{}, ErrInvalidPagination
	}
	if f.Limit == 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	f.Query = strings.TrimSpace(f.Query)
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	return f, nil
}
