package contact

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// birthdayWindowDays is how far ahead upcoming birthdays are searched, inclusive of today.
const birthdayWindowDays = 7

// contactStore abstracts the persistence layer.
type contactStore interface {
	Create(ctx context.Context, ownerID int64, in Input) (Contact, error)
	Get(ctx context.Context, ownerID, contactID int64) (Contact, error)
	List(ctx context.Context, ownerID int64, filter ListFilter) ([]Contact, error)
	Update(ctx context.Context, ownerID, contactID int64, in Input) (Contact, error)
	Delete(ctx context.Context, ownerID, contactID int64) error
	ByBirthdays(ctx context.Context, ownerID int64, monthDays []string) ([]Contact, error)
}

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements owner-scoped contact use cases.
type Service struct {
	store   contactStore
	tx      transactor
	nowFunc func() time.Time
}

// NewService constructs a Service.
func NewService(store contactStore, tx transactor) *Service {
	return &Service{store: store, tx: tx, nowFunc: time.Now}
}

// Create adds a contact for the owner.
func (s *Service) Create(ctx context.Context, ownerID int64, in Input) (Contact, error) {
	in = in.normalize()
	if err := in.validate(); err != nil {
		return Contact{}, err
	}

	var created Contact
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.store.Create(ctx, ownerID, in)
		return err
	})
	return created, err
}

// Get returns an owned contact.
func (s *Service) Get(ctx context.Context, ownerID, contactID int64) (Contact, error) {
	var found Contact
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		found, err = s.store.Get(ctx, ownerID, contactID)
		return err
	})
	return found, err
}

// List returns a page of the owner's contacts.
func (s *Service) List(ctx context.Context, ownerID int64, filter ListFilter) ([]Contact, error) {
	filter, err := filter.normalize()
	if err != nil {
		return nil, err
	}

	var contacts []Contact
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		contacts, err = s.store.List(ctx, ownerID, filter)
		return err
	})
	return contacts, err
}

// Update replaces an owned contact.
func (s *Service) Update(ctx context.Context, ownerID, contactID int64, in Input) (Contact, error) {
	in = in.normalize()
	if err := in.validate(); err != nil {
		return Contact{}, err
	}

	var updated Contact
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.store.Update(ctx, ownerID, contactID, in)
		return err
	})
	return updated, err
}

// Delete removes an owned contact.
func (s *Service) Delete(ctx context.Context, ownerID, contactID int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.store.Delete(ctx, ownerID, contactID)
	})
}

// UpcomingBirthdays returns the owner's contacts whose next birthday falls
// within the coming week, soonest first.
func (s *Service) UpcomingBirthdays(ctx context.Context, ownerID int64) ([]Contact, error) {
	today := truncateDay(s.nowFunc())

	var contacts []Contact
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		contacts, err = s.store.ByBirthdays(ctx, ownerID, upcomingMonthDays(today, birthdayWindowDays))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("upcoming birthdays: %w", err)
	}

	sort.SliceStable(contacts, func(i, j int) bool {
		a := nextBirthday(contacts[i].BirthDate.Time, today)
		b := nextBirthday(contacts[j].BirthDate.Time, today)
		if !a.Equal(b) {
			return a.Before(b)
		}
		return contacts[i].ID < contacts[j].ID
	})
	return contacts, nil
}

// upcomingMonthDays lists MM-DD keys for today and the following days.
// In non-leap years Feb 29 birthdays are celebrated on Feb 28.
func upcomingMonthDays(today time.Time, days int) []string {
	keys := make([]string, 0, days+2)
	for i := 0; i <= days; i++ {
		d := today.AddDate(0, 0, i)
		keys = append(keys, d.Format("01-02"))
		if d.Month() == time.February && d.Day() == 28 && !isLeap(d.Year()) {
			keys = append(keys, "02-29")
		}
	}
	return keys
}

// nextBirthday returns the first anniversary of birth on or after today.
func nextBirthday(birth, today time.Time) time.Time {
	next := anniversary(birth, today.Year())
	if next.Before(today) {
		next = anniversary(birth, today.Year()+1)
	}
	return next
}

func anniversary(birth time.Time, year int) time.Time {
	day := birth.Day()
	if birth.Month() == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, birth.Month(), day, 0, 0, 0, 0, time.UTC)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
