package user

import "time"

// User is an account holder. PasswordHash and RefreshToken never leave the service layer.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	RefreshToken *string
	Confirmed    bool
	Avatar       *string
}

// SafeUser removes secrets before the value crosses a transport boundary.
func (u User) SafeUser() User {
	u.PasswordHash = ""
	u.RefreshToken = nil
	return u
}
