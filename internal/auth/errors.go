package auth

import "errors"

var (
	// ErrUnauthenticated covers any bearer token that does not map to a live user.
	ErrUnauthenticated = errors.New("could not validate credentials")
	// ErrInvalidToken is returned when a token is malformed, badly signed or expired.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidScope is returned when a valid token is presented for the wrong purpose.
	ErrInvalidScope = errors.New("invalid scope for token")
	// ErrInvalidCredentials is returned when login fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrReusedRefreshToken signals a stale or foreign refresh token; the slot has been revoked.
	ErrReusedRefreshToken = errors.New("invalid refresh token")
	// ErrInvalidPassword rejects passwords outside the accepted length.
	ErrInvalidPassword = errors.New("password must be between 6 and 72 characters")
	// ErrInvalidEmail rejects blank emails.
	ErrInvalidEmail = errors.New("email is required")
	// ErrAlreadyConfirmed is returned when the email has been confirmed before.
	ErrAlreadyConfirmed = errors.New("email already confirmed")
)
