package auth

import "errors"

var (
	// ErrDuplicateUsername indicates the username is already registered.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrWeakPassword is returned when a password does not satisfy the policy.
	ErrWeakPassword = errors.New("password does not meet requirements")
	// ErrPasswordMismatch is returned when the confirmation differs from the password.
	ErrPasswordMismatch = errors.New("password and confirmation do not match")
	// ErrInvalidUsername rejects empty or malformed usernames.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidCredentials is returned when authentication fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound signals that the user could not be located.
	ErrUserNotFound = errors.New("user not found")
	// ErrUnauthorized represents a missing, invalid or expired session.
	ErrUnauthorized = errors.New("unauthorized")
)
