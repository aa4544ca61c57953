package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account able to log in.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// SafeUser removes sensitive fields before the user leaves the service.
func (u User) SafeUser() User {
	u.PasswordHash = ""
	return u
}

// Session is a signed token identifying a logged-in user.
type Session struct {
	Token     string
	ExpiresAt time.Time
}
