package identity

import "time"

// User is an authenticated principal that may own accounts.
type User struct {
	ID           string
	Username     string
	PasswordHash []byte
	IsAdmin      bool
	CreatedAt    time.Time
}

// Credentials request structure.
type Credentials struct {
	Username string
	Password string
}
