package models

import "time"

// Credentials is the login payload of the API
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the register payload of the API
type Registration struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Session represents a browser session of a staff member
type Session struct {
	ID            string
	Identity      string
	Token         string
	Authenticated bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsIdleSince reports whether the session has not changed since t
func (s *Session) IsIdleSince(t time.Time) bool {
	return s.UpdatedAt.Before(t)
}
