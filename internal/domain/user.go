package domain

import (
	"time"
)

// User represents a registered marketplace user.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name"`
	Phone        *string    `json:"phone,omitempty"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// PublicProfile returns the subset of user fields safe to expose alongside
// other users' content, such as reviews.
type PublicProfile struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

// Public returns the user's public profile.
func (u *User) Public() PublicProfile {
	return PublicProfile{ID: u.ID, FullName: u.FullName}
}
