package users

import "time"

// User is a principal record. PlatformRole holds the platform-level claim
// ("superadmin" or empty) the engine's bypass reads.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	PlatformRole string    `json:"platformRole,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
