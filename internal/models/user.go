package models

import "time"

// User represents one account. The identifier is assigned by the credential
// store and immutable once set; the password hash is never serialized.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username,omitempty"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
