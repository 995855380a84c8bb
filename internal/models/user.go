package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the login address (unique).
	Email string

	// Name is the nickname chosen at setup. It is only shown in admin views;
	// public views show the monthly anonymous name instead.
	Name string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// Admin grants access to catalog management and the admin timeline.
	Admin bool

	// CreatedAt is the registration time in Unix milliseconds.
	CreatedAt int64
}

// NewUser creates a user with a fresh ID and the current time as its
// registration time.
func NewUser(email, name, passwordHash string) *User {
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UnixMilli(),
	}
}
