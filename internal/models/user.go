package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address as entered at registration.
	// Uniqueness and lookups are case-insensitive, see EmailKey.
	Email string

	// DisplayName is the name shown to other users.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the user account was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last account change.
	UpdatedAt int64
}

// NewUser builds a user with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        strings.TrimSpace(email),
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Summary returns the public part of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.DisplayName, Email: u.Email}
}

// UserSummary is the display data other users may see.
type UserSummary struct {
	ID    string
	Name  string
	Email string
}

// EmailKey returns the case-folded form of an email address used for
// uniqueness and lookups, so "Friend@Example.com" and "friend@example.com"
// resolve to the same account.
func EmailKey(email string) string {
	// Casers are stateful; build one per call.
	return cases.Fold().String(strings.TrimSpace(email))
}
