// Package model defines domain entities for the application.
package model

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// User represents a registered account.
type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Username          string    `json:"username"`
	PasswordHash      string    `json:"-"` // Never serialize
	ProfilePictureURL string    `json:"profilePictureUrl,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// NewID returns a fresh ULID string for users and images.
func NewID() string {
	return ulid.Make().String()
}

// IsValidID reports whether id has the shape of an identifier issued by NewID.
func IsValidID(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
