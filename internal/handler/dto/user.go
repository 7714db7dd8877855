// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/picvault/picvault/internal/model"
)

// MessageResponse is the body of every error and of plain acknowledgements.
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest represents the request body for a profile update.
// Absent fields are left unchanged.
type UpdateProfileRequest struct {
	Username          *string `json:"username,omitempty"`
	ProfilePictureURL *string `json:"profilePictureUrl,omitempty"`
}

// ChangePasswordRequest represents the request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Username          string    `json:"username"`
	ProfilePictureURL string    `json:"profilePictureUrl,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// ProfileUpdatedResponse is returned by a profile update.
type ProfileUpdatedResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

// ToUserResponse converts a model.User to its public form.
func ToUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:                u.ID,
		Email:             u.Email,
		Username:          u.Username,
		ProfilePictureURL: u.ProfilePictureURL,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}
