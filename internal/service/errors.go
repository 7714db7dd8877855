// Package service provides business logic for the application.
package service

import "errors"

// Account errors.
var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidUsername    = errors.New("username must be 3-30 characters of letters, digits, '.', '_' or '-'")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrMissingPassword    = errors.New("current and new password are required")
	ErrInvalidPictureURL  = errors.New("profile picture must be an http or https URL")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrUserNotFound       = errors.New("user not found")
)

// Image errors.
var (
	ErrImageNotFound   = errors.New("image not found")
	ErrForbidden       = errors.New("not allowed to modify this image")
	ErrMissingPublicID = errors.New("image has no storage id")
	ErrEmptyQuery      = errors.New("search query is required")
	ErrNoFile          = errors.New("no file uploaded")
	ErrUnsupportedType = errors.New("only JPEG, PNG and WebP images are allowed")
	ErrFileTooLarge    = errors.New("file exceeds the upload size limit")
)
