package service

import (
	"errors"
	"net/url"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Validation limits.
const (
	MinPasswordLength = 6
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// accountFields are the validated fields of registration and profile input.
type accountFields struct {
	Email    string `validate:"required,email"`
	Username string `validate:"required,min=3,max=30,username"`
	Password string `validate:"required,min=6"`
}

// validateRegistration checks registration input and returns the first
// problem as a service error.
func validateRegistration(email, username, password string) error {
	return fieldError(validate.Struct(accountFields{
		Email:    email,
		Username: username,
		Password: password,
	}))
}

// ValidateUsername checks username format.
func ValidateUsername(username string) error {
	if err := validate.Var(username, "required,min=3,max=30,username"); err != nil {
		return ErrInvalidUsername
	}
	return nil
}

// ValidateEmail checks email format.
func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePictureURL accepts empty strings and absolute http(s) URLs.
func ValidatePictureURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidPictureURL
	}
	return nil
}

func fieldError(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	switch verrs[0].Field() {
	case "Email":
		return ErrInvalidEmail
	case "Username":
		return ErrInvalidUsername
	default:
		return ErrPasswordTooShort
	}
}
