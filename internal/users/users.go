// Package users manages accounts and the credential lifecycle: registration,
// login, token refresh and revocation, profile updates, and admin promotion.
package users

import (
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/lggm33/DUAD/internal/errors"
)

// User is an account row. PasswordHash never serializes.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	Name         string    `json:"name"`
	Phone        *string   `json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const (
	minPasswordLength = 8
	maxNameLength     = 120
	maxPhoneLength    = 20
)

// NormalizeEmail lowercases and trims an address so lookups and uniqueness
// are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterRequest carries the fields accepted at registration. Role is only
// honored when the caller is an admin.
type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Phone    *string `json:"phone"`
	Role     string  `json:"role"`
}

func (r RegisterRequest) validate() error {
	details := make(map[string]interface{})

	switch {
	case r.Email == "":
		details["email"] = "Missing data for required field."
	default:
		if _, err := mail.ParseAddress(r.Email); err != nil {
			details["email"] = "Not a valid email address."
		}
	}

	switch {
	case r.Password == "":
		details["password"] = "Missing data for required field."
	case len(r.Password) < minPasswordLength:
		details["password"] = "Shorter than minimum length 8."
	}

	switch {
	case strings.TrimSpace(r.Name) == "":
		details["name"] = "Missing data for required field."
	case len(r.Name) > maxNameLength:
		details["name"] = "Longer than maximum length 120."
	}

	if r.Phone != nil && len(*r.Phone) > maxPhoneLength {
		details["phone"] = "Longer than maximum length 20."
	}

	if len(details) > 0 {
		return apperrors.New(apperrors.ErrCodeValidationFailed, "Validation failed").WithDetails(details)
	}
	return nil
}

// UpdateRequest carries the profile fields a user may change. Nil fields are
// left untouched. Role changes go through MakeAdmin only.
type UpdateRequest struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	IsActive *bool   `json:"is_active"`
}

func (r UpdateRequest) validate() error {
	details := make(map[string]interface{})

	if r.Name != nil {
		if strings.TrimSpace(*r.Name) == "" {
			details["name"] = "Shorter than minimum length 1."
		} else if len(*r.Name) > maxNameLength {
			details["name"] = "Longer than maximum length 120."
		}
	}
	if r.Phone != nil && len(*r.Phone) > maxPhoneLength {
		details["phone"] = "Longer than maximum length 20."
	}

	if len(details) > 0 {
		return apperrors.New(apperrors.ErrCodeValidationFailed, "Validation failed").WithDetails(details)
	}
	return nil
}
