// Package addresses manages the delivery addresses nested under a user.
// Listings are cached per user; every mutation invalidates that user's entry.
package addresses

import (
	"strconv"
	"strings"
	"time"

	apperrors "github.com/lggm33/DUAD/internal/errors"
)

// Address is a delivery address row.
type Address struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const (
	maxCityLength       = 100
	maxPostalCodeLength = 20
	maxCountryLength    = 100
)

// CreateRequest carries a new delivery address. The user id in the body must
// be present but the path user always wins.
type CreateRequest struct {
	UserID     int64  `json:"user_id"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (r CreateRequest) validate() error {
	details := make(map[string]interface{})

	if r.UserID == 0 {
		details["user_id"] = "Missing data for required field."
	}
	requireLength(details, "address", r.Address, 0)
	requireLength(details, "city", r.City, maxCityLength)
	requireLength(details, "postal_code", r.PostalCode, maxPostalCodeLength)
	requireLength(details, "country", r.Country, maxCountryLength)

	if len(details) > 0 {
		return apperrors.New(apperrors.ErrCodeValidationFailed, "Validation failed").WithDetails(details)
	}
	return nil
}

// UpdateRequest carries a partial address update. Nil fields are untouched.
type UpdateRequest struct {
	Address    *string `json:"address"`
	City       *string `json:"city"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`
}

func (r UpdateRequest) validate() error {
	details := make(map[string]interface{})

	if r.Address != nil {
		checkLength(details, "address", *r.Address, 0)
	}
	if r.City != nil {
		checkLength(details, "city", *r.City, maxCityLength)
	}
	if r.PostalCode != nil {
		checkLength(details, "postal_code", *r.PostalCode, maxPostalCodeLength)
	}
	if r.Country != nil {
		checkLength(details, "country", *r.Country, maxCountryLength)
	}

	if len(details) > 0 {
		return apperrors.New(apperrors.ErrCodeValidationFailed, "Validation failed").WithDetails(details)
	}
	return nil
}

func requireLength(details map[string]interface{}, field, value string, max int) {
	if value == "" {
		details[field] = "Missing data for required field."
		return
	}
	checkLength(details, field, value, max)
}

func checkLength(details map[string]interface{}, field, value string, max int) {
	switch {
	case strings.TrimSpace(value) == "":
		details[field] = "Shorter than minimum length 1."
	case max > 0 && len(value) > max:
		details[field] = "Longer than maximum length " + strconv.Itoa(max) + "."
	}
}
