package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserIDPrefix marks customer identifiers.
const UserIDPrefix = "usr-"

// ErrMissingField is returned when a required value is absent at construction time.
var ErrMissingField = errors.New("required field missing")

// Address is the postal address held for a customer.
type Address struct {
	Line1    string
	Line2    string
	Line3    string
	Town     string
	County   string
	Postcode string
}

// User is the domain model for registered bank customers.
type User struct {
	ID           string
	Name         string
	Email        string
	PhoneNumber  string
	PasswordHash string
	Address      Address
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUserParams lists the values needed to register a customer.
type NewUserParams struct {
	Name         string
	Email        string
	PhoneNumber  string
	PasswordHash string
	Address      Address
}

// NewUserID returns a fresh customer identifier, e.g. usr-3f0c...
func NewUserID() string {
	return UserIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewUser builds a user with a new identifier. Every required field must be set.
func NewUser(p NewUserParams, now time.Time) (*User, error) {
	required := []struct {
		field string
		value string
	}{
		{"name", p.Name},
		{"email", p.Email},
		{"phone_number", p.PhoneNumber},
		{"password_hash", p.PasswordHash},
		{"address.line1", p.Address.Line1},
		{"address.town", p.Address.Town},
		{"address.county", p.Address.County},
		{"address.postcode", p.Address.Postcode},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, &FieldError{Field: r.field}
		}
	}

	now = now.UTC()
	return &User{
		ID:           NewUserID(),
		Name:         p.Name,
		Email:        p.Email,
		PhoneNumber:  p.PhoneNumber,
		PasswordHash: p.PasswordHash,
		Address:      p.Address,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Identity projects the credential-relevant part of the user.
func (u *User) Identity() (Identity, error) {
	return NewIdentity(u.ID, u.Email, u.PasswordHash)
}

// FieldError names the missing field.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + ErrMissingField.Error()
}

func (e *FieldError) Unwrap() error {
	return ErrMissingField
}
