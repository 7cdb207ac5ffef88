package dto

import (
	"errors"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/nyaruka/phonenumbers"

	"github.com/spec-kit/bank-auth-service/internal/domain"
)

var e164 = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

var errUnknownNumber = errors.New("must be a valid number for its country code")

// maxPasswordBytes is the longest secret bcrypt accepts.
const maxPasswordBytes = 72

var errPasswordTooLong = errors.New("must be at most 72 bytes when UTF-8 encoded")

// fitsBcrypt rejects passwords bcrypt would refuse to hash. Length counts
// runes, so multi-byte input can pass it and still be too long.
func fitsBcrypt(value interface{}) error {
	s, _ := value.(string)
	if len(s) > maxPasswordBytes {
		return errPasswordTooLong
	}
	return nil
}

// dialable rejects E.164-shaped numbers that no numbering plan assigns.
func dialable(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	num, err := phonenumbers.Parse(s, "")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return errUnknownNumber
	}
	return nil
}

// AddressDTO is the postal address in requests and responses.
type AddressDTO struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2,omitempty"`
	Line3    string `json:"line3,omitempty"`
	Town     string `json:"town"`
	County   string `json:"county"`
	Postcode string `json:"postcode"`
}

// Validate checks field lengths.
func (a AddressDTO) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Line1, validation.Required.Error("Address line 1 is required."), validation.Length(0, 100)),
		validation.Field(&a.Line2, validation.Length(0, 100)),
		validation.Field(&a.Line3, validation.Length(0, 100)),
		validation.Field(&a.Town, validation.Required.Error("Town is required."), validation.Length(0, 50)),
		validation.Field(&a.County, validation.Required.Error("County is required."), validation.Length(0, 50)),
		validation.Field(&a.Postcode, validation.Required.Error("Postcode is required."), validation.Length(2, 10)),
	)
}

func (a AddressDTO) toDomain() domain.Address {
	return domain.Address{
		Line1:    a.Line1,
		Line2:    a.Line2,
		Line3:    a.Line3,
		Town:     a.Town,
		County:   a.County,
		Postcode: a.Postcode,
	}
}

// CreateUserRequest payload for new customers.
type CreateUserRequest struct {
	Name        string      `json:"name"`
	Address     *AddressDTO `json:"address"`
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	PhoneNumber string      `json:"phoneNumber"`
}

// Validate applies registration rules.
func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required.Error("Name is required."), validation.Length(2, 70)),
		validation.Field(&r.Address, validation.Required.Error("Address is required.")),
		validation.Field(&r.Email, validation.Required.Error("Email is required."), is.EmailFormat),
		validation.Field(&r.Password, validation.Required.Error("Password is required."), validation.Length(6, 50), validation.By(fitsBcrypt)),
		validation.Field(&r.PhoneNumber,
			validation.Required.Error("Phone number is required."),
			validation.Match(e164).Error("Phone number must be in E.164 format (e.g., +442071234567)."),
			validation.By(dialable),
		),
	)
}

// DomainAddress returns the domain address; callers must Validate first.
func (r CreateUserRequest) DomainAddress() domain.Address {
	if r.Address == nil {
		return domain.Address{}
	}
	return r.Address.toDomain()
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate only checks presence; credential checks happen in the verifier.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error("Email is required."), is.EmailFormat),
		validation.Field(&r.Password, validation.Required.Error("Password is required.")),
	)
}

// LoginResponse standard response for the login endpoint.
type LoginResponse struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserResponse is the public view of a customer.
type UserResponse struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Address          AddressDTO `json:"address"`
	PhoneNumber      string     `json:"phoneNumber"`
	Email            string     `json:"email"`
	CreatedTimestamp time.Time  `json:"createdTimestamp"`
	UpdatedTimestamp time.Time  `json:"updatedTimestamp"`
}

// NewUserResponse maps a domain user; the password hash is never exposed.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:   u.ID,
		Name: u.Name,
		Address: AddressDTO{
			Line1:    u.Address.Line1,
			Line2:    u.Address.Line2,
			Line3:    u.Address.Line3,
			Town:     u.Address.Town,
			County:   u.Address.County,
			Postcode: u.Address.Postcode,
		},
		PhoneNumber:      u.PhoneNumber,
		Email:            u.Email,
		CreatedTimestamp: u.CreatedAt,
		UpdatedTimestamp: u.UpdatedAt,
	}
}
