package domain

import (
	"errors"
	"time"
)

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "Bearer"

// ErrIdentityNotFound is returned by user stores when no identity matches.
var ErrIdentityNotFound = errors.New("identity not found")

// Identity is the read-only view of a registered customer used to verify credentials.
type Identity struct {
	ID         string
	Identifier string
	SecretHash string
}

// NewIdentity builds an Identity; all fields are required.
func NewIdentity(id, identifier, secretHash string) (Identity, error) {
	switch {
	case id == "":
		return Identity{}, &FieldError{Field: "id"}
	case identifier == "":
		return Identity{}, &FieldError{Field: "identifier"}
	case secretHash == "":
		return Identity{}, &FieldError{Field: "secret_hash"}
	}
	return Identity{ID: id, Identifier: identifier, SecretHash: secretHash}, nil
}

// Token represents an issued access token.
type Token struct {
	AccessToken string
	TokenType   string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// AuthenticatedIdentity is the subject extracted from a token that passed
// signature and expiry checks.
type AuthenticatedIdentity struct {
	Subject   string
	ExpiresAt time.Time
}

// Owns reports whether the authenticated subject is the owner of resourceID.
func (a AuthenticatedIdentity) Owns(resourceID string) bool {
	return a.Subject != "" && a.Subject == resourceID
}
