package auth

import "errors"

// Kind enumerates the failure classes reported by the verifier and token service.
type Kind int

const (
	// KindNone means the error is nil.
	KindNone Kind = iota
	// KindInvalidCredentials covers both an unknown identifier and a wrong secret.
	KindInvalidCredentials
	// KindTokenInvalid covers malformed tokens, bad signatures and algorithm mismatches.
	KindTokenInvalid
	// KindTokenExpired is a well-formed, correctly signed token past its expiry.
	KindTokenExpired
	// KindInfrastructure is anything else, e.g. a user store failure.
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindTokenInvalid:
		return "token_invalid"
	case KindTokenExpired:
		return "token_expired"
	case KindInfrastructure:
		return "infrastructure"
	}
	return "unknown"
}

// Error is a classified authentication failure. The cause is kept for
// internal logging and is never part of Error().
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidCredentials:
		return "invalid credentials"
	case KindTokenExpired:
		return "token expired"
	default:
		return "token invalid"
	}
}

// Cause returns the underlying reason, if any.
func (e *Error) Cause() error {
	return e.cause
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrTokenInvalid       = &Error{Kind: KindTokenInvalid}
	ErrTokenExpired       = &Error{Kind: KindTokenExpired}
)

func tokenInvalid(cause error) error {
	return &Error{Kind: KindTokenInvalid, cause: cause}
}

// KindOf classifies err.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindInfrastructure
}
