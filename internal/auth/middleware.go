package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bank-auth-service/internal/domain"
)

// IdentityHandler is a route handler that receives the caller's validated identity.
type IdentityHandler func(c *fiber.Ctx, caller domain.AuthenticatedIdentity) error

// TokenValidator is the part of TokenService the middleware uses.
type TokenValidator interface {
	Validate(token string) (domain.AuthenticatedIdentity, error)
}

// AuthMiddleware validates bearer tokens.
type AuthMiddleware struct {
	tokens TokenValidator
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Protected adapts next into a fiber handler that only runs with a valid
// bearer token. The identity is passed to next as an argument.
func (m *AuthMiddleware) Protected(next IdentityHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := m.Authenticate(c)
		if err != nil {
			return err
		}
		return next(c, caller)
	}
}

// Authenticate validates the request's Authorization header.
func (m *AuthMiddleware) Authenticate(c *fiber.Ctx) (domain.AuthenticatedIdentity, error) {
	token, err := BearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return domain.AuthenticatedIdentity{}, err
	}
	return m.tokens.Validate(token)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", tokenInvalid(errMissingHeader)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], domain.TokenTypeBearer) {
		return "", tokenInvalid(errMalformedHeader)
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", tokenInvalid(errMalformedHeader)
	}
	return token, nil
}

var (
	errMissingHeader   = errors.New("missing authorization header")
	errMalformedHeader = errors.New("invalid authorization header")
)
