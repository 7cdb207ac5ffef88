package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bank-auth-service/internal/domain"
	apperrors "github.com/spec-kit/bank-auth-service/pkg/util"
)

// RequireOwner ensures the caller owns the resource named by the route param.
func RequireOwner(param string, next IdentityHandler) IdentityHandler {
	return func(c *fiber.Ctx, caller domain.AuthenticatedIdentity) error {
		if !caller.Owns(c.Params(param)) {
			return apperrors.NewForbidden("Not authorized to perform this action")
		}
		return next(c, caller)
	}
}
