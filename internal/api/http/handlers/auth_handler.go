package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bank-auth-service/internal/api/dto"
	"github.com/spec-kit/bank-auth-service/internal/domain"
	apperrors "github.com/spec-kit/bank-auth-service/pkg/util"
)

// LoginService is what the auth handler needs from the auth service.
type LoginService interface {
	Login(ctx context.Context, email, password string) (domain.Token, error)
}

// AuthHandler exposes the login endpoint.
type AuthHandler struct {
	auth LoginService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService LoginService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidRequest("Required request body is missing or malformed")
	}
	if err := validate(req); err != nil {
		return err
	}

	token, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(dto.LoginResponse{
		Token:     token.AccessToken,
		Type:      token.TokenType,
		ExpiresAt: token.ExpiresAt,
	})
}
