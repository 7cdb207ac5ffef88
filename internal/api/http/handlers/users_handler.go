package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bank-auth-service/internal/api/dto"
	"github.com/spec-kit/bank-auth-service/internal/domain"
	"github.com/spec-kit/bank-auth-service/internal/service"
	apperrors "github.com/spec-kit/bank-auth-service/pkg/util"
)

// UserService is what the users handler needs from the user service.
type UserService interface {
	CreateUser(ctx context.Context, in service.CreateUserInput) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// UsersHandler exposes customer endpoints.
type UsersHandler struct {
	users UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// Create handles POST /v1/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidRequest("Required request body is missing or malformed")
	}
	if err := validate(req); err != nil {
		return err
	}

	user, err := h.users.CreateUser(c.UserContext(), service.CreateUserInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Address:     req.DomainAddress(),
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.NewUserResponse(user))
}

// Get handles GET /v1/users/:userId. Ownership is enforced by the route.
func (h *UsersHandler) Get(c *fiber.Ctx, _ domain.AuthenticatedIdentity) error {
	user, err := h.users.GetUser(c.UserContext(), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}
