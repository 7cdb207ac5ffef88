package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/bank-auth-service/internal/auth"
	"github.com/spec-kit/bank-auth-service/internal/domain"
	"github.com/spec-kit/bank-auth-service/internal/events"
	"github.com/spec-kit/bank-auth-service/internal/repository"
)

var (
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound is returned when no customer has the requested id.
	ErrUserNotFound = errors.New("user not found")
)

// CreateUserInput carries validated registration data.
type CreateUserInput struct {
	Name        string
	Email       string
	Password    string
	PhoneNumber string
	Address     domain.Address
}

// UserService manages customer records.
type UserService struct {
	users      repository.UserRepository
	hasher     auth.PasswordHasher
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewUserService builds the service.
func NewUserService(users repository.UserRepository, hasher auth.PasswordHasher, dispatcher events.Dispatcher, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:      users,
		hasher:     hasher,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateUser registers a new customer with a hashed password.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	exists, err := s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := domain.NewUser(domain.NewUserParams{
		Name:         in.Name,
		Email:        in.Email,
		PhoneNumber:  in.PhoneNumber,
		PasswordHash: hash,
		Address:      in.Address,
	}, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", user.ID))

	if s.dispatcher != nil {
		event := events.NewEvent(events.EventUserCreated, user.ID, user.CreatedAt, events.UserCreatedPayload{IdentifierHash: events.HashIdentifier(user.Email)})
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("auth event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}
	return user, nil
}

// GetUser returns the customer with id. Ownership is checked by the caller.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
