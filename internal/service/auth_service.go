package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/bank-auth-service/internal/auth"
	"github.com/spec-kit/bank-auth-service/internal/domain"
	"github.com/spec-kit/bank-auth-service/internal/events"
	"github.com/spec-kit/bank-auth-service/internal/observability"
)

// Authenticator verifies a credential pair.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, secret string) (domain.Identity, error)
}

// TokenIssuer issues and validates access tokens.
type TokenIssuer interface {
	Issue(subjectID string) (domain.Token, error)
	Validate(token string) (domain.AuthenticatedIdentity, error)
}

// AuthService coordinates the login flow and bearer token checks.
type AuthService struct {
	verifier   Authenticator
	tokens     TokenIssuer
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// AuthDependencies encapsulates requirements for auth service.
type AuthDependencies struct {
	Verifier   Authenticator
	Tokens     TokenIssuer
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		verifier:   deps.Verifier,
		tokens:     deps.Tokens,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Login authenticates a customer by email and password and issues a token
// whose subject is the customer's id.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.Token, error) {
	identity, err := s.verifier.Authenticate(ctx, email, password)
	if err != nil {
		kind := auth.KindOf(err)
		s.metrics.RecordLogin(kind.String())
		s.publish(ctx, events.NewEvent(events.EventLoginFailed, "", s.now(), events.LoginFailedPayload{
			IdentifierHash: events.HashIdentifier(email),
			Reason:         kind.String(),
		}))
		if kind == auth.KindInfrastructure {
			s.logger.Error("login lookup failed", zap.Error(err))
		}
		return domain.Token{}, err
	}

	token, err := s.tokens.Issue(identity.ID)
	if err != nil {
		return domain.Token{}, err
	}

	s.metrics.RecordLogin("success")
	s.publish(ctx, events.NewEvent(events.EventLoginSucceeded, identity.ID, token.IssuedAt, nil))
	return token, nil
}

// Authorize validates a bearer token and returns the caller identity.
func (s *AuthService) Authorize(token string) (domain.AuthenticatedIdentity, error) {
	identity, err := s.tokens.Validate(token)
	if err != nil {
		s.metrics.RecordTokenValidation(auth.KindOf(err).String())
		return domain.AuthenticatedIdentity{}, err
	}
	s.metrics.RecordTokenValidation("ok")
	return identity, nil
}

// Validate satisfies auth.TokenValidator so the middleware goes through Authorize.
func (s *AuthService) Validate(token string) (domain.AuthenticatedIdentity, error) {
	return s.Authorize(token)
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("auth event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
