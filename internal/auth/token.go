package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/bank-auth-service/internal/domain"
)

// signingMethod is the only algorithm issued or accepted.
var signingMethod = jwt.SigningMethodHS256

// TokenService issues and validates signed, time-bounded access tokens.
// It holds no mutable state and is safe for concurrent use.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(ts *TokenService) {
		if now != nil {
			ts.now = now
		}
	}
}

// NewTokenService builds a new service. The secret is copied.
func NewTokenService(secret []byte, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing key is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("token lifetime must be positive")
	}
	ts := &TokenService{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts, nil
}

// TTL returns the configured token lifetime.
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// Issue builds and signs a token for an already authenticated subject. Each
// token carries a fresh jti, so two issues never yield the same string.
func (ts *TokenService) Issue(subjectID string) (domain.Token, error) {
	if subjectID == "" {
		return domain.Token{}, errors.New("token subject is empty")
	}

	// NumericDate has second precision; anchor both claims on the same second.
	issuedAt := ts.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ts.ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(ts.secret)
	if err != nil {
		return domain.Token{}, err
	}
	return domain.Token{
		AccessToken: signed,
		TokenType:   domain.TokenTypeBearer,
		IssuedAt:    claims.IssuedAt.Time,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// Validate verifies the signature and then the expiry of tokenStr.
// It returns ErrTokenInvalid or ErrTokenExpired on failure.
func (ts *TokenService) Validate(tokenStr string) (domain.AuthenticatedIdentity, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(ts.now),
	)

	claims := &jwt.RegisteredClaims{}
	_, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != signingMethod {
			return nil, errors.New("unexpected signing method")
		}
		return ts.secret, nil
	})
	if err != nil {
		// Signature checks run before claim checks, so an expired error
		// implies the signature matched.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.AuthenticatedIdentity{}, &Error{Kind: KindTokenExpired, cause: err}
		}
		return domain.AuthenticatedIdentity{}, tokenInvalid(err)
	}
	if claims.Subject == "" {
		return domain.AuthenticatedIdentity{}, tokenInvalid(errors.New("token subject missing"))
	}

	return domain.AuthenticatedIdentity{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

// IsValidFor reports whether tokenStr is valid and was issued to expectedSubjectID.
func (ts *TokenService) IsValidFor(tokenStr, expectedSubjectID string) bool {
	identity, err := ts.Validate(tokenStr)
	if err != nil {
		return false
	}
	return identity.Subject == expectedSubjectID
}
