package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spec-kit/bank-auth-service/internal/domain"
)

// UserStore is the lookup the verifier needs. Implementations return
// domain.ErrIdentityNotFound when nothing matches.
type UserStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (domain.Identity, error)
}

// CredentialVerifier checks an (identifier, secret) pair against stored hashes.
type CredentialVerifier struct {
	users  UserStore
	hasher PasswordHasher

	decoyOnce sync.Once
	decoyHash string
}

// NewCredentialVerifier constructs a verifier.
func NewCredentialVerifier(users UserStore, hasher PasswordHasher) *CredentialVerifier {
	return &CredentialVerifier{users: users, hasher: hasher}
}

// Authenticate returns the identity matching identifier when secret matches
// its stored hash. Unknown identifiers and wrong secrets both yield
// ErrInvalidCredentials. The identifier is matched exactly as given.
func (v *CredentialVerifier) Authenticate(ctx context.Context, identifier, secret string) (domain.Identity, error) {
	identity, err := v.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			v.compareDecoy(secret)
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{}, fmt.Errorf("lookup identity: %w", err)
	}

	ok, err := v.hasher.Matches(secret, identity.SecretHash)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("compare secret: %w", err)
	}
	if !ok {
		return domain.Identity{}, ErrInvalidCredentials
	}
	return identity, nil
}

// compareDecoy spends roughly the same time as a real comparison so an
// unknown identifier is not distinguishable by latency.
func (v *CredentialVerifier) compareDecoy(secret string) {
	v.decoyOnce.Do(func() {
		v.decoyHash, _ = v.hasher.Hash("decoy-secret-for-unknown-identifiers")
	})
	if v.decoyHash != "" {
		_, _ = v.hasher.Matches(secret, v.decoyHash)
	}
}
