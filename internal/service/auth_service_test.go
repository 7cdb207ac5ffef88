package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/bank-auth-service/internal/auth"
	"github.com/spec-kit/bank-auth-service/internal/domain"
	"github.com/spec-kit/bank-auth-service/internal/events"
	"github.com/spec-kit/bank-auth-service/internal/observability"
)

type stubVerifier struct {
	identity domain.Identity
	err      error
}

func (s stubVerifier) Authenticate(context.Context, string, string) (domain.Identity, error) {
	return s.identity, s.err
}

type stubTokens struct {
	issued   []string
	validate func(string) (domain.AuthenticatedIdentity, error)
}

func (s *stubTokens) Issue(subjectID string) (domain.Token, error) {
	s.issued = append(s.issued, subjectID)
	now := time.Unix(1_700_000_000, 0).UTC()
	return domain.Token{AccessToken: "signed-" + subjectID, TokenType: domain.TokenTypeBearer, IssuedAt: now, ExpiresAt: now.Add(30 * time.Minute)}, nil
}

func (s *stubTokens) Validate(token string) (domain.AuthenticatedIdentity, error) {
	return s.validate(token)
}

func assertSeries(t *testing.T, m *observability.Metrics, name string, want int) {
	t.Helper()
	got, err := testutil.GatherAndCount(m.Registry(), name)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func recordEvents(d events.Dispatcher) *[]events.Event {
	var got []events.Event
	d.Subscribe(func(_ context.Context, e events.Event) error {
		got = append(got, e)
		return nil
	}, auditedEvents...)
	return &got
}

func TestLoginIssuesTokenForUserID(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	got := recordEvents(dispatcher)
	tokens := &stubTokens{}
	metrics := observability.NewMetrics()

	svc := NewAuthService(AuthDependencies{
		Verifier:   stubVerifier{identity: domain.Identity{ID: "usr-abc", Identifier: "a@b.com", SecretHash: "h"}},
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})

	token, err := svc.Login(context.Background(), "a@b.com", "right-secret")
	require.NoError(t, err)
	assert.Equal(t, "signed-usr-abc", token.AccessToken)
	assert.Equal(t, []string{"usr-abc"}, tokens.issued)

	require.Len(t, *got, 1)
	assert.Equal(t, events.EventLoginSucceeded, (*got)[0].Type)
	assert.Equal(t, "usr-abc", (*got)[0].SubjectID)
	assertSeries(t, metrics, "bank_auth_logins_total", 1)
}

func TestLoginFailurePublishesEventWithoutSecret(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	got := recordEvents(dispatcher)
	tokens := &stubTokens{}
	metrics := observability.NewMetrics()

	svc := NewAuthService(AuthDependencies{
		Verifier:   stubVerifier{err: auth.ErrInvalidCredentials},
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})

	_, err := svc.Login(context.Background(), "a@b.com", "wrong-secret")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Empty(t, tokens.issued)

	require.Len(t, *got, 1)
	event := (*got)[0]
	assert.Equal(t, events.EventLoginFailed, event.Type)
	assert.Empty(t, event.SubjectID)

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "wrong-secret")
	assert.NotContains(t, string(raw), "a@b.com")
	assert.Contains(t, string(raw), "invalid_credentials")
	assert.Contains(t, string(raw), events.HashIdentifier("a@b.com"))
	assertSeries(t, metrics, "bank_auth_logins_total", 1)
}

func TestLoginInfrastructureErrorPassesThrough(t *testing.T) {
	storeErr := errors.New("connection refused")
	svc := NewAuthService(AuthDependencies{
		Verifier: stubVerifier{err: storeErr},
		Tokens:   &stubTokens{},
	})

	_, err := svc.Login(context.Background(), "a@b.com", "x")
	require.ErrorIs(t, err, storeErr)
	assert.Equal(t, auth.KindInfrastructure, auth.KindOf(err))
}

func TestAuthorize(t *testing.T) {
	metrics := observability.NewMetrics()
	tokens := &stubTokens{validate: func(token string) (domain.AuthenticatedIdentity, error) {
		switch token {
		case "good":
			return domain.AuthenticatedIdentity{Subject: "usr-abc"}, nil
		case "old":
			return domain.AuthenticatedIdentity{}, auth.ErrTokenExpired
		}
		return domain.AuthenticatedIdentity{}, auth.ErrTokenInvalid
	}}
	svc := NewAuthService(AuthDependencies{Tokens: tokens, Metrics: metrics})

	caller, err := svc.Authorize("good")
	require.NoError(t, err)
	assert.Equal(t, "usr-abc", caller.Subject)

	_, err = svc.Validate("old")
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
	_, err = svc.Validate("junk")
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)

	assertSeries(t, metrics, "bank_auth_token_validations_total", 3)
}
