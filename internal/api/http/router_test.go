package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/bank-auth-service/internal/api/http/handlers"
	"github.com/spec-kit/bank-auth-service/internal/auth"
	"github.com/spec-kit/bank-auth-service/internal/config"
	"github.com/spec-kit/bank-auth-service/internal/domain"
	"github.com/spec-kit/bank-auth-service/internal/events"
	"github.com/spec-kit/bank-auth-service/internal/observability"
	"github.com/spec-kit/bank-auth-service/internal/repository"
	"github.com/spec-kit/bank-auth-service/internal/service"
)

const testPassword = "right-secret"

type memoryUsers struct {
	mu    sync.Mutex
	byID  map[string]*domain.User
	email map[string]string
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[string]*domain.User{}, email: map[string]string{}}
}

func (m *memoryUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.email[user.Email]; ok {
		return repository.ErrDuplicate
	}
	m.byID[user.ID] = user
	m.email[user.Email] = user.ID
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (m *memoryUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.email[email]
	return ok, nil
}

func (m *memoryUsers) FindByIdentifier(_ context.Context, identifier string) (domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.email[identifier]
	if !ok {
		return domain.Identity{}, domain.ErrIdentityNotFound
	}
	return m.byID[id].Identity()
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type testServer struct {
	app    *fiber.App
	clock  *fakeClock
	logs   *observer.ObservedLogs
	tokens *auth.TokenService
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	clock := &fakeClock{now: time.Now().Truncate(time.Second)}
	tokens, err := auth.NewTokenService([]byte("20d05c6b1898cdceef37a138527dd461cfe11d068cc6b36f6b40d9ae47a333f5"),
		30*time.Minute, auth.WithClock(clock.Now))
	require.NoError(t, err)

	users := newMemoryUsers()
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	service.NewAuditService(dispatcher, logger, nil, config.EventsConfig{}).RegisterHandlers()

	authService := service.NewAuthService(service.AuthDependencies{
		Verifier:   auth.NewCredentialVerifier(users, hasher),
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	userService := service.NewUserService(users, hasher, dispatcher, logger)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("test", "dev", logger, handlers.Dependency{Name: "postgres", Pinger: okPinger{}}),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: auth.NewAuthMiddleware(authService),
		Metrics:        metrics,
	})

	return &testServer{app: app, clock: clock, logs: logs, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func createUserBody(email string) map[string]any {
	return map[string]any{
		"name": "Test User",
		"address": map[string]any{
			"line1":    "123 Test St",
			"town":     "Test Town",
			"county":   "Test County",
			"postcode": "AB1 2CD",
		},
		"email":       email,
		"password":    testPassword,
		"phoneNumber": "+442071234567",
	}
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func errorMessage(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	msg, _ := e["message"].(string)
	return msg
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	status, body := s.do(t, stdhttp.MethodPost, "/v1/users", createUserBody(email), "")
	require.Equal(t, stdhttp.StatusCreated, status, body)
	id, _ := body["id"].(string)
	require.True(t, strings.HasPrefix(id, domain.UserIDPrefix))
	return id
}

func (s *testServer) login(t *testing.T, email, password string) (int, map[string]any) {
	t.Helper()
	return s.do(t, stdhttp.MethodPost, "/v1/auth/login", map[string]string{"email": email, "password": password}, "")
}

func TestCreateUser(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, stdhttp.MethodPost, "/v1/users", createUserBody("a@b.com"), "")
	require.Equal(t, stdhttp.StatusCreated, status)
	assert.Equal(t, "a@b.com", body["email"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "passwordHash")

	status, body = s.do(t, stdhttp.MethodPost, "/v1/users", createUserBody("a@b.com"), "")
	assert.Equal(t, stdhttp.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST", errorCode(body))
	assert.Equal(t, "Invalid user details provided.", errorMessage(body))
}

func TestCreateUserValidation(t *testing.T) {
	s := newTestServer(t)

	req := createUserBody("not-an-email")
	req["phoneNumber"] = "12345"
	status, body := s.do(t, stdhttp.MethodPost, "/v1/users", req, "")
	require.Equal(t, stdhttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	details := body["error"].(map[string]any)["details"].(map[string]any)
	fields := details["fields"].([]any)
	var names []string
	for _, f := range fields {
		names = append(names, f.(map[string]any)["field"].(string))
	}
	assert.Equal(t, []string{"email", "phoneNumber"}, names)

	status, body = s.do(t, stdhttp.MethodPost, "/v1/users", "{not json", "")
	assert.Equal(t, stdhttp.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST", errorCode(body))
}

func TestCreateUserRejectsPasswordOverBcryptLimit(t *testing.T) {
	s := newTestServer(t)

	req := createUserBody("a@b.com")
	req["password"] = strings.Repeat("😀", 20)
	status, body := s.do(t, stdhttp.MethodPost, "/v1/users", req, "")
	assert.Equal(t, stdhttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestLoginTwiceInOneSecondIssuesDistinctTokens(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "a@b.com")

	_, first := s.login(t, "a@b.com", testPassword)
	s.clock.Advance(500 * time.Millisecond)
	_, second := s.login(t, "a@b.com", testPassword)

	require.NotEmpty(t, first["token"])
	assert.NotEqual(t, first["token"], second["token"])
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	userID := s.register(t, "a@b.com")

	status, body := s.login(t, "a@b.com", testPassword)
	require.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, "Bearer", body["type"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	assert.True(t, s.tokens.IsValidFor(token, userID), "token subject is the user id")

	wrongStatus, wrongBody := s.login(t, "a@b.com", "wrong")
	unknownStatus, unknownBody := s.login(t, "nobody@b.com", "x")

	assert.Equal(t, stdhttp.StatusUnauthorized, wrongStatus)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(wrongBody))
	assert.Equal(t, wrongStatus, unknownStatus)
	assert.Equal(t, wrongBody, unknownBody)
}

func TestGetUserOwnership(t *testing.T) {
	s := newTestServer(t)
	aliceID := s.register(t, "alice@b.com")
	bobID := s.register(t, "bob@b.com")

	_, body := s.login(t, "alice@b.com", testPassword)
	token := body["token"].(string)

	status, body := s.do(t, stdhttp.MethodGet, "/v1/users/"+aliceID, nil, token)
	require.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, aliceID, body["id"])

	status, body = s.do(t, stdhttp.MethodGet, "/v1/users/"+bobID, nil, token)
	assert.Equal(t, stdhttp.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))
}

func TestGetUserTokenFailuresLookAlike(t *testing.T) {
	s := newTestServer(t)
	userID := s.register(t, "a@b.com")
	_, body := s.login(t, "a@b.com", testPassword)
	token := body["token"].(string)

	missingStatus, missingBody := s.do(t, stdhttp.MethodGet, "/v1/users/"+userID, nil, "")
	badStatus, badBody := s.do(t, stdhttp.MethodGet, "/v1/users/"+userID, nil, token+"x")

	s.clock.Advance(30 * time.Minute)
	expiredStatus, expiredBody := s.do(t, stdhttp.MethodGet, "/v1/users/"+userID, nil, token)

	for _, status := range []int{missingStatus, badStatus, expiredStatus} {
		assert.Equal(t, stdhttp.StatusUnauthorized, status)
	}
	assert.Equal(t, "Access token is missing or invalid", errorMessage(expiredBody))
	assert.Equal(t, missingBody, badBody)
	assert.Equal(t, badBody, expiredBody)

	var internalCodes []string
	for _, entry := range s.logs.FilterMessage("authentication failed").All() {
		internalCodes = append(internalCodes, entry.ContextMap()["code"].(string))
	}
	assert.Equal(t, []string{"TOKEN_INVALID", "TOKEN_INVALID", "TOKEN_EXPIRED"}, internalCodes)
}

func TestSecretsNeverLogged(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "a@b.com")
	_, body := s.login(t, "a@b.com", testPassword)
	token := body["token"].(string)
	s.login(t, "a@b.com", "wrong-secret-value")

	for _, entry := range s.logs.All() {
		line := fmt.Sprintf("%s %v", entry.Message, entry.ContextMap())
		assert.NotContains(t, line, testPassword)
		assert.NotContains(t, line, "wrong-secret-value")
		assert.NotContains(t, line, token)
		assert.NotContains(t, line, "a@b.com")
	}
	assert.NotEmpty(t, s.logs.FilterMessage("login failed").All())
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, stdhttp.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	req := httptest.NewRequest(stdhttp.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "bank_auth_http_requests_total")
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, stdhttp.MethodGet, "/v1/nope", nil, "")
	assert.Equal(t, stdhttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}
