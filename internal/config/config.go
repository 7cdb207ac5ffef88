package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// MinJWTSecretBytes is the shortest accepted HS256 signing key.
const MinJWTSecretBytes = 32

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Events   EventsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior. Format is "json" or "console".
type LoggerConfig struct {
	Level   string
	Format  string
	Service string
}

// AuthConfig defines authentication parameters. JWTSecret must never be logged.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// EventsConfig controls where auth audit events are published.
type EventsConfig struct {
	RedisChannel string
}

// Load reads configuration from environment variables, applying defaults where
// possible. A set but unparsable value is an error rather than a silent default.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var env envReader
	cfg := &Config{
		App: AppConfig{
			Name:                  env.get("APP_NAME", "bank-auth-service"),
			Env:                   env.get("APP_ENV", "development"),
			Host:                  env.get("APP_HOST", "0.0.0.0"),
			Port:                  env.get("APP_PORT", "8080"),
			Version:               env.get("APP_VERSION", "dev"),
			RequestTimeoutSeconds: env.getInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(env.getInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(env.getInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  env.getBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  env.get("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(env.getInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(env.getInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       env.getInt("REDIS_DB", 0),
		},
		Logger: LoggerConfig{
			Level:  env.get("LOG_LEVEL", "info"),
			Format: env.get("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             os.Getenv("AUTH_JWT_SECRET"),
			AccessTokenTTLMinutes: env.getInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 30),
			BcryptCost:            env.getInt("AUTH_BCRYPT_COST", 12),
		},
		Events: EventsConfig{
			RedisChannel: env.get("EVENTS_REDIS_CHANNEL", "auth.events"),
		},
	}
	cfg.Logger.Service = cfg.App.Name
	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < MinJWTSecretBytes {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least %d bytes", MinJWTSecretBytes)
	}
	if c.Auth.AccessTokenTTLMinutes <= 0 {
		return errors.New("AUTH_ACCESS_TOKEN_TTL_MINUTES must be positive")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// envReader looks up variables and collects parse failures.
type envReader struct {
	errs []error
}

func (e *envReader) get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func (e *envReader) getInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return parsed
}

func (e *envReader) getBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return parsed
}
