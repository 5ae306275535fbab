package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,     default=8080"`
	Env      string `env:"ENV,      default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// BaseURL is the externally visible origin, used in outbound email links.
	BaseURL string `env:"BASE_URL, default=http://localhost:8080"`

	Auth  AuthConfig
	Mongo MongoConfig
	Redis RedisConfig
	OAuth OAuthConfig
}

type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET"`
	AccessTTL  time.Duration `env:"ACCESS_TOKEN_TTL,  default=15m"`
	RefreshTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=720h"`
	SessionTTL time.Duration `env:"SESSION_TTL,       default=720h"`
	BcryptCost int           `env:"BCRYPT_COST,       default=12"`

	// DisposableDomains extends the built-in throwaway-domain denylist.
	DisposableDomains []string `env:"DISPOSABLE_DOMAINS"`

	// ImplicitTenantLink restores legacy sign-in-links-tenant behaviour.
	ImplicitTenantLink bool `env:"IMPLICIT_TENANT_LINK, default=false"`

	// GateMaxRequests per GateWindow per client IP on protected endpoints.
	GateMaxRequests int64         `env:"GATE_MAX_REQUESTS, default=120"`
	GateWindow      time.Duration `env:"GATE_WINDOW,       default=1m"`

	AuditWorkers int `env:"AUDIT_WORKERS, default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity"`
}

// RedisConfig configures the shared rate-limit counters. An empty Addr runs
// the service without Redis, falling back to in-process counters.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type OAuthConfig struct {
	SuccessURL string `env:"OAUTH_SUCCESS_URL, default=/dashboard"`
	ErrorURL   string `env:"OAUTH_ERROR_URL,   default=/auth/error"`

	GoogleClientID     string `env:"OAUTH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"OAUTH_GOOGLE_CLIENT_SECRET"`
	GitHubClientID     string `env:"OAUTH_GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"OAUTH_GITHUB_CLIENT_SECRET"`
}

// DefaultDisposableDomains is the built-in throwaway-inbox denylist; the
// DISPOSABLE_DOMAINS variable appends to it.
var DefaultDisposableDomains = []string{
	"mailinator.com",
	"guerrillamail.com",
	"10minutemail.com",
	"tempmail.com",
	"yopmail.com",
	"sharklasers.com",
	"throwawaymail.com",
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}
	cfg.Auth.DisposableDomains = append(cfg.Auth.DisposableDomains, DefaultDisposableDomains...)
	return &cfg, nil
}
