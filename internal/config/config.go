package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	MongoURL           string
	MongoDBPrefix      string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string
	TenantHeader       string
	TenantRootDomain   string
	DefaultTenant      string
	CartDefaultLimit   int
	CartMaxLimit       int
	OrderDefaultLimit  int
	OrderMaxLimit      int
	ProductCacheTTL    time.Duration
	RateLimitMax       int
	RateLimitWindow    time.Duration
	WebhookURL         string
	WebhookSecret      string
	WebhookTimeout     time.Duration
	ShutdownTimeout    time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		MongoURL:           k.String("MONGO_URL"),
		MongoDBPrefix:      valueOrDefault(k.String("MONGO_DB_PREFIX"), "gerai_"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		TenantHeader:       valueOrDefault(k.String("TENANT_HEADER"), "X-Tenant-ID"),
		TenantRootDomain:   strings.TrimSpace(k.String("TENANT_ROOT_DOMAIN")),
		DefaultTenant:      strings.TrimSpace(k.String("TENANT_DEFAULT")),
		CartDefaultLimit:   parseInt(k.String("CART_DEFAULT_LIMIT"), 10),
		CartMaxLimit:       parseInt(k.String("CART_MAX_LIMIT"), 50),
		OrderDefaultLimit:  parseInt(k.String("ORDER_DEFAULT_LIMIT"), 20),
		OrderMaxLimit:      parseInt(k.String("ORDER_MAX_LIMIT"), 100),
		ProductCacheTTL:    parseDuration(k.String("PRODUCT_CACHE_TTL"), "5m"),
		RateLimitMax:       parseInt(k.String("RATE_LIMIT_MAX"), 120),
		RateLimitWindow:    parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		WebhookURL:         strings.TrimSpace(k.String("ORDER_WEBHOOK_URL")),
		WebhookSecret:      k.String("ORDER_WEBHOOK_SECRET"),
		WebhookTimeout:     parseDuration(k.String("ORDER_WEBHOOK_TIMEOUT"), "5s"),
		ShutdownTimeout:    parseDuration(k.String("SHUTDOWN_TIMEOUT"), "10s"),
	}

	if cfg.MongoURL == "" {
		return nil, errors.New("MONGO_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
