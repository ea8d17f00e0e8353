package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the gateway.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Backends BackendsConfig
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

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token signing parameters. JWTSecret has no default;
// an empty secret is rejected when the token service is built.
type AuthConfig struct {
	JWTSecret        string
	Issuer           string
	Audience         string
	TokenTTLMinutes  int
	AllowAdminSignup bool
}

// BackendsConfig holds addresses and call policy for the RPC back ends.
type BackendsConfig struct {
	UserAddr                string
	ProductAddr             string
	OrderAddr               string
	CallTimeoutSeconds      int
	BreakerMaxRequests      uint32
	BreakerIntervalSeconds  int
	BreakerTimeoutSeconds   int
	BreakerFailureThreshold uint32
	RateLimitRPS            float64
	RateLimitBurst          int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	rps, err := strconv.ParseFloat(getEnv("BACKEND_RATE_LIMIT_RPS", "200"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid BACKEND_RATE_LIMIT_RPS: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "storefront-bff"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:        os.Getenv("AUTH_JWT_SECRET"),
			Issuer:           getEnv("AUTH_JWT_ISSUER", "storefront-bff"),
			Audience:         getEnv("AUTH_JWT_AUDIENCE", "storefront-clients"),
			TokenTTLMinutes:  getEnvAsInt("AUTH_TOKEN_TTL_MINUTES", 24*60),
			AllowAdminSignup: getEnvAsBool("AUTH_ALLOW_ADMIN_SIGNUP", false),
		},
		Backends: BackendsConfig{
			UserAddr:                getEnv("BACKEND_USER_ADDR", "127.0.0.1:50051"),
			ProductAddr:             getEnv("BACKEND_PRODUCT_ADDR", "127.0.0.1:50052"),
			OrderAddr:               getEnv("BACKEND_ORDER_ADDR", "127.0.0.1:50053"),
			CallTimeoutSeconds:      getEnvAsInt("BACKEND_CALL_TIMEOUT_SECONDS", 5),
			BreakerMaxRequests:      uint32(getEnvAsInt("BACKEND_BREAKER_MAX_REQUESTS", 3)),
			BreakerIntervalSeconds:  getEnvAsInt("BACKEND_BREAKER_INTERVAL_SECONDS", 30),
			BreakerTimeoutSeconds:   getEnvAsInt("BACKEND_BREAKER_TIMEOUT_SECONDS", 15),
			BreakerFailureThreshold: uint32(getEnvAsInt("BACKEND_BREAKER_FAILURE_THRESHOLD", 5)),
			RateLimitRPS:            rps,
			RateLimitBurst:          getEnvAsInt("BACKEND_RATE_LIMIT_BURST", 50),
		},
	}

	return cfg, nil
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

// TokenTTL returns the token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

// CallTimeout returns the per-call deadline applied to backend RPCs.
func (b BackendsConfig) CallTimeout() time.Duration {
	if b.CallTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(b.CallTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
