package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env             string
	HTTPHost        string
	HTTPPort        string
	DatabasePath    string
	RedisAddr       string
	JWTIssuer       string
	JWTSigningKey   string
	TokenTTL        time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
	SeedDemoData    bool
	LogLevel        string
}

// ErrMissingSigningKey is returned when JWT_SIGNING_KEY is unset in production.
// The server must refuse to start rather than fall back to a default secret.
var ErrMissingSigningKey = errors.New("JWT_SIGNING_KEY must be set when APP_ENV=production")

// Load returns application config populated from environment variables with
// sensible defaults. A .env file in the working directory is applied first.
func Load() (App, error) {
	_ = godotenv.Load()

	cfg := App{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPHost:        getEnv("HTTP_HOST", "0.0.0.0"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DatabasePath:    getEnv("DATABASE_PATH", "attendance.db"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "rollcall"),
		JWTSigningKey:   getEnv("JWT_SIGNING_KEY", ""),
		TokenTTL:        durationEnv("TOKEN_TTL", 24*time.Hour),
		RateLimitMax:    intEnv("RATE_LIMIT_MAX", 100),
		RateLimitWindow: durationEnv("RATE_LIMIT_WINDOW", 15*time.Minute),
		SeedDemoData:    boolEnv("SEED_DEMO_DATA", true),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	if cfg.JWTSigningKey == "" {
		if cfg.Production() {
			return App{}, ErrMissingSigningKey
		}
		cfg.JWTSigningKey = "dev-signing-secret-change"
	}
	return cfg, nil
}

// Production reports whether the app runs in a production deployment.
func (a App) Production() bool {
	return a.Env == "production" || a.Env == "prod"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		log.Printf("invalid bool for %s, using fallback %v", key, fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
