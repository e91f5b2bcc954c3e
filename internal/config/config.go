package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// maxHorizonDays is the default and upper bound of AVAILABILITY_MAX_HORIZON_DAYS.
const maxHorizonDays = 365

// Config holds all application configuration loaded from environment.
type Config struct {
	AppEnv         string
	IsProduction   bool
	ProdOrigins    string
	HTTPAddr       string
	DBDSN          string
	DBLockPoolSize int
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	JWTLeeway      time.Duration

	// Optional infrastructure. Empty values disable the component.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KafkaBrokers  []string
	KafkaTopic    string

	AvailabilityCacheTTL       time.Duration
	AvailabilityMaxHorizonDays int
	CompletionSweepInterval    time.Duration
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg := &Config{}
	var err error

	// Application environment (default: dev)
	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.IsProduction = cfg.AppEnv == PROD_STRING

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}
	cfg.DBLockPoolSize, err = getEnvAsInt("DB_LOCK_POOL_SIZE", 16)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_LOCK_POOL_SIZE: %w", err)
	}
	if cfg.DBLockPoolSize < 1 {
		return nil, fmt.Errorf("invalid DB_LOCK_POOL_SIZE: must be positive")
	}

	// JWT secret is required to validate access tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	cfg.JWTIssuer = getEnv("JWT_ISSUER", "")
	cfg.JWTAudience = getEnv("JWT_AUDIENCE", "")
	cfg.JWTLeeway, err = getEnvAsDuration("JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_LEEWAY: %w", err)
	}

	// Redis availability cache (optional)
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB, err = getEnvAsInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.AvailabilityCacheTTL, err = getEnvAsDuration("AVAILABILITY_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid AVAILABILITY_CACHE_TTL: %w", err)
	}

	// Kafka event publishing (optional)
	cfg.KafkaBrokers = splitList(getEnv("KAFKA_BROKERS", ""))
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "reservation-events")

	cfg.AvailabilityMaxHorizonDays, err = getEnvAsInt("AVAILABILITY_MAX_HORIZON_DAYS", maxHorizonDays)
	if err != nil {
		return nil, fmt.Errorf("invalid AVAILABILITY_MAX_HORIZON_DAYS: %w", err)
	}
	if cfg.AvailabilityMaxHorizonDays < 1 || cfg.AvailabilityMaxHorizonDays > maxHorizonDays {
		return nil, fmt.Errorf("AVAILABILITY_MAX_HORIZON_DAYS must be between 1 and %d", maxHorizonDays)
	}

	cfg.CompletionSweepInterval, err = getEnvAsDuration("COMPLETION_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid COMPLETION_SWEEP_INTERVAL: %w", err)
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		// Return 0 and a wrapped error to provide context
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

// getEnvAsDuration parses values such as "15m" or "1h".
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid duration: %w", key, valStr, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("env %s must be positive", key)
	}
	return val, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
