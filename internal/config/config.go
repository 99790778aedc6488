package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iamasit07/sessionbridge/internal/domain"
	"github.com/iamasit07/sessionbridge/pkg/auth"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultJWTSecret = "your-secret-key-change-this-in-production"

// RateLimit is a ceiling of MaxCount actions per trailing Window.
type RateLimit struct {
	MaxCount int
	Window   time.Duration
}

type Config struct {
	Port                 string
	Environment          string
	AllowedOrigins       []string
	TrustProxyHeaders    bool
	DatabaseURL          string
	DBMaxOpenConns       int
	DBMaxIdleConns       int
	DBConnMaxLifetimeMin int
	RedisEnabled         bool
	RedisURL             string
	RedisPassword        string
	JWTSecret            string

	HandoffCodeLength          int
	HandoffMaxCollisionRetries int
	HandoffSealKey             string

	SearchRateLimit   RateLimit
	RedeemRateLimit   RateLimit
	SearchResultLimit int

	RequestTimeout       time.Duration
	CleanupInterval      time.Duration
	SessionRetentionDays int
}

// LoadEnv reads .env from the working directory or its parent. Missing files
// are not an error.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			logrus.Info("No .env file found")
		}
	}
}

func LoadConfig() *Config {
	// CORS
	var allowedOrigins []string
	for _, origin := range strings.Split(GetEnv("ALLOWED_ORIGINS", ""), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			allowedOrigins = append(allowedOrigins, trimmed)
		}
	}

	// Database Config
	// Append simple_protocol for PgBouncer compatibility (pgx driver)
	dbURL := GetEnv("DATABASE_URL", GetEnv("DATABASE_URI", ""))
	if dbURL != "" {
		if u, err := url.Parse(dbURL); err == nil {
			q := u.Query()
			if q.Get("default_query_exec_mode") == "" {
				q.Set("default_query_exec_mode", "simple_protocol")
				u.RawQuery = q.Encode()
				dbURL = u.String()
			}
		}
	}

	if ttl := GetEnvAsInt("HANDOFF_TTL_SECONDS", int(domain.HandoffTTL.Seconds())); ttl != int(domain.HandoffTTL.Seconds()) {
		logrus.Warnf("HANDOFF_TTL_SECONDS=%d ignored: handoff codes always live %s", ttl, domain.HandoffTTL)
	}

	return &Config{
		Port:                 GetEnv("PORT", "8080"),
		Environment:          GetEnv("ENVIRONMENT", "development"),
		AllowedOrigins:       allowedOrigins,
		TrustProxyHeaders:    GetEnvAsBool("TRUST_PROXY_HEADERS", false),
		DatabaseURL:          dbURL,
		DBMaxOpenConns:       GetEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:       GetEnvAsInt("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetimeMin: GetEnvAsInt("DB_CONN_MAX_LIFETIME_MINUTES", 5),
		RedisEnabled:         GetEnvAsBool("REDIS_ENABLED", true),
		RedisURL:             GetEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:        GetEnv("REDIS_PASSWORD", ""),
		JWTSecret:            GetEnv("JWT_SECRET", defaultJWTSecret),

		HandoffCodeLength:          GetEnvAsInt("HANDOFF_CODE_LENGTH", 8),
		HandoffMaxCollisionRetries: GetEnvAsInt("HANDOFF_MAX_COLLISION_RETRIES", 5),
		HandoffSealKey:             GetEnv("HANDOFF_SEAL_KEY", ""),

		SearchRateLimit: RateLimit{
			MaxCount: GetEnvAsInt("SEARCH_RATE_LIMIT_MAX", 30),
			Window:   time.Duration(GetEnvAsInt("SEARCH_RATE_LIMIT_WINDOW_MINUTES", 1)) * time.Minute,
		},
		RedeemRateLimit: RateLimit{
			MaxCount: GetEnvAsInt("REDEEM_RATE_LIMIT_MAX", 10),
			Window:   time.Duration(GetEnvAsInt("REDEEM_RATE_LIMIT_WINDOW_MINUTES", 1)) * time.Minute,
		},
		SearchResultLimit: GetEnvAsInt("SEARCH_RESULT_LIMIT", 20),

		RequestTimeout:       time.Duration(GetEnvAsInt("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		CleanupInterval:      time.Duration(GetEnvAsInt("CLEANUP_INTERVAL_MINUTES", 15)) * time.Minute,
		SessionRetentionDays: GetEnvAsInt("SESSION_RETENTION_DAYS", 30),
	}
}

// Validate rejects settings the service cannot run safely with.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" || (c.Environment == "production" && c.JWTSecret == defaultJWTSecret) {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.HandoffCodeLength < auth.MinCodeLength {
		errs = append(errs, fmt.Errorf("HANDOFF_CODE_LENGTH must be at least %d", auth.MinCodeLength))
	}
	if c.HandoffMaxCollisionRetries < 1 {
		errs = append(errs, errors.New("HANDOFF_MAX_COLLISION_RETRIES must be positive"))
	}
	if _, err := auth.NewSealer(c.HandoffSealKey); err != nil {
		errs = append(errs, fmt.Errorf("HANDOFF_SEAL_KEY: %v", err))
	}
	for name, rl := range map[string]RateLimit{"SEARCH": c.SearchRateLimit, "REDEEM": c.RedeemRateLimit} {
		if rl.MaxCount < 1 || rl.Window <= 0 {
			errs = append(errs, fmt.Errorf("%s rate limit needs a positive ceiling and window", name))
		}
	}
	if c.SearchResultLimit < 1 {
		errs = append(errs, errors.New("SEARCH_RESULT_LIMIT must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT_SECONDS must be positive"))
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, errors.New("CLEANUP_INTERVAL_MINUTES must be positive"))
	}
	if c.SessionRetentionDays < 0 {
		errs = append(errs, errors.New("SESSION_RETENTION_DAYS must not be negative"))
	}

	return errors.Join(errs...)
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		logrus.Warnf("Invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		logrus.Warnf("Invalid boolean value for %s: %s, using default: %t", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
