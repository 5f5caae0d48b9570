package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DevSessionSecret is the fallback secret used outside production
const DevSessionSecret = "dev-secret-change-in-production"

// Config holds application configuration
type Config struct {
	Env        string
	ServerPort string
	LogLevel   string

	// Remote kindergarten API
	APIBaseURL string
	APITimeout time.Duration

	// Session store
	DatabaseType  string
	DatabasePath  string
	DatabaseURL   string
	SessionSecret string
	SessionMaxAge time.Duration

	// Listing
	PageSize        int
	CollationLocale string

	// Login/register throttling, requests per second and burst per client IP
	LoginRateLimit float64
	LoginRateBurst int

	// Welcome e-mail (Amazon SES); disabled when SESFromEmail is empty
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string
	EmailDebug   bool
}

// Load reads configuration from the environment (and an optional .env file)
// with sensible defaults
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	return &Config{
		Env:             getEnv("ENV", "development"),
		ServerPort:      getEnv("PORT", "3000"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		APIBaseURL:      getEnv("API_BASE_URL", "http://localhost:8080"),
		APITimeout:      getEnvDuration("API_TIMEOUT", 10*time.Second),
		DatabaseType:    getEnv("DB_TYPE", "sqlite"),
		DatabasePath:    getEnv("DB_PATH", "./sessions.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SessionSecret:   getEnv("SESSION_SECRET", DevSessionSecret),
		SessionMaxAge:   getEnvDuration("SESSION_MAX_AGE", 30*24*time.Hour),
		PageSize:        getEnvInt("PAGE_SIZE", 10),
		CollationLocale: getEnv("COLLATION_LOCALE", "lt"),
		LoginRateLimit:  getEnvFloat("LOGIN_RATE_LIMIT", 1),
		LoginRateBurst:  getEnvInt("LOGIN_RATE_BURST", 5),
		AWSRegion:       getEnv("AWS_REGION", "eu-west-1"),
		SESFromEmail:    getEnv("SES_FROM_EMAIL", ""),
		SESFromName:     getEnv("SES_FROM_NAME", "Kindergarten Šilelis"),
		AppBaseURL:      getEnv("APP_BASE_URL", "http://localhost:3000"),
		EmailDebug:      getEnvBool("EMAIL_DEBUG", false),
	}
}

// Validate rejects configurations that must not reach production
func (c *Config) Validate() error {
	if c.Env == "production" && c.SessionSecret == DevSessionSecret {
		return errors.New("SESSION_SECRET must be set in production environment")
	}
	if c.PageSize < 1 {
		return errors.New("PAGE_SIZE must be positive")
	}
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	return nil
}

// IsProduction reports whether the app runs with ENV=production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
