package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// placeholderJWTSecret is the example value shipped in documentation; it must never sign real tokens
const placeholderJWTSecret = "your-secret-key-change-in-production"

// ErrInsecureJWTSecret is returned by Validate when JWT_SECRET is unset or the placeholder
var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be set to a non-default value")

// Config 应用配置
type Config struct {
	Port               string
	DBPath             string
	JWTSecret          string
	TimelineConfigPath string // HCL file with timeline thresholds, empty means defaults
	LogLevel           string
	RateLimitPerMinute int
}

// Load 加载配置
// envFile is optional; a missing file is ignored and the process environment wins.
// A file that exists but cannot be read or parsed is reported through the
// returned error; the Config is still built from the process environment.
func Load(envFile string) (*Config, error) {
	var envErr error
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			envErr = fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	return &Config{
		Port:               getEnv("PORT", ":8080"),
		DBPath:             getEnv("DB_PATH", "./data/timeline/timeline.db"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		TimelineConfigPath: getEnv("TIMELINE_CONFIG", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}, envErr
}

// Validate checks the settings the server cannot run without
func (c *Config) Validate() error {
	if c.JWTSecret == "" || c.JWTSecret == placeholderJWTSecret {
		return ErrInsecureJWTSecret
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimitPerMinute)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
