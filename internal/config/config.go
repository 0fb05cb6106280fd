// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Config holds application configuration
type Config struct {
	DataDir              string // Base directory for all databases (always absolute)
	LogLevel             string
	BaseCurrency         string // Reporting currency for users without a preference
	ExchangeRateAPIKey   string
	ExchangeRateBaseURL  string // Empty selects the provider's default endpoint
	JWTSecret            string
	DefaultAccountID     string // Fallback default account when a user has none flagged
	RecurringSchedule    string
	CacheCleanupSchedule string
	GeminiAPIKey         string
	GeminiModel          string
	Port                 int
	ShutdownTimeout      time.Duration
	DevMode              bool
	Backup               *BackupConfig
}

// BackupConfig holds S3-compatible backup settings
type BackupConfig struct {
	Enabled         bool
	Schedule        string
	Bucket          string
	Endpoint        string // Custom endpoint (Cloudflare R2, MinIO); empty for AWS
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Retention       int // Number of backups to keep
}

// SettingsGetter reads overrides from the settings table
type SettingsGetter interface {
	Get(key string) (*string, error)
	GetBool(key string, defaultValue bool) (bool, error)
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FINANCE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		Port:                 getEnvAsInt("PORT", 8080),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		BaseCurrency:         getEnv("BASE_CURRENCY", "USD"),
		ExchangeRateAPIKey:   getEnv("EXCHANGE_RATE_API_KEY", ""),
		ExchangeRateBaseURL:  getEnv("EXCHANGE_RATE_BASE_URL", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		DefaultAccountID:     getEnv("DEFAULT_ACCOUNT_ID", ""),
		RecurringSchedule:    getEnv("RECURRING_SCHEDULE", "0 5 0 * * *"),
		CacheCleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", "0 30 3 * * *"),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		ShutdownTimeout:      getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Backup:               loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// UpdateFromSettings updates configuration from settings database
// Settings DB values take precedence over environment variables
func (c *Config) UpdateFromSettings(settingsRepo SettingsGetter) error {
	if c.Backup == nil {
		c.Backup = &BackupConfig{}
	}
	overrides := []struct {
		key    string
		target *string
	}{
		{"exchange_rate_api_key", &c.ExchangeRateAPIKey},
		{"gemini_api_key", &c.GeminiAPIKey},
		{"base_currency", &c.BaseCurrency},
		{"backup_access_key_id", &c.Backup.AccessKeyID},
		{"backup_secret_access_key", &c.Backup.SecretAccessKey},
	}

	for _, o := range overrides {
		value, err := settingsRepo.Get(o.key)
		if err != nil {
			return fmt.Errorf("failed to get %s from settings: %w", o.key, err)
		}
		// Empty values keep the env var as fallback
		if value != nil && *value != "" {
			*o.target = *value
		}
	}

	enabled, err := settingsRepo.GetBool("backup_enabled", c.Backup.Enabled)
	if err != nil {
		return fmt.Errorf("failed to get backup_enabled from settings: %w", err)
	}
	c.Backup.Enabled = enabled

	return c.Validate()
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if !currencyPattern.MatchString(c.BaseCurrency) {
		return fmt.Errorf("invalid base currency %q (expected ISO 4217 code)", c.BaseCurrency)
	}
	if c.Backup != nil && c.Backup.Enabled && c.Backup.Bucket == "" {
		return fmt.Errorf("BACKUP_BUCKET is required when backups are enabled")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
		Schedule:        getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
		Bucket:          getEnv("BACKUP_BUCKET", ""),
		Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
		Region:          getEnv("BACKUP_REGION", "auto"),
		AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		Retention:       getEnvAsInt("BACKUP_RETENTION", 14),
	}
}
