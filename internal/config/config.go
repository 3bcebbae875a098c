package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string `yaml:"port"`
	Debug bool   `yaml:"debug"`

	// Viewer time zone used for calendar days
	TimeZone string `yaml:"timezone"`

	// Record store configuration
	StoreBackend    string `yaml:"store_backend"` // "sqlite" or "postgrest"
	DBDriver        string `yaml:"db_driver"`     // "sqlite" (pure Go) or "sqlite3" (cgo)
	DBPath          string `yaml:"db_path"`
	PostgRESTURL    string `yaml:"postgrest_url"`
	PostgRESTAPIKey string `yaml:"postgrest_api_key"`

	// Identity used when a request carries no actor
	DefaultUserID string `yaml:"default_user_id"`

	// Report archive configuration
	ReportArchive    string `yaml:"report_archive"` // "none", "local" or "azure"
	ReportOutputDir  string `yaml:"report_output_dir"`
	StorageAccount   string `yaml:"azure_storage_account"`
	StorageContainer string `yaml:"azure_storage_container"`

	// Report delivery configuration
	TeamsWebhookURL   string `yaml:"teams_webhook_url"`
	NotificationEmail string `yaml:"notification_email"`
	SMTPHost          string `yaml:"smtp_host"`
	SMTPPort          int    `yaml:"smtp_port"`
	SMTPUsername      string `yaml:"smtp_username"`
	SMTPPassword      string `yaml:"smtp_password"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		Port:             "8080",
		TimeZone:         "America/Sao_Paulo",
		StoreBackend:     "sqlite",
		DBDriver:         "sqlite",
		DBPath:           "data/dashboard.db",
		ReportArchive:    "none",
		ReportOutputDir:  "reports",
		StorageContainer: "reports",
		SMTPPort:         587,
	}
}

// Load reads the optional YAML file named by CONFIG_PATH (default
// config.yaml), then lets environment variables override it.
func Load() (*Config, error) {
	cfg := Defaults()

	configPath := getEnv("CONFIG_PATH", "config.yaml")
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Debug = getBoolEnv("DEBUG", cfg.Debug)
	cfg.TimeZone = getEnv("TIMEZONE", cfg.TimeZone)

	cfg.StoreBackend = getEnv("STORE_BACKEND", cfg.StoreBackend)
	cfg.DBDriver = getEnv("DB_DRIVER", cfg.DBDriver)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.PostgRESTURL = getEnv("POSTGREST_URL", cfg.PostgRESTURL)
	cfg.PostgRESTAPIKey = getEnv("POSTGREST_API_KEY", cfg.PostgRESTAPIKey)

	cfg.DefaultUserID = getEnv("DEFAULT_USER_ID", cfg.DefaultUserID)

	cfg.ReportArchive = getEnv("REPORT_ARCHIVE", cfg.ReportArchive)
	cfg.ReportOutputDir = getEnv("REPORT_OUTPUT_DIR", cfg.ReportOutputDir)
	cfg.StorageAccount = getEnv("AZURE_STORAGE_ACCOUNT", cfg.StorageAccount)
	cfg.StorageContainer = getEnv("AZURE_STORAGE_CONTAINER", cfg.StorageContainer)

	cfg.TeamsWebhookURL = getEnv("TEAMS_WEBHOOK_URL", cfg.TeamsWebhookURL)
	cfg.NotificationEmail = getEnv("NOTIFICATION_EMAIL", cfg.NotificationEmail)
	cfg.SMTPHost = getEnv("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = getIntEnv("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUsername = getEnv("SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", cfg.SMTPPassword)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("TIMEZONE %q is not a known location: %w", c.TimeZone, err)
	}

	switch c.StoreBackend {
	case "sqlite":
		if c.DBDriver != "sqlite" && c.DBDriver != "sqlite3" {
			return fmt.Errorf("DB_DRIVER must be 'sqlite' or 'sqlite3'")
		}
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite backend")
		}
	case "postgrest":
		if c.PostgRESTURL == "" {
			return fmt.Errorf("POSTGREST_URL is required for the postgrest backend")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be 'sqlite' or 'postgrest'")
	}

	switch c.ReportArchive {
	case "none", "local":
	case "azure":
		if c.StorageAccount == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required when REPORT_ARCHIVE is 'azure'")
		}
	default:
		return fmt.Errorf("REPORT_ARCHIVE must be 'none', 'local' or 'azure'")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Location returns the viewer location. It is only called on validated
// configs, so a lookup failure falls back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
