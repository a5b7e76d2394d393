// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/SAIASHISH-sys/shaastrahack/internal/intake"
)

const (
	BackendLocal = "local"
	BackendMinio = "minio"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Port     string `mapstructure:"PORT"`
	AppEnv   string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// PublicBaseURL is the browser-visible origin used to build fileUrl, e.g. "https://files.example.com".
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`

	UploadDir           string   `mapstructure:"UPLOAD_DIR"`
	MaxFileSizeBytes    int64    `mapstructure:"MAX_FILE_SIZE_BYTES"`
	AllowedOrigins      []string `mapstructure:"ALLOWED_ORIGINS"`
	AllowedContentTypes []string `mapstructure:"ALLOWED_CONTENT_TYPES"`

	// StorageBackend selects where uploads live: "local" (UploadDir) or "minio".
	StorageBackend   string `mapstructure:"STORAGE_BACKEND"`
	StorageEndpoint  string `mapstructure:"STORAGE_ENDPOINT"`
	StorageAccessKey string `mapstructure:"STORAGE_ACCESS_KEY"`
	StorageSecretKey string `mapstructure:"STORAGE_SECRET_KEY"`
	StorageBucket    string `mapstructure:"STORAGE_BUCKET"`
	StorageUseSSL    bool   `mapstructure:"STORAGE_USE_SSL"`
}

var defaults = map[string]any{
	"PORT":                  "5000",
	"APP_ENV":               "development",
	"LOG_LEVEL":             "info",
	"PUBLIC_BASE_URL":       "",
	"UPLOAD_DIR":            "uploads",
	"MAX_FILE_SIZE_BYTES":   intake.DefaultMaxFileSize,
	"ALLOWED_ORIGINS":       "*",
	"ALLOWED_CONTENT_TYPES": "",

	"STORAGE_BACKEND":    BackendLocal,
	"STORAGE_ENDPOINT":   "localhost:9000",
	"STORAGE_ACCESS_KEY": "minioadmin",
	"STORAGE_SECRET_KEY": "minioadmin",
	"STORAGE_BUCKET":     "uploads",
	"STORAGE_USE_SSL":    false,
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, reading from environment")
	}

	v := viper.New()
	for k, def := range defaults {
		v.SetDefault(k, def)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.AllowedOrigins = splitList(c.AllowedOrigins)
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	c.AllowedContentTypes = splitList(c.AllowedContentTypes)

	if c.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE_BYTES must be positive, got %d", c.MaxFileSizeBytes)
	}

	switch c.StorageBackend {
	case BackendLocal:
		if c.UploadDir == "" {
			return errors.New("UPLOAD_DIR must not be empty")
		}
		abs, err := filepath.Abs(c.UploadDir)
		if err != nil {
			return fmt.Errorf("resolve UPLOAD_DIR: %w", err)
		}
		c.UploadDir = abs
	case BackendMinio:
		if c.StorageBucket == "" {
			return errors.New("STORAGE_BUCKET must not be empty")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	if c.PublicBaseURL == "" {
		c.PublicBaseURL = "http://localhost:" + c.Port
	}
	u, err := url.Parse(c.PublicBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("PUBLIC_BASE_URL must be an absolute URL, got %q", c.PublicBaseURL)
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
	return nil
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// splitList trims entries and drops empty ones. viper already splits
// comma-separated env values, but a single entry may still carry commas
// when the value came from a default.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
