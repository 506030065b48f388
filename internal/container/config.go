// Package container provides dependency injection and lifecycle management
// for the rental billing service following Clean Architecture principles.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Storage configuration
	Storage StorageConfig

	// Auth configuration
	Auth AuthConfig

	// Lark notification configuration
	Lark LarkConfig

	// OpenAI receipt reading configuration
	OpenAI OpenAIConfig

	// Server configuration
	Server ServerConfig

	// Worker configuration
	Worker WorkerConfig

	// Billing defaults
	Billing BillingConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a writer waits for the SQLite lock
	BusyTimeout time.Duration
}

// StorageConfig holds evidence storage settings.
type StorageConfig struct {
	// EvidenceDir is the base directory for uploaded evidence
	EvidenceDir string

	// URLPrefix is prepended to stored keys to form evidence URLs
	URLPrefix string

	// MaxEvidenceBytes limits a single upload
	MaxEvidenceBytes int64

	// RenderQuality is the JPEG quality of rendered PDF pages
	RenderQuality int
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// LarkConfig holds Lark API settings.
type LarkConfig struct {
	// Enabled turns on Lark notifications; otherwise they are only logged
	Enabled bool

	// AppID is the Lark application ID
	AppID string

	// AppSecret is the Lark application secret
	AppSecret string

	// BaseURL overrides the Lark open platform endpoint
	BaseURL string

	// PartyReceivers maps "tenant" / "owner" to a default open id
	PartyReceivers map[string]string

	// UserReceivers maps user ids to open ids
	UserReceivers map[string]string
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	// Enabled turns on advisory receipt reading
	Enabled bool

	// APIKey is the OpenAI API key
	APIKey string

	// BaseURL overrides the API endpoint
	BaseURL string

	// Model is the vision model to use (e.g., "gpt-4o")
	Model string

	// Timeout for API calls
	Timeout time.Duration

	// PromptsPath optionally overrides the built-in prompts
	PromptsPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	// Overdue sweeper settings
	OverdueInterval   time.Duration
	OverdueBatchSize  int
	OverdueMaxBatches int
}

// BillingConfig holds bill defaults.
type BillingConfig struct {
	// Currency is the label printed next to amounts; empty prints bare numbers
	Currency string

	// DefaultDueDays sets the due date of bills created without one
	DefaultDueDays int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/billing.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Storage: StorageConfig{
			EvidenceDir:      "data/evidence",
			URLPrefix:        "/api/evidence/",
			MaxEvidenceBytes: 10 << 20,
			RenderQuality:    85,
		},
		Auth: AuthConfig{
			Issuer:   "rental-billing",
			TokenTTL: 24 * time.Hour,
		},
		OpenAI: OpenAIConfig{
			Model:   "gpt-4o",
			Timeout: 60 * time.Second,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Worker: WorkerConfig{
			OverdueInterval:   time.Hour,
			OverdueBatchSize:  100,
			OverdueMaxBatches: 10,
		},
		Billing: BillingConfig{
			DefaultDueDays: 10,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Storage.EvidenceDir == "" {
		return fmt.Errorf("storage.evidence_dir is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	// Integrations only need credentials when switched on
	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required")
		}
	}

	if c.OpenAI.Enabled && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}

	return nil
}
