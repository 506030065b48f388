package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Lark     LarkConfig     `mapstructure:"lark"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// StorageConfig holds evidence storage configuration
type StorageConfig struct {
	EvidenceDir      string `mapstructure:"evidence_dir"`
	URLPrefix        string `mapstructure:"url_prefix"`
	MaxEvidenceBytes int64  `mapstructure:"max_evidence_bytes"`
	RenderQuality    int    `mapstructure:"render_quality"`
}

// AuthConfig holds bearer token configuration
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// LarkConfig holds Lark API configuration. Receivers maps "tenant" and
// "owner" to an open id; Users maps user ids to open ids (viper lowercases
// map keys, so user ids are matched lowercased).
type LarkConfig struct {
	Enabled   bool              `mapstructure:"enabled"`
	AppID     string            `mapstructure:"app_id"`
	AppSecret string            `mapstructure:"app_secret"`
	BaseURL   string            `mapstructure:"base_url"`
	Receivers map[string]string `mapstructure:"receivers"`
	Users     map[string]string `mapstructure:"users"`
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PromptsPath string        `mapstructure:"prompts_path"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	OverdueInterval   time.Duration `mapstructure:"overdue_interval"`
	OverdueBatchSize  int           `mapstructure:"overdue_batch_size"`
	OverdueMaxBatches int           `mapstructure:"overdue_max_batches"`
}

// BillingConfig holds bill defaults
type BillingConfig struct {
	Currency       string `mapstructure:"currency"`
	DefaultDueDays int    `mapstructure:"default_due_days"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error; variables already set are kept.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from file and environment variables.
// When the file does not exist, defaults and the environment are used.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.max_upload_bytes", 10<<20)

	// Database defaults
	v.SetDefault("database.path", "data/billing.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	// Storage defaults
	v.SetDefault("storage.evidence_dir", "data/evidence")
	v.SetDefault("storage.url_prefix", "/api/evidence/")
	v.SetDefault("storage.max_evidence_bytes", 10<<20)
	v.SetDefault("storage.render_quality", 85)

	// Auth defaults
	v.SetDefault("auth.issuer", "rental-billing")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	// Integrations stay off until configured
	v.SetDefault("lark.enabled", false)
	v.SetDefault("openai.enabled", false)
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.timeout", 60*time.Second)

	// Worker defaults
	v.SetDefault("worker.overdue_interval", time.Hour)
	v.SetDefault("worker.overdue_batch_size", 100)
	v.SetDefault("worker.overdue_max_batches", 10)

	// Billing defaults
	v.SetDefault("billing.currency", "")
	v.SetDefault("billing.default_due_days", 10)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	// Sensitive credentials from environment
	bindings := map[string]string{
		"auth.jwt_secret":      "JWT_SECRET",
		"lark.app_id":          "LARK_APP_ID",
		"lark.app_secret":      "LARK_APP_SECRET",
		"openai.api_key":       "OPENAI_API_KEY",
		"database.path":        "DATABASE_PATH",
		"storage.evidence_dir": "EVIDENCE_DIR",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	// Lark credentials only matter when notifications go out over Lark
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

	if c.Billing.DefaultDueDays < 0 {
		return fmt.Errorf("billing.default_due_days must not be negative")
	}

	return nil
}
