package config

import (
	"github.com/garyjia/rental-billing/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Storage: container.StorageConfig{
			EvidenceDir:      c.Storage.EvidenceDir,
			URLPrefix:        c.Storage.URLPrefix,
			MaxEvidenceBytes: c.Storage.MaxEvidenceBytes,
			RenderQuality:    c.Storage.RenderQuality,
		},
		Auth: container.AuthConfig{
			JWTSecret: c.Auth.JWTSecret,
			Issuer:    c.Auth.Issuer,
			TokenTTL:  c.Auth.TokenTTL,
		},
		Lark: container.LarkConfig{
			Enabled:        c.Lark.Enabled,
			AppID:          c.Lark.AppID,
			AppSecret:      c.Lark.AppSecret,
			BaseURL:        c.Lark.BaseURL,
			PartyReceivers: c.Lark.Receivers,
			UserReceivers:  c.Lark.Users,
		},
		OpenAI: container.OpenAIConfig{
			Enabled:     c.OpenAI.Enabled,
			APIKey:      c.OpenAI.APIKey,
			BaseURL:     c.OpenAI.BaseURL,
			Model:       c.OpenAI.Model,
			Timeout:     c.OpenAI.Timeout,
			PromptsPath: c.OpenAI.PromptsPath,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
		Worker: container.WorkerConfig{
			OverdueInterval:   c.Worker.OverdueInterval,
			OverdueBatchSize:  c.Worker.OverdueBatchSize,
			OverdueMaxBatches: c.Worker.OverdueMaxBatches,
		},
		Billing: container.BillingConfig{
			Currency:       c.Billing.Currency,
			DefaultDueDays: c.Billing.DefaultDueDays,
		},
	}
}
