package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_StampsServiceAndVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "billing.log")

	logger, err := NewLogger(LoggerConfig{
		Level:      "info",
		OutputPath: path,
		Format:     "json",
		Service:    "rental-billing",
		Version:    "1.2.0",
	})
	require.NoError(t, err)

	logger.Debug("dropped below info")
	logger.Info("bill created")
	require.NoError(t, logger.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "bill created", entry["msg"])
	assert.Equal(t, "rental-billing", entry["service"])
	assert.Equal(t, "1.2.0", entry["version"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewLogger_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LoggerConfig
		wantErr string
	}{
		{"unknown level", LoggerConfig{Level: "loud"}, `unknown log level "loud"`},
		{"unknown format", LoggerConfig{Format: "xml"}, `unknown log format "xml"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLogger(tt.cfg)
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestNewLogger_Defaults(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel), "info is enabled by default")
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel), "debug is off by default")
}
