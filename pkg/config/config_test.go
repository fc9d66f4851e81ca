package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/openvario/internal/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.ScanTimeout)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 30*time.Second, cfg.LostAfter)
	assert.Equal(t, 64, cfg.EventBuffer)
	assert.True(t, cfg.StrictServices)
	assert.Equal(t, "m/s", cfg.SpeedUnit)
	assert.Equal(t, "table", cfg.OutputFormat)
	assert.NoError(t, cfg.Validate(), "defaults MUST be valid")
}

func TestConfig_NewLogger(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		want     logrus.Level
	}{
		{
			name:     "creates logger with debug level",
			logLevel: "debug",
			want:     logrus.DebugLevel,
		},
		{
			name:     "creates logger with info level",
			logLevel: "info",
			want:     logrus.InfoLevel,
		},
		{
			name:     "creates logger with warn level",
			logLevel: "warn",
			want:     logrus.WarnLevel,
		},
		{
			name:     "creates logger with error level",
			logLevel: "error",
			want:     logrus.ErrorLevel,
		},
		{
			name:     "falls back to info on unknown level",
			logLevel: "chatty",
			want:     logrus.InfoLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				LogLevel: tt.logLevel,
			}

			logger := cfg.NewLogger()

			assert.NotNil(t, logger)
			assert.Equal(t, tt.want, logger.GetLevel())

			// Verify formatter is set correctly
			formatter, ok := logger.Formatter.(*logrus.TextFormatter)
			assert.True(t, ok)
			assert.True(t, formatter.FullTimestamp)
			assert.Equal(t, time.RFC3339, formatter.TimestampFormat)
		})
	}
}

func TestLoad(t *testing.T) {
	content := `
log_level: debug
scan_timeout: 5s
connect_timeout: 1m
strict_services: false
speed_unit: mph
output_format: json
`
	path := filepath.Join(t.TempDir(), "openvario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ScanTimeout)
	assert.Equal(t, time.Minute, cfg.ConnectTimeout)
	assert.False(t, cfg.StrictServices, "explicit false MUST override the default")
	assert.Equal(t, units.MilesPerHour, cfg.Speed())
	assert.Equal(t, "json", cfg.OutputFormat)

	assert.Equal(t, 30*time.Second, cfg.LostAfter, "absent keys MUST keep their defaults")
	assert.Equal(t, 64, cfg.EventBuffer, "absent keys MUST keep their defaults")
}

func TestLoad_Defaults(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("missing file", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	malformed := filepath.Join(dir, "malformed.yaml")
	require.NoError(t, os.WriteFile(malformed, []byte("scan_timeout: [1, 2"), 0o644))
	_, err := Load(malformed)
	assert.ErrorContains(t, err, "parsing config file")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("speed_unit: knots\n"), 0o644))
	_, err = Load(invalid)
	assert.ErrorContains(t, err, "speed_unit")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, false},
		{"invalid log level", func(c *Config) { c.LogLevel = "chatty" }, true},
		{"negative scan timeout", func(c *Config) { c.ScanTimeout = -time.Second }, true},
		{"zero scan timeout scans until stopped", func(c *Config) { c.ScanTimeout = 0 }, false},
		{"zero connect timeout", func(c *Config) { c.ConnectTimeout = 0 }, true},
		{"negative lost after", func(c *Config) { c.LostAfter = -time.Second }, true},
		{"zero event buffer", func(c *Config) { c.EventBuffer = 0 }, true},
		{"unknown speed unit", func(c *Config) { c.SpeedUnit = "knots" }, true},
		{"upper case speed unit", func(c *Config) { c.SpeedUnit = "M/S" }, false},
		{"csv output", func(c *Config) { c.OutputFormat = "csv" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Conversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StrictServices = false
	cfg.EventBuffer = 8
	cfg.ScanTimeout = 3 * time.Second
	cfg.LostAfter = time.Second

	opts := cfg.DeviceOptions()
	assert.True(t, opts.AllowMissingServices, "strict_services: false MUST allow missing services")
	assert.Equal(t, 8, opts.EventBuffer)

	scan := cfg.ScanOptions()
	assert.Equal(t, 3*time.Second, scan.Duration)
	assert.Equal(t, time.Second, scan.LostAfter)
}
