package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/openvario/internal/units"
	"github.com/srg/openvario/internal/vario"
	"github.com/srg/openvario/scanner"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	LogLevel       string        `yaml:"log_level" default:"info"`
	ScanTimeout    time.Duration `yaml:"scan_timeout" default:"10s"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"30s"`
	// LostAfter is how long a device may stay silent during a scan before it is reported lost.
	LostAfter      time.Duration `yaml:"lost_after" default:"30s"`
	EventBuffer    int           `yaml:"event_buffer" default:"64"`
	StrictServices bool          `yaml:"strict_services" default:"true"`
	SpeedUnit      string        `yaml:"speed_unit" default:"m/s"`
	OutputFormat   string        `yaml:"output_format" default:"table"` // table, json
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML config file over the defaults.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.ScanTimeout < 0 {
		return fmt.Errorf("scan_timeout must not be negative, got %s", c.ScanTimeout)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be > 0, got %s", c.ConnectTimeout)
	}
	if c.LostAfter < 0 {
		return fmt.Errorf("lost_after must not be negative, got %s", c.LostAfter)
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("event_buffer must be > 0, got %d", c.EventBuffer)
	}
	if _, err := units.ParseSpeedUnit(c.SpeedUnit); err != nil {
		return fmt.Errorf("speed_unit: %w", err)
	}
	switch c.OutputFormat {
	case "table", "json":
	default:
		return fmt.Errorf("output_format must be \"table\" or \"json\", got %q", c.OutputFormat)
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// Speed returns the configured display unit, falling back to the device unit.
func (c *Config) Speed() units.SpeedUnit {
	unit, err := units.ParseSpeedUnit(c.SpeedUnit)
	if err != nil {
		return vario.SpeedUnit
	}
	return unit
}

// DeviceOptions converts the config into vario.Device options.
func (c *Config) DeviceOptions() vario.Options {
	opts := vario.DefaultOptions()
	opts.AllowMissingServices = !c.StrictServices
	if c.EventBuffer > 0 {
		opts.EventBuffer = c.EventBuffer
	}
	return opts
}

// ScanOptions converts the config into scanner options.
func (c *Config) ScanOptions() *scanner.ScanOptions {
	opts := scanner.DefaultScanOptions()
	opts.Duration = c.ScanTimeout
	opts.LostAfter = c.LostAfter
	return opts
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
