package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds protocol tunables shared by the roku-cli commands.
type Config struct {
	// ConnectTimeout bounds the remote shell handshake.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	// ExecTimeout bounds a single remote shell command.
	ExecTimeout time.Duration `yaml:"exec_timeout"`
	// SettleDelay is the pause applied between remote shell steps.
	// The device does not signal readiness for the next command reliably.
	SettleDelay time.Duration `yaml:"settle_delay"`
	// HTTPTimeout bounds a single developer installer request.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	// LogLevel is the initial log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the settings file looked up in the working directory.
	DefaultConfigFilename = "roku-cli.yaml"

	// DefaultConnectTimeout is the default remote shell handshake timeout.
	DefaultConnectTimeout = 8 * time.Second

	// DefaultExecTimeout is the default remote shell command timeout.
	DefaultExecTimeout = 8 * time.Second

	// DefaultSettleDelay is the pause known to work between remote shell steps.
	DefaultSettleDelay = 3 * time.Second

	// DefaultHTTPTimeout is the default developer installer request timeout.
	// Packaging a large channel on the device is slow.
	DefaultHTTPTimeout = 2 * time.Minute

	// DefaultLogLevel is used when the settings do not name a level.
	DefaultLogLevel = "info"
)

// errNegativeDuration is returned when a tunable is set below zero.
var errNegativeDuration = errors.New("duration must not be negative")

// Default returns a configuration with every tunable at its default.
func Default() *Config {
	return &Config{
		ConnectTimeout: DefaultConnectTimeout,
		ExecTimeout:    DefaultExecTimeout,
		SettleDelay:    DefaultSettleDelay,
		HTTPTimeout:    DefaultHTTPTimeout,
		LogLevel:       DefaultLogLevel,
	}
}

// Load reads the settings file at path and validates it.
// A missing file is only tolerated for the default path, which yields Default().
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	// Keys missing from the file keep their defaults.
	cfg := Default()
	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects negative durations and fills unset values with defaults.
// A zero SettleDelay is kept as is: Load only sees it when the file sets
// settle_delay explicitly, and it disables the pause.
func Validate(cfg *Config) error {
	durations := map[string]time.Duration{
		"connect_timeout": cfg.ConnectTimeout,
		"exec_timeout":    cfg.ExecTimeout,
		"settle_delay":    cfg.SettleDelay,
		"http_timeout":    cfg.HTTPTimeout,
	}
	for name, value := range durations {
		if value < 0 {
			return fmt.Errorf("%s: %w", name, errNegativeDuration)
		}
	}

	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	if cfg.ExecTimeout == 0 {
		cfg.ExecTimeout = DefaultExecTimeout
	}

	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	return nil
}
