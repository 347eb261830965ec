package vklife

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls lifecycle behavior shared by an Instance and every Device
// created from it.
//
// A TOML file looks like:
//
//	finalizers = true
//	release_children = true
//	log_level = "debug"
type Config struct {
	// Finalizers registers a runtime cleanup on every wrapper so that objects
	// that become unreachable without Destroy are still released.
	Finalizers bool `toml:"finalizers"`

	// ReleaseChildren makes Device.Destroy release every object still alive
	// on the device before destroying it. When false, leaked children are
	// only logged.
	ReleaseChildren bool `toml:"release_children"`

	// LogLevel builds a zap production logger at this level when no logger
	// was passed with WithLogger. Empty keeps the package logger.
	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Finalizers:      true,
		ReleaseChildren: true,
	}
}

// LoadConfig reads a TOML configuration file. Keys missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var err error
	if c.LogLevel != "" {
		if _, lerr := zapcore.ParseLevel(strings.ToLower(c.LogLevel)); lerr != nil {
			err = multierr.Append(err, fmt.Errorf("log_level %q: %w", c.LogLevel, lerr))
		}
	}
	return err
}

func (c Config) logger() (*zap.Logger, error) {
	if c.LogLevel == "" {
		return Logger(), nil
	}

	level, err := zapcore.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// Option configures CreateInstance.
type Option func(*options)

type options struct {
	config Config
	logger *zap.Logger
}

func defaultOptions() options {
	return options{config: DefaultConfig()}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithLogger sets the logger used by the instance and its devices.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithFinalizers toggles the runtime cleanup safety net.
func WithFinalizers(enabled bool) Option {
	return func(o *options) {
		o.config.Finalizers = enabled
	}
}
