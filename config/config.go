// Package config loads suite-wide pagewalk defaults from a file.
//
// Any format viper reads works. A YAML example:
//
//	timeout: 10s
//	poll_interval: 100ms
//	log:
//	  level: debug
//	browser:
//	  driver: chromedp
//	  headful: true
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cboone/pagewalk/promise"
)

// Driver names accepted in browser.driver.
const (
	DriverHTML       = "html"
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid pagewalk config")

// LogConfig selects the level and encoding of the suite logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// BrowserConfig selects and configures the driver.
type BrowserConfig struct {
	Driver   string `mapstructure:"driver" yaml:"driver"`
	ExecPath string `mapstructure:"exec_path" yaml:"exec_path"`
	Headful  bool   `mapstructure:"headful" yaml:"headful"`
}

// Config holds suite defaults.
type Config struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	TryLimit     int           `mapstructure:"try_limit" yaml:"try_limit"`
	SnapshotDir  string        `mapstructure:"snapshot_dir" yaml:"snapshot_dir"`

	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
}

// SetDefaults registers the default for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("timeout", promise.DefaultTimeout)
	v.SetDefault("poll_interval", promise.DefaultPollInterval)
	v.SetDefault("try_limit", 0)
	v.SetDefault("snapshot_dir", "testdata")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("browser.driver", DriverChromedp)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.headful", false)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := FromViper(v)
	if err != nil {
		panic(fmt.Sprintf("pagewalk: default config: %v", err))
	}
	return cfg
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// Validate rejects negative durations and limits and unknown drivers.
func (c *Config) Validate() error {
	switch {
	case c.Timeout < 0:
		return fmt.Errorf("%w: timeout must not be negative, got %v", ErrInvalid, c.Timeout)
	case c.PollInterval < 0:
		return fmt.Errorf("%w: poll_interval must not be negative, got %v", ErrInvalid, c.PollInterval)
	case c.TryLimit < 0:
		return fmt.Errorf("%w: try_limit must not be negative, got %d", ErrInvalid, c.TryLimit)
	}
	switch c.Browser.Driver {
	case DriverHTML, DriverChromedp, DriverPlaywright:
	default:
		return fmt.Errorf("%w: unknown browser.driver %q", ErrInvalid, c.Browser.Driver)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: unknown log.format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// PromiseOptions converts the polling settings into promise options.
func (c *Config) PromiseOptions() []promise.Option {
	opts := []promise.Option{
		promise.WithTimeout(c.Timeout),
		promise.WithPollInterval(c.PollInterval),
	}
	if c.TryLimit > 0 {
		opts = append(opts, promise.WithTryLimit(c.TryLimit))
	}
	return opts
}

// NewLogger builds a logger for cfg writing to w, or to stderr when w is
// nil. An unparsable level falls back to info.
func NewLogger(cfg LogConfig, w zapcore.WriteSyncer) *zap.Logger {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}
	if w == nil {
		w = zapcore.Lock(os.Stderr)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zap.New(zapcore.NewCore(encoder, w, level)).Named("pagewalk")
}
