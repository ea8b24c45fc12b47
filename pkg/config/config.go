// Package config loads subsync client and dev-server settings from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hermes-notify/subsync/pkg/version"
)

// Defaults.
const (
	DefaultAPIURL      = "http://localhost:8080"
	DefaultHTTPTimeout = 30 * time.Second
	DefaultReadRetries = 2
	DefaultLogLevel    = "info"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// LoadError describes a failure reading or parsing a config file.
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Config holds client settings. Durations are written as strings ("30s").
type Config struct {
	// APIURL is the scheme and host of the API.
	APIURL string `yaml:"api_url"`

	// APIVersion selects the /api/{version} prefix.
	APIVersion string `yaml:"api_version"`

	// Token is the bearer token. Usually supplied via flag or environment.
	Token string `yaml:"token,omitempty"`

	// HTTPTimeout bounds a single HTTP exchange.
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// WriteTimeout bounds a subscription write. Zero means none.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ReadRetries is the number of additional attempts for failed reads.
	ReadRetries int `yaml:"read_retries"`

	// EventLog is the path of the CBOR event log. Empty disables it.
	EventLog string `yaml:"event_log,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Discover finds a development API over mDNS instead of using APIURL.
	Discover bool `yaml:"discover"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:      DefaultAPIURL,
		APIVersion:  version.Current,
		HTTPTimeout: DefaultHTTPTimeout,
		ReadRetries: DefaultReadRetries,
		LogLevel:    DefaultLogLevel,
	}
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &LoadError{Message: "failed to parse YAML", Cause: err}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, &LoadError{Message: "validation failed", Cause: err}
	}
	return cfg, nil
}

// Load reads and parses a config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}
	cfg, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
		}
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if !c.Discover {
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: api_url %q must be an http(s) URL", ErrInvalid, c.APIURL)
		}
	}
	if _, err := version.Parse(c.APIVersion); err != nil {
		return fmt.Errorf("%w: api_version: %w", ErrInvalid, err)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("%w: http_timeout must not be negative", ErrInvalid)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("%w: write_timeout must not be negative", ErrInvalid)
	}
	if c.ReadRetries < 0 {
		return fmt.Errorf("%w: read_retries must not be negative", ErrInvalid)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Version returns the parsed API version.
func (c Config) Version() version.APIVersion {
	v, err := version.Parse(c.APIVersion)
	if err != nil {
		return version.MustParse(version.Current)
	}
	return v
}

// Level returns the slog level for LogLevel, defaulting to info.
func (c Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: unknown log level %q", ErrInvalid, s)
	}
}

// Marshal encodes the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
