// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/invowk/modhost/pkg/unitcode"
	"github.com/invowk/modhost/pkg/unitmod"
)

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidConfig is the sentinel wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidLogLevel is returned for unknown log levels.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

type (
	// LogLevel is the minimum level logged.
	LogLevel string

	// InvalidConfigError collects the field errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// SearchPaths are directories whose immediate children (directories
		// and .zip archives) are unit candidates. Doublestar globs allowed.
		SearchPaths []string `json:"search_paths" mapstructure:"search_paths"`
		// Disabled lists unit names that are never loaded.
		Disabled []string `json:"disabled" mapstructure:"disabled"`
		// ProtectedPrefixes route class lookups to the root namespace and
		// keep them out of the transformation pipeline.
		ProtectedPrefixes []string `json:"protected_prefixes" mapstructure:"protected_prefixes"`
		// LogLevel is one of debug, info, warn or error.
		LogLevel  LogLevel        `json:"log_level" mapstructure:"log_level"`
		Watch     WatchConfig     `json:"watch" mapstructure:"watch"`
		Telemetry TelemetryConfig `json:"telemetry" mapstructure:"telemetry"`
	}

	// WatchConfig configures hot reload in `modhost run`.
	WatchConfig struct {
		Enabled  bool          `json:"enabled" mapstructure:"enabled"`
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
		// Patterns restrict which changed paths trigger a refresh.
		Patterns []string `json:"patterns" mapstructure:"patterns"`
	}

	// TelemetryConfig configures the metrics and health endpoints.
	TelemetryConfig struct {
		// Listen is a host:port; empty disables the server.
		Listen string `json:"listen" mapstructure:"listen"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SearchPaths:       []string{},
		Disabled:          []string{},
		ProtectedPrefixes: slices.Clone([]string(unitcode.DefaultProtectedPrefixes)),
		LogLevel:          LogLevelInfo,
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 500 * time.Millisecond,
			Patterns: []string{},
		},
		Telemetry: TelemetryConfig{
			Listen: "",
		},
	}
}

// Validate checks the constraints the schema cannot express, and the ones
// environment overrides could violate.
func (c *Config) Validate() error {
	var errs []error
	if err := c.LogLevel.Validate(); err != nil {
		errs = append(errs, err)
	}
	for i, p := range c.SearchPaths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("search_paths[%d]: blank path", i))
		}
	}
	for i, name := range c.Disabled {
		if err := unitmod.UnitName(name).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("disabled[%d]: %w", i, err))
		}
	}
	for i, p := range c.ProtectedPrefixes {
		if p == "" || !strings.HasSuffix(p, ".") {
			errs = append(errs, fmt.Errorf("protected_prefixes[%d]: %q must end with '.'", i, p))
		}
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce: negative duration %s", c.Watch.Debounce))
	}
	if c.Telemetry.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Telemetry.Listen); err != nil {
			errs = append(errs, fmt.Errorf("telemetry.listen: %w", err))
		}
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Validate returns ErrInvalidLogLevel for unknown levels.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, string(l))
	}
}

// Level converts l for charmbracelet/log. Unknown levels map to info.
func (l LogLevel) Level() log.Level {
	lvl, err := log.ParseLevel(string(l))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func (l LogLevel) String() string { return string(l) }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
