// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - External errors must be wrapped via this package's sentinel errors.
package config

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Default values.
const (
	DefaultAddr       = ":3000"
	DefaultAPIBaseURL = "http://localhost:8000/api"
	DefaultTimeoutMS  = 30_000
	DefaultPageSize   = 20
	MaxPageSize       = 100

	DefaultMetricsRefreshMS = 10_000
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// LogFile additionally writes rotated logs to this path when set.
	LogFile string `koanf:"log_file"`

	// Addr configures the dashboard HTTP listen address, e.g. ":3000".
	Addr string `koanf:"addr"`

	// APIBaseURL is the backend API root the client talks to.
	APIBaseURL string `koanf:"api_base_url"`

	// APITimeoutMS bounds every backend request.
	APITimeoutMS int `koanf:"api_timeout_ms"`

	// PageSize is the default page size of list views.
	PageSize int `koanf:"page_size"`

	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// ProbeWorkers bounds concurrent calls made by the api-probe tool.
	ProbeWorkers int `koanf:"probe_workers"`

	// MetricsRefreshMS is how often service and system gauges are refreshed.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              DefaultAddr,
		APIBaseURL:        DefaultAPIBaseURL,
		APITimeoutMS:      DefaultTimeoutMS,
		PageSize:          DefaultPageSize,
		ShutdownTimeoutMS: DefaultTimeoutMS,
		ProbeWorkers:      4,
		MetricsRefreshMS:  DefaultMetricsRefreshMS,
	}
}

// APITimeout returns the backend request timeout.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutMS) * time.Millisecond
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// MetricsRefresh returns the gauge refresh interval.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.APIBaseURL) == "":
		return fmt.Errorf("%w: api_base_url must not be empty", ErrInvalidConfig)
	case c.APITimeoutMS <= 0:
		return fmt.Errorf("%w: api_timeout_ms must be positive", ErrInvalidConfig)
	case c.ShutdownTimeoutMS <= 0:
		return fmt.Errorf("%w: shutdown_timeout_ms must be positive", ErrInvalidConfig)
	case c.PageSize < 1 || c.PageSize > MaxPageSize:
		return fmt.Errorf("%w: page_size must be within 1..%d", ErrInvalidConfig, MaxPageSize)
	case c.ProbeWorkers < 1:
		return fmt.Errorf("%w: probe_workers must be positive", ErrInvalidConfig)
	case c.MetricsRefreshMS <= 0:
		return fmt.Errorf("%w: metrics_refresh_ms must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("%w: api_base_url: %w", ErrInvalidConfig, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: api_base_url must be an absolute http(s) URL", ErrInvalidConfig)
	}
	return nil
}
