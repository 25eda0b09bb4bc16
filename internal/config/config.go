// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Provide New() to build a Config with defaults.
//   - Durations are configured in milliseconds and exposed through accessors.
//   - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// EnvProduction is the environment name that disables simulated delivery.
const EnvProduction = "production"

// MinPacingDelayMS is the smallest allowed gap between two delivery legs.
const MinPacingDelayMS = 1200

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Environment names the deployment; "production" refuses simulation.
	Environment string `koanf:"environment"`

	// DatabasePath is the SQLite file. ":memory:" keeps everything in process.
	DatabasePath string `koanf:"database_path"`
	// IDSalt and IDMinLength shape the public assessment identifiers.
	IDSalt      string `koanf:"id_salt"`
	IDMinLength int    `koanf:"id_min_length"`

	// RelayURL is the server-side relay endpoint tried first.
	RelayURL       string `koanf:"relay_url"`
	RelayTimeoutMS int    `koanf:"relay_timeout_ms"`

	// Provider* configure the direct provider channel.
	ProviderURL        string `koanf:"provider_url"`
	ProviderServiceID  string `koanf:"provider_service_id"`
	ProviderTemplateID string `koanf:"provider_template_id"`
	ProviderPublicKey  string `koanf:"provider_public_key"`
	ProviderPrivateKey string `koanf:"provider_private_key"`
	ProviderTimeoutMS  int    `koanf:"provider_timeout_ms"`

	// Simulate enables the simulation channel outside production.
	Simulate bool `koanf:"simulate"`
	// EmailEnabled switches delivery on; when false every leg is skipped.
	EmailEnabled bool `koanf:"email_enabled"`
	// PacingDelayMS is the gap between coordinator and participant legs.
	PacingDelayMS int `koanf:"pacing_delay_ms"`
	// DispatchCacheSize bounds the dispatch latch.
	DispatchCacheSize int `koanf:"dispatch_cache_size"`

	// RequireComplete rejects submissions that do not answer every item.
	RequireComplete bool `koanf:"require_complete"`

	SenderLabel     string `koanf:"sender_label"`
	ReplyToFallback string `koanf:"reply_to_fallback"`

	// MaxInsightsLimit caps GET /insights?limit.
	MaxInsightsLimit int `koanf:"max_insights_limit"`

	// Routing maps organization -> coordinator address. An empty address
	// means the organization is not targeted.
	Routing map[string]string `koanf:"routing"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		Environment:       "development",
		DatabasePath:      "data/dons.db",
		IDSalt:            "dons-assessments",
		IDMinLength:       8,
		RelayTimeoutMS:    10_000,
		ProviderURL:       "https://api.emailjs.com/api/v1.0/email/send",
		ProviderTimeoutMS: 10_000,
		Simulate:          true,
		EmailEnabled:      true,
		PacingDelayMS:     MinPacingDelayMS,
		DispatchCacheSize: 10_000,
		RequireComplete:   false,
		SenderLabel:       "Gifts Assessment",
		ReplyToFallback:   "no-reply@example.com",
		MaxInsightsLimit:  1000,
		Routing:           map[string]string{},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.PacingDelayMS < MinPacingDelayMS {
		return fmt.Errorf("%w: pacing_delay_ms must be at least %d", ErrInvalidConfig, MinPacingDelayMS)
	}
	if c.RelayURL != "" {
		u, err := url.ParseRequestURI(c.RelayURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: relay_url %q is not an http(s) URL", ErrInvalidConfig, c.RelayURL)
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	}
	if c.MaxInsightsLimit <= 0 {
		return fmt.Errorf("%w: max_insights_limit must be positive", ErrInvalidConfig)
	}
	return nil
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), EnvProduction)
}

// RelayTimeout returns the relay request timeout.
func (c *Config) RelayTimeout() time.Duration {
	return time.Duration(c.RelayTimeoutMS) * time.Millisecond
}

// ProviderTimeout returns the provider request timeout.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutMS) * time.Millisecond
}

// PacingDelay returns the delay between delivery legs.
func (c *Config) PacingDelay() time.Duration {
	return time.Duration(c.PacingDelayMS) * time.Millisecond
}
