package fetch

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kbukum/fetchkit/version"
)

const (
	// DefaultTimeout is the call timeout the config loader and CLI apply when
	// none is configured. A zero Config.Timeout means no deadline.
	DefaultTimeout = 30 * time.Second

	// DefaultAccept is the Accept header sent unless the caller overrides it.
	DefaultAccept = "application/json"
)

// Config configures a Client.
type Config struct {
	// Name identifies the client in logs and telemetry. Defaults to "fetch".
	Name string `yaml:"name" mapstructure:"name"`

	// BaseURL is prepended to relative request URLs and defines the origin
	// used by CredentialsSameOrigin.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Timeout bounds Get and Post calls, body read included. Zero leaves
	// calls bounded only by the caller's context, as RawFetch always is.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// Headers are client-wide headers, applied over the Accept default and
	// under per-call headers.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// UserAgent defaults to "fetchkit/<version>".
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// RequestIDHeader, when set, names a header that receives a fresh UUID
	// on every call that does not already carry one.
	RequestIDHeader string `yaml:"request_id_header" mapstructure:"request_id_header"`

	// TLS configures the default Fetcher's transport.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Auth is applied to every call unless the call overrides it.
	Auth *AuthConfig `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "fetch"
	}
	if c.UserAgent == "" {
		c.UserAgent = version.UserAgent()
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("fetch: timeout must not be negative")
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("fetch: invalid base_url: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("fetch: base_url must be absolute (got: %s)", c.BaseURL)
		}
	}
	return c.TLS.Validate()
}
