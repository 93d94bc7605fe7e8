package config

import (
	"fmt"
	"time"

	"github.com/kbukum/fetchkit/fetch"
	"github.com/kbukum/fetchkit/logger"
	"github.com/kbukum/fetchkit/observability"
	"github.com/kbukum/fetchkit/validation"
)

// Config is the full fetchkit configuration.
type Config struct {
	Client    fetch.Config         `yaml:"client" mapstructure:"client"`
	Auth      AuthConfig           `yaml:"auth" mapstructure:"auth"`
	Logging   logger.Config        `yaml:"logging" mapstructure:"logging"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
	// Credentials is the default cookie policy: same-origin, include or omit.
	Credentials string `yaml:"credentials" mapstructure:"credentials" validate:"omitempty,oneof=same-origin include omit"`
}

// AuthConfig is the file form of fetch.AuthConfig.
type AuthConfig struct {
	Type     string `yaml:"type" mapstructure:"type" validate:"omitempty,oneof=none bearer basic api_key jwt"`
	Token    string `yaml:"token" mapstructure:"token"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Key      string `yaml:"key" mapstructure:"key"`
	// In is "header" (default) or "query" for api_key.
	In   string `yaml:"in" mapstructure:"in" validate:"omitempty,oneof=header query"`
	Name string `yaml:"name" mapstructure:"name"`
	// SigningKey, Subject and TTL configure jwt.
	SigningKey string        `yaml:"signing_key" mapstructure:"signing_key"`
	Subject    string        `yaml:"subject" mapstructure:"subject"`
	TTL        time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// Build converts the file form into a fetch.AuthConfig. Returns nil for
// an empty or "none" type.
func (a AuthConfig) Build() (*fetch.AuthConfig, error) {
	switch a.Type {
	case "", "none":
		return nil, nil
	case "bearer":
		if a.Token == "" {
			return nil, fmt.Errorf("auth.token is required for bearer auth")
		}
		return fetch.BearerAuth(a.Token), nil
	case "basic":
		if a.Username == "" {
			return nil, fmt.Errorf("auth.username is required for basic auth")
		}
		return fetch.BasicAuth(a.Username, a.Password), nil
	case "api_key":
		if a.Key == "" {
			return nil, fmt.Errorf("auth.key is required for api_key auth")
		}
		if a.In == "query" {
			name := a.Name
			if name == "" {
				name = "api_key"
			}
			return fetch.APIKeyAuthQuery(a.Key, name), nil
		}
		auth := fetch.APIKeyAuth(a.Key)
		if a.Name != "" {
			auth.Name = a.Name
		}
		return auth, nil
	case "jwt":
		if a.SigningKey == "" {
			return nil, fmt.Errorf("auth.signing_key is required for jwt auth")
		}
		ttl := a.TTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		return fetch.ServiceJWT([]byte(a.SigningKey), a.Subject, ttl), nil
	default:
		return nil, fmt.Errorf("auth.type %q is not supported", a.Type)
	}
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	c.Client.ApplyDefaults()
	if c.Client.Timeout == 0 {
		c.Client.Timeout = fetch.DefaultTimeout
	}
	c.Logging.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
	if c.Credentials == "" {
		c.Credentials = fetch.CredentialsSameOrigin.String()
	}
}

// Validate checks struct tags first, then each section's own rules.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	if err := c.Client.Validate(); err != nil {
		return fmt.Errorf("config.client: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("config.telemetry: %w", err)
	}
	if _, err := c.Auth.Build(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// FetchConfig returns the client configuration with auth resolved.
func (c *Config) FetchConfig() (fetch.Config, error) {
	cfg := c.Client
	auth, err := c.Auth.Build()
	if err != nil {
		return cfg, err
	}
	if auth != nil {
		cfg.Auth = auth
	}
	return cfg, nil
}

// CredentialsPolicy parses the configured default cookie policy.
func (c *Config) CredentialsPolicy() (fetch.Credentials, error) {
	return fetch.ParseCredentials(c.Credentials)
}
