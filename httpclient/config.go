package httpclient

import (
	"net/url"
	"time"

	"github.com/kbukum/repokit/errors"
)

const (
	defaultTimeout = 30 * time.Second
)

// Config configures the HTTP adapter.
type Config struct {
	// Name identifies the adapter in logs, spans and metrics.
	Name string `yaml:"name" mapstructure:"name"`

	// BaseURL is the service origin every configuration path is joined to.
	// Must be an absolute URL.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout is the per-request timeout. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Auth is the authorization used for every request. Required.
	Auth Authorization `yaml:"-" mapstructure:"-"`

	// TLS configures TLS settings for the HTTP transport.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Name == "" {
		c.Name = "http"
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.Misconfigured("httpclient: base url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Misconfigured("httpclient: base url must be an absolute URL").
			WithDetail("base_url", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return errors.Misconfigured("httpclient: timeout must be positive")
	}
	if c.Auth == nil {
		return errors.Misconfigured("httpclient: authorization is required")
	}
	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			return err
		}
	}
	return nil
}
