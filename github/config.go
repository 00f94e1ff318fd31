package github

import (
	"os"
	"time"

	"github.com/kbukum/repokit/errors"
	"github.com/kbukum/repokit/httpclient"
	"github.com/kbukum/repokit/security"
	"github.com/kbukum/repokit/validation"
)

const (
	// DefaultBaseURL is the public GitHub API origin.
	DefaultBaseURL = "https://api.github.com"
	// MediaType is sent as Accept on every request.
	MediaType = "application/vnd.github+json"
	// APIVersion pins the REST API version.
	APIVersion = "2022-11-28"
)

// Config configures a Service. Exactly one of Token, Username/Password or
// AppID/AppKeyFile/InstallationID selects the authorization.
type Config struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	Token    string `yaml:"token" mapstructure:"token"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`

	// AppID, AppKeyFile and InstallationID authenticate as an installation
	// of a GitHub App. Signed app tokens are exchanged for installation
	// access tokens, which are refreshed before they expire.
	AppID          int64  `yaml:"app_id" mapstructure:"app_id"`
	AppKeyFile     string `yaml:"app_key_file" mapstructure:"app_key_file"`
	InstallationID int64  `yaml:"installation_id" mapstructure:"installation_id"`

	// Owner is used by Delete when the repository does not report one.
	Owner string `yaml:"owner" mapstructure:"owner"`

	Timeout time.Duration       `yaml:"timeout" mapstructure:"timeout"`
	TLS     *security.TLSConfig `yaml:"tls" mapstructure:"tls"`
	Headers map[string]string   `yaml:"headers" mapstructure:"headers"`

	// MaxConcurrency bounds DeleteAll. Zero means unbounded.
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// ApplyDefaults fills in the base URL and the GitHub media headers.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	headers := map[string]string{
		"Accept":               MediaType,
		"X-GitHub-Api-Version": APIVersion,
	}
	for k, v := range c.Headers {
		headers[k] = v
	}
	c.Headers = headers
}

// Validate checks the URL, the authorization mode and MaxConcurrency.
func (c *Config) Validate() error {
	v := validation.New().
		AbsoluteURL("github.base_url", c.BaseURL).
		Custom(c.MaxConcurrency >= 0, "github.max_concurrency", "must not be negative")

	modes := 0
	if c.Token != "" {
		modes++
	}
	if c.Username != "" || c.Password != "" {
		modes++
		v.Required("github.username", c.Username)
	}
	if c.AppID != 0 || c.AppKeyFile != "" || c.InstallationID != 0 {
		modes++
		v.Custom(c.AppID > 0, "github.app_id", "must be positive").
			Required("github.app_key_file", c.AppKeyFile).
			Custom(c.InstallationID > 0, "github.installation_id", "must be positive")
	}
	v.Custom(modes == 1, "github", "exactly one of token, username/password or app_id/app_key_file/installation_id is required")

	if err := v.Error(); err != nil {
		return errors.Misconfigured("invalid github configuration").WithCause(err)
	}
	return c.TLS.Validate()
}

// Authorization builds the authorization selected by the config. App
// credentials yield a token source whose exchange adapter is built with
// opts.
func (c *Config) Authorization(opts ...httpclient.Option) (httpclient.Authorization, error) {
	switch {
	case c.Token != "":
		return httpclient.Token(c.Token), nil
	case c.Username != "":
		return httpclient.Basic(c.Username, c.Password), nil
	case c.AppID != 0:
		pem, err := os.ReadFile(c.AppKeyFile)
		if err != nil {
			return nil, errors.Misconfigured("github: read app_key_file").WithCause(err)
		}
		signer, err := NewAppTokenSigner(c.AppID, pem)
		if err != nil {
			return nil, err
		}
		tokens, err := NewInstallationTokens(c.httpConfig(nil), signer, c.InstallationID, opts...)
		if err != nil {
			return nil, err
		}
		return httpclient.TokenFrom(tokens), nil
	}
	return nil, errors.Misconfigured("github: no authorization configured")
}

func (c *Config) httpConfig(auth httpclient.Authorization) httpclient.Config {
	return httpclient.Config{
		Name:    "github",
		BaseURL: c.BaseURL,
		Timeout: c.Timeout,
		Auth:    auth,
		TLS:     c.TLS,
		Headers: c.Headers,
	}
}
