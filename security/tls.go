package security

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/kbukum/repokit/errors"
)

// TLSConfig is the client-side TLS configuration for the repository host.
type TLSConfig struct {
	// SkipVerify disables server certificate verification. Test hosts only.
	SkipVerify bool `yaml:"skip_verify" mapstructure:"skip_verify"`

	// CAFile is a PEM bundle that replaces the system roots.
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`

	// CertFile and KeyFile enable mutual TLS. Both or neither.
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`

	// ServerName overrides the name checked against the server certificate.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`

	// MinVersion defaults to TLS 1.2.
	MinVersion uint16 `yaml:"min_version" mapstructure:"min_version"`
}

// IsEnabled reports whether any setting differs from the system defaults.
func (c *TLSConfig) IsEnabled() bool {
	if c == nil {
		return false
	}
	return c.SkipVerify || c.CAFile != "" || c.CertFile != "" || c.ServerName != "" || c.MinVersion != 0
}

// Validate checks that the configuration is self-consistent. File contents
// are only read by Build.
func (c *TLSConfig) Validate() error {
	if c == nil {
		return nil
	}
	if (c.CertFile != "") != (c.KeyFile != "") {
		return errors.Misconfigured("tls.cert_file and tls.key_file must be set together")
	}
	if c.MinVersion != 0 && c.MinVersion < tls.VersionTLS12 {
		return errors.Misconfigured("tls.min_version below TLS 1.2 is not supported")
	}
	return nil
}

// Build returns the *tls.Config to install on the transport, or nil when
// nothing is configured.
func (c *TLSConfig) Build() (*tls.Config, error) {
	if !c.IsEnabled() {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	conf := &tls.Config{
		InsecureSkipVerify: c.SkipVerify,
		ServerName:         c.ServerName,
		MinVersion:         c.MinVersion,
	}
	if conf.MinVersion == 0 {
		conf.MinVersion = tls.VersionTLS12
	}

	if c.CAFile != "" {
		pool, err := readPool(c.CAFile)
		if err != nil {
			return nil, err
		}
		conf.RootCAs = pool
	}

	if c.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, errors.Misconfigured("tls: load client certificate").WithCause(err)
		}
		conf.Certificates = []tls.Certificate{cert}
	}
	return conf, nil
}

func readPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Misconfigured("tls: read ca_file").WithCause(err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.Misconfigured("tls: ca_file contains no usable certificate").
			WithDetail("ca_file", path)
	}
	return pool, nil
}
