package config

import (
	"github.com/kbukum/repokit/errors"
	"github.com/kbukum/repokit/logger"
	"github.com/kbukum/repokit/validation"
)

var environments = []string{"development", "staging", "production"}

// ServiceConfig holds the fields every repokit binary needs. Embed it with
// `mapstructure:",squash"` to keep its keys at the top level.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// ApplyDefaults fills in the environment and logging defaults. Debug turns
// the log level down to debug.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
}

// Validate checks the base fields and the logging block.
func (c *ServiceConfig) Validate() error {
	v := validation.New().
		Required("name", c.Name).
		OneOf("environment", c.Environment, environments)
	if err := v.Error(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return errors.Misconfigured("invalid logging configuration").WithCause(err)
	}
	return nil
}
