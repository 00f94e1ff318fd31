package main

import (
	"context"
	"errors"
	"time"

	"github.com/kbukum/repokit/config"
	"github.com/kbukum/repokit/github"
	"github.com/kbukum/repokit/logger"
	"github.com/kbukum/repokit/observability"
	"github.com/kbukum/repokit/version"
)

const appName = "repokit"

// appConfig is the full configuration of the binary.
type appConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	GitHub  github.Config              `yaml:"github" mapstructure:"github"`
	Tracing observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
}

func (c *appConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = appName
	}
	c.ServiceConfig.ApplyDefaults()
	c.GitHub.ApplyDefaults()

	v := version.Get().Version
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = c.Name
	}
	if c.Tracing.ServiceVersion == "" {
		c.Tracing.ServiceVersion = v
	}
	if c.Tracing.Environment == "" {
		c.Tracing.Environment = c.Environment
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = c.Name
	}
	if c.Metrics.ServiceVersion == "" {
		c.Metrics.ServiceVersion = v
	}
	if c.Metrics.Environment == "" {
		c.Metrics.Environment = c.Environment
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = 15 * time.Second
	}
}

func (c *appConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	return c.GitHub.Validate()
}

// app owns the service and the telemetry providers for one command run.
type app struct {
	cfg      appConfig
	log      *logger.Logger
	svc      *github.Service
	shutdown []func(context.Context) error
}

func loadAppConfig(configFile string) (appConfig, error) {
	var cfg appConfig
	err := config.LoadConfig(appName, &cfg,
		config.WithConfigFile(configFile),
		config.WithEnvSections("github"),
	)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

func newApp(ctx context.Context, configFile string) (*app, error) {
	cfg, err := loadAppConfig(configFile)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Logging)

	a := &app{cfg: cfg, log: logger.WithComponent("cli")}
	if err := a.initTelemetry(ctx); err != nil {
		_ = a.close(ctx)
		return nil, err
	}

	a.svc, err = github.NewService(cfg.GitHub)
	if err != nil {
		_ = a.close(ctx)
		return nil, err
	}
	a.log.Debug("service ready", logger.Fields(
		"base_url", cfg.GitHub.BaseURL,
		"environment", cfg.Environment,
		"release", version.Get().IsRelease(),
	))
	return a, nil
}

// initTelemetry installs exporters only for the endpoints that are set.
func (a *app) initTelemetry(ctx context.Context) error {
	if a.cfg.Tracing.Endpoint != "" {
		tp, err := observability.InitTracer(ctx, a.cfg.Tracing)
		if err != nil {
			return err
		}
		a.shutdown = append(a.shutdown, tp.Shutdown)
	}
	if a.cfg.Metrics.Endpoint != "" {
		mp, err := observability.InitMeter(ctx, &a.cfg.Metrics)
		if err != nil {
			return err
		}
		a.shutdown = append(a.shutdown, mp.Shutdown)
	}
	return nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.svc != nil {
		errs = append(errs, a.svc.Close(ctx))
	}
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		errs = append(errs, a.shutdown[i](ctx))
	}
	return errors.Join(errs...)
}
