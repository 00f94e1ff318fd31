// Package config loads repokit configuration with Viper.
//
// A YAML file (explicit, or found in the usual places) provides the base
// values; a .env file is loaded into the process environment; environment
// variables override both. Variables are mapped onto nested keys by
// splitting on underscores, so GITHUB_BASE_URL sets github.base_url and
// REPOKIT_LOGGING_LEVEL sets logging.level.
//
//	var cfg AppConfig
//	err := config.LoadConfig("repokit", &cfg, config.WithConfigFile(path))
package config
