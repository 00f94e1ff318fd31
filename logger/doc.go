// Package logger provides structured logging for repokit using zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("github")
//	log.Info("repository created", logger.Fields(logger.FieldRepository, "demo-1"))
package logger
