// Package logger provides structured logging for fetchkit using zerolog.
//
// It supports JSON and console output, level configuration, and
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
//	log := logger.New(&cfg, "fetchkit").WithComponent("fetch")
//	log.Info("request settled", logger.Fields("status_code", 200))
package logger
