// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// The level can be changed at runtime with SetLevel, which the server exposes
// as /admin/log-level. Component loggers share it.
//
// Example Usage:
//
//	logger, err := logging.New(logging.DefaultConfig())
//	docs := logger.Component("documents")
//	docs.Info("Document created", zap.String("id", id))
package logging
