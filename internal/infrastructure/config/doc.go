// Package config provides 12-factor configuration management for the
// document sandbox backend.
//
// Configuration is loaded from environment variables with sensible defaults.
// An optional YAML or TOML file named by CONFIG_FILE overrides them, and CLI
// flags override both.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Documents: sandbox root, identifier tag, result caps, exclusions
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Metrics: Prometheus endpoint toggle
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Serving %s on %s:%s\n", cfg.Documents.Root, cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, CONFIG_FILE
//   - DOCS_ROOT, DOCS_ROOT_TAG, DOCS_TITLE, DOCS_SUMMARY
//   - DOCS_SEARCH_LIMIT, DOCS_RECENT_LIMIT, DOCS_VALIDATE_NAMES
//   - DOCS_EXCLUDE (comma separated), DOCS_USAGE_SUMMARY
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - METRICS_ENABLED
package config
