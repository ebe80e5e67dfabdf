// Package main is the entry point for the DocSandbox server.
//
// DocSandbox exposes one directory as a flat-identifier document namespace
// over HTTP: metadata queries, listings, search, recents, create, delete and
// content streaming, plus a websocket feed of write notifications.
//
// Configuration:
//   - Environment variables (12-factor)
//   - Optional YAML/TOML file (CONFIG_FILE or -config)
//   - CLI flags (override both)
//
// Usage:
//
//	# Serve ~/Documents on port 8000
//	./server -root ~/Documents
//
//	# Development mode (colored logs, debug level)
//	./server -dev -root ./sandbox -port 9000
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
