// Package middleware provides the HTTP middleware stack of the document API.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing with configurable origins
//   - RateLimit: Per-IP token bucket rate limiting
//   - Recovery: Panic recovery with a JSON error body
//   - AccessLog: zap request logging with trace fields
//
// Rate Limiting:
//   - Per-IP tracking with idle client eviction
//   - Token bucket algorithm
//   - Configurable RPS and burst capacity
//   - Global rate limiting option
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
