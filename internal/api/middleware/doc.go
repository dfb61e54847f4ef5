// Package middleware provides the HTTP middleware used by the gin transport.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing with configurable origins
//   - RateLimit: Per-IP token bucket rate limiting with idle client eviction
//   - RequestLogger: Request ids and zap request logging
//
// Rejected requests get the same failure envelope as a failed tool call.
//
// Example Usage:
//
//	router.Use(middleware.RequestLogger(log))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
