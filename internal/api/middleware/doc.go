// Package middleware provides the HTTP middleware for the widget gateway.
//
// Middleware stack includes:
//   - CORS: origins come from CORS_ALLOWED_ORIGINS, "*" allows any origin without credentials
//   - RateLimit: per-IP token bucket with idle client eviction
//   - GlobalRateLimit: one bucket for the whole process
//   - RequestLogger: one zap line per request, tagged with the trace id
//   - Recovery: panics become a 500 JSON error
//
// Example Usage:
//
//	router.Use(middleware.Recovery(logger))
//	router.Use(middleware.CORS(middleware.CORSConfigFor(cfg.CORS.AllowedOrigins)))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
