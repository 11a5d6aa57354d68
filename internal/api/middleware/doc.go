// Package middleware provides the HTTP middleware in front of the frame API.
//
// CORS admits the host pages listed in CORS_ORIGINS. With the wildcard
// origin credentials are disabled.
//
// RateLimit keeps a token bucket per client IP and forgets clients that have
// been idle longer than IdleTTL. GlobalRateLimit shares one bucket across all
// callers.
//
//	router.Use(middleware.CORS(middleware.CORSConfigFor(cfg.Server.CORSOrigins)))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
