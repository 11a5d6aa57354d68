// Package config provides 12-factor configuration management for framehost.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, CORS, compression)
//   - Frame: defaults for new frame sessions (origin, language, indent)
//   - Sandbox: in-process goja frame (enabled, timeout, pool size)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Named frame profiles can additionally be loaded from a YAML or TOML file:
//
//	profiles:
//	  glowscript:
//	    origin: https://sandbox.example.com
//	    language: glowscript
//	    indent_width: 4
//	    writable: true
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, CORS_ORIGINS, HTTP_COMPRESS
//   - FRAME_ORIGIN, FRAME_LANGUAGE, FRAME_INDENT, FRAME_MAX_MESSAGE, FRAME_PROFILES
//   - SANDBOX_ENABLED, SANDBOX_TIMEOUT, SANDBOX_POOL
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
