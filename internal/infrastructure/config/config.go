package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Frame     FrameConfig
	Sandbox   SandboxConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string   `envconfig:"PORT" default:"8000"`
	Host        string   `envconfig:"HOST" default:"0.0.0.0"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
	Compress    bool     `envconfig:"HTTP_COMPRESS" default:"true"`
}

// FrameConfig holds defaults for new frame sessions.
type FrameConfig struct {
	Origin         string `envconfig:"FRAME_ORIGIN" default:"http://localhost:8001"`
	Language       string `envconfig:"FRAME_LANGUAGE" default:"javascript"`
	IndentWidth    int    `envconfig:"FRAME_INDENT" default:"4"`
	Writable       bool   `envconfig:"FRAME_WRITABLE" default:"true"`
	MaxMessageSize int64  `envconfig:"FRAME_MAX_MESSAGE" default:"4194304"`
	ProfilesFile   string `envconfig:"FRAME_PROFILES"`
}

// SandboxConfig holds in-process sandbox frame configuration.
type SandboxConfig struct {
	Enabled  bool          `envconfig:"SANDBOX_ENABLED" default:"true"`
	Timeout  time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"5s"`
	PoolSize int           `envconfig:"SANDBOX_POOL" default:"4"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8000",
			Host:        "0.0.0.0",
			CORSOrigins: []string{"*"},
			Compress:    true,
		},
		Frame: FrameConfig{
			Origin:         "http://localhost:8001",
			Language:       "javascript",
			IndentWidth:    4,
			Writable:       true,
			MaxMessageSize: 4 << 20,
		},
		Sandbox: SandboxConfig{
			Enabled:  true,
			Timeout:  5 * time.Second,
			PoolSize: 4,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
