// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive a *zap.Logger, name it after themselves and fall back
// to zap.NewNop() when none is given. Per-frame loggers carry a frame_id
// field via ForFrame.
//
// Example Usage:
//
//	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
//	logger.Info("Server starting", zap.String("port", "8000"))
//	log := logger.ForFrame(string(frameID))
package logging
