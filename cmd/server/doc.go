// Package main is the entry point for the frame host server.
//
// The server hosts sandboxed program frames for a host UI. Each frame
// session owns a message channel that holds host messages until the frame
// signals it is ready, normalizes the frame's error reports back to program
// line numbers, and stores screenshots the frame sends.
//
//	Host UI ⇄ REST + /frames/:id/events ⇄ Frame host ⇄ /frames/:id/connect ⇄ Frame
//	                                          ↳ in-process JavaScript sandbox
//
// The server provides:
//   - REST API for frame sessions
//   - WebSocket endpoints for frames and host UIs
//   - An in-process JavaScript sandbox frame
//   - Prometheus metrics and request tracing
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -origin https://frames.example.com
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
