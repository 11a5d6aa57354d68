/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for framehost,
tracking HTTP requests, frame channel traffic, error report line mapping,
screenshots and sandbox runs. Every Metrics value owns its own registry so
several servers (and tests) can coexist in one process.

# Features

- HTTP request metrics (latency, throughput) keyed by route template
- Channel metrics (queued, delivered, dropped by reason, handshakes)
- Error reports by language and mapping outcome
- WebSocket connections by role (frame, host)
- Go runtime and process collectors

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	ch := channel.New(t, origin, channel.WithObserver(metrics.ChannelObserver()))
*/
package monitoring
