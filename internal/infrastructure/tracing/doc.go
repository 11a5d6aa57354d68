/*
Package tracing provides lightweight request tracing for debugging frame
sessions.

# Overview

Every HTTP request (including WebSocket upgrades) gets a span carrying a
trace ID, its duration, status and, for /frames/:id routes, the frame ID.
Completed spans are collected on a buffered channel and written through zap.

# Usage

	tracer := tracing.New("framehost", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "sandbox.run")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

# Trace Format

Traces use HTTP headers for propagation:
- X-Trace-ID: Unique identifier for entire request flow
- X-Span-ID: Identifier for current operation
*/
package tracing
