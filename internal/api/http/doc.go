// Package http provides the REST endpoints for frame sessions.
//
// Handlers translate domain errors into status codes: unknown frames are
// 404, operations that need a ready frame are 409 until the handshake,
// screenshots on read-only sessions are 403.
package http
