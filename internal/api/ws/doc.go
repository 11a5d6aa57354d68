// Package ws provides the WebSocket endpoints of a frame session.
//
// Frame endpoint (GET /frames/:id/connect): the embedded frame connects
// here. Every message it sends is handed to the session channel with the
// connection's Origin header as the message origin, so the channel's origin
// check applies exactly as it would to window messages. Host messages are
// written back on the same connection. One frame may be connected at a time.
//
// Host endpoint (GET /frames/:id/events): the host UI connects here and
// receives a "info" snapshot followed by one notification per accepted frame
// payload (ready, error, screenshot, event, message, closed).
//
// Message Types (Host → Server):
//   - screenshot: request a screenshot from the frame
//   - key: forward {"event":"keydown"|"keyup","which":N}
//   - ping: keep-alive ping
//
// Example Usage:
//
//	handler := ws.NewHandler(manager, metrics, logger, cfg.Frame.MaxMessageSize)
//	router.GET("/frames/:id/connect", handler.FrameConnect)
//	router.GET("/frames/:id/events", handler.HostEvents)
package ws
