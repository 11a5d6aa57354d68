// Package frames manages host-side sessions for embedded frames.
//
// A Session owns the Channel to one frame, the Program loaded into it and
// the host's view of the frame: readiness, the last error report, and the
// persisted screenshot. Frames attach through a channel.Transport (a
// WebSocket connection or the in-process sandbox) and host UIs subscribe
// for notifications.
//
// Screenshots are persisted when the session is writable and the capture
// was requested, or when it was automatic and no screenshot exists yet.
//
// Example Usage:
//
//	mgr := frames.NewManager(frames.Defaults{Origin: "http://localhost:8001"}, store, metrics, logger)
//	sess, err := mgr.Create(frames.CreateRequest{Source: src, Language: "javascript"})
//	detach, err := sess.Attach(transport)
package frames
