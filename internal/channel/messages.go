package channel

// Host → frame messages.

// ScreenshotRequest asks the frame to capture a screenshot.
type ScreenshotRequest struct {
	Screenshot bool `json:"screenshot"`
}

// EventMessage forwards a UI event to the frame.
type EventMessage struct {
	Event EventData `json:"event"`
}

// EventData is the reduced form of a forwarded keyboard event.
type EventData struct {
	Type  string `json:"type"`
	Which int    `json:"which"`
}

// Frame → host messages, used by in-process frames.

// ReadyMessage is the frame handshake.
type ReadyMessage struct {
	Ready bool `json:"ready"`
}

// ErrorMessage reports a failure inside the frame.
type ErrorMessage struct {
	Error     string `json:"error"`
	Traceback string `json:"traceback,omitempty"`
}

// ScreenshotMessage returns captured screenshot data.
type ScreenshotMessage struct {
	Screenshot     string `json:"screenshot"`
	AutoScreenshot bool   `json:"autoscreenshot,omitempty"`
}
