package sandbox

import (
	"time"
)

// Config defines sandbox configuration
type Config struct {
	Timeout        time.Duration // Per-call execution limit, zero for none
	MaxCallStack   int           // Maximum JavaScript call depth
	EnableConsole  bool          // Capture console.log/warn/error/info
	AcquireTimeout time.Duration // How long Pool.Acquire waits for a free runtime
	InboxSize      int           // Host messages buffered per frame
}

// Result holds execution result
type Result struct {
	Value    interface{}   // Completion value
	Console  []LogEntry    // Console output
	Duration time.Duration // Execution time
	Error    error         // *ScriptError when the program failed
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Timeout:        5 * time.Second,
		MaxCallStack:   1024,
		EnableConsole:  true,
		AcquireTimeout: 5 * time.Second,
		InboxSize:      64,
	}
}
