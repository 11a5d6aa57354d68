package sandbox

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dop251/goja"
)

var (
	ErrPoolClosed = errors.New("sandbox pool is closed")
	ErrTimeout    = errors.New("sandbox acquisition timeout")
	ErrStopped    = errors.New("sandbox frame stopped")
	ErrInboxFull  = errors.New("sandbox frame inbox full")

	ErrUnsupportedLanguage = errors.New("sandbox runs javascript programs only")

	// stackPosition matches "name:line:col" inside a goja stack frame.
	stackPosition = regexp.MustCompile(`([^\s()]+):(\d+):(\d+)`)
)

// ScriptError is a failure raised by the program. Text is formatted the
// way a browser frame reports errors: "file:line:col: Kind: message"
// followed by the stack, one frame per line.
type ScriptError struct {
	Text   string
	Line   int // position in the wrapped script, 0 if unknown
	Column int
	Cause  error
}

func (e *ScriptError) Error() string { return e.Text }
func (e *ScriptError) Unwrap() error { return e.Cause }

// Traceback returns the stack part of Text.
func (e *ScriptError) Traceback() string {
	_, tb, _ := strings.Cut(e.Text, "\n")
	return tb
}

func newScriptError(scriptName string, err error) *ScriptError {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return &ScriptError{Text: fmt.Sprintf("InterruptedError: %v", interrupted.Value()), Cause: err}
	}

	var exception *goja.Exception
	if !errors.As(err, &exception) {
		// Compile errors carry their own position text.
		return &ScriptError{Text: err.Error(), Cause: err}
	}

	msg := "undefined"
	if v := exception.Value(); v != nil {
		msg = v.String()
	}
	if !strings.Contains(msg, ":") {
		msg = "Uncaught: " + msg
	}

	_, stack, found := strings.Cut(exception.String(), "\n")
	if !found {
		stack = exception.Error()
	}
	var frames []string
	for _, line := range strings.Split(stack, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			frames = append(frames, line)
		}
	}

	se := &ScriptError{Text: msg, Cause: err}
	if line, col, ok := scriptPosition(stack, scriptName); ok {
		se.Line, se.Column = line, col
		se.Text = fmt.Sprintf("%s:%d:%d: %s", scriptName, line, col, msg)
	}
	if len(frames) > 0 {
		se.Text += "\n" + strings.Join(frames, "\n")
	}
	return se
}

// scriptPosition returns the first stack position inside scriptName.
func scriptPosition(stack, scriptName string) (line, col int, ok bool) {
	for _, m := range stackPosition.FindAllStringSubmatch(stack, -1) {
		if m[1] != scriptName {
			continue
		}
		line, _ = strconv.Atoi(m[2])
		col, _ = strconv.Atoi(m[3])
		return line, col, true
	}
	return 0, 0, false
}
