package sandbox

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/framehost/internal/channel"
	"github.com/GriffinCanCode/framehost/internal/domain/program"
)

// ScriptName is the file name programs run under.
const ScriptName = "program.js"

// header precedes the program. Its length must equal
// linemap.WrapperHeaderLines so reported positions map back.
var header = []string{
	"(function (frame) {",
	"var print = function () { console.log.apply(console, arguments); };",
	"var autoscreenshot = function () { frame.capture(true); };",
	"var keysdown = function () { return frame.keysdown(); };",
	"// program",
}

// Wrap embeds the program in the frame wrapper, indenting every line.
func Wrap(p *program.Program) string {
	indent := p.Indent()

	var b strings.Builder
	for i, line := range header {
		if i > 0 {
			b.WriteString(indent)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, line := range p.Lines {
		b.WriteString(indent)
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(indent)
	b.WriteString(`frame.bind(typeof onkeydown === "function" ? onkeydown : null, typeof onkeyup === "function" ? onkeyup : null);`)
	b.WriteString("\n})(__frame);\n")
	return b.String()
}

// Host is the host end of a frame session.
type Host interface {
	Origin() string
	Program() *program.Program
	Attach(t channel.Transport) (func(), error)
	Receive(ev channel.RawEvent)
}

// Frame runs a program in a pooled runtime and speaks the frame side of
// the channel protocol: it announces readiness, reports failures, answers
// screenshot requests with its console output and dispatches key events
// to the program's onkeydown and onkeyup handlers.
type Frame struct {
	host   Host
	pool   *Pool
	rt     *Runtime
	logger *zap.Logger
	detach func()

	inbox chan []byte
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once

	// loop goroutine only
	keys      map[int]bool
	onkeydown goja.Callable
	onkeyup   goja.Callable
}

// Start attaches a new frame to host and runs its program. The frame keeps
// serving host messages until Stop. A program failure is reported to the
// host and returned in Result.Error; err is reserved for failures to start.
func Start(ctx context.Context, pool *Pool, host Host, logger *zap.Logger) (*Frame, *Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lang := host.Program().Language; lang != program.JavaScript {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}

	rt, err := pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}

	inbox := pool.Config().InboxSize
	if inbox <= 0 {
		inbox = 64
	}
	f := &Frame{
		host:   host,
		pool:   pool,
		rt:     rt,
		logger: logger.Named("sandbox"),
		inbox:  make(chan []byte, inbox),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		keys:   make(map[int]bool),
	}

	if err := rt.Bind("__frame", map[string]interface{}{
		"capture":  f.jsCapture,
		"keysdown": f.keysDown,
		"bind":     f.jsBind,
	}); err != nil {
		pool.Release(rt)
		return nil, nil, err
	}

	detach, err := host.Attach(f)
	if err != nil {
		pool.Release(rt)
		return nil, nil, err
	}
	f.detach = detach

	f.post(channel.ReadyMessage{Ready: true})

	result, err := rt.Run(ctx, ScriptName, Wrap(host.Program()))
	var se *ScriptError
	if errors.As(err, &se) {
		f.reportError(se)
	} else if err != nil {
		f.shutdown()
		return nil, nil, err
	}

	go f.loop()
	return f, result, nil
}

// PostMessage implements channel.Transport. It never blocks: the channel
// calls it with its lock held.
func (f *Frame) PostMessage(data []byte, targetOrigin string) error {
	select {
	case <-f.stop:
		return ErrStopped
	default:
	}

	select {
	case f.inbox <- append([]byte(nil), data...):
		return nil
	default:
		return ErrInboxFull
	}
}

// Stop ends the frame, detaches it from the host and returns its runtime
// to the pool. Safe to call more than once.
func (f *Frame) Stop() {
	f.once.Do(func() {
		close(f.stop)
		<-f.done
		f.detach()
		f.pool.Release(f.rt)
	})
}

// shutdown is Stop for a frame whose loop never started.
func (f *Frame) shutdown() {
	f.once.Do(func() {
		close(f.stop)
		f.detach()
		f.pool.Release(f.rt)
	})
}

func (f *Frame) loop() {
	defer close(f.done)
	for {
		select {
		case <-f.stop:
			return
		case msg := <-f.inbox:
			f.dispatch(msg)
		}
	}
}

type hostMessage struct {
	Screenshot bool               `json:"screenshot"`
	Event      *channel.EventData `json:"event"`
}

func (f *Frame) dispatch(data []byte) {
	var msg hostMessage
	if err := sonic.Unmarshal(data, &msg); err != nil {
		f.logger.Debug("Ignoring malformed host message", zap.Error(err))
		return
	}

	if msg.Screenshot {
		f.post(channel.ScreenshotMessage{Screenshot: f.capture()})
	}
	if msg.Event != nil {
		f.handleKey(*msg.Event)
	}
}

func (f *Frame) handleKey(ev channel.EventData) {
	var handler goja.Callable
	switch ev.Type {
	case "keydown":
		f.keys[ev.Which] = true
		handler = f.onkeydown
	case "keyup":
		delete(f.keys, ev.Which)
		handler = f.onkeyup
	default:
		return
	}
	if handler == nil {
		return
	}

	err := f.rt.Call(context.Background(), ScriptName, handler, map[string]interface{}{
		"type":  ev.Type,
		"which": ev.Which,
	})
	var se *ScriptError
	if errors.As(err, &se) {
		f.reportError(se)
	} else if err != nil {
		f.logger.Warn("Key handler failed", zap.Error(err))
	}
}

func (f *Frame) reportError(se *ScriptError) {
	f.post(channel.ErrorMessage{Error: se.Text, Traceback: se.Traceback()})
}

// capture renders the console output as a text data URL.
func (f *Frame) capture() string {
	text := f.rt.ConsoleText()
	if text == "" {
		text = "(no output)"
	}
	return "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte(text))
}

func (f *Frame) jsCapture(call goja.FunctionCall) goja.Value {
	f.post(channel.ScreenshotMessage{
		Screenshot:     f.capture(),
		AutoScreenshot: call.Argument(0).ToBoolean(),
	})
	return goja.Undefined()
}

func (f *Frame) jsBind(call goja.FunctionCall) goja.Value {
	f.onkeydown, _ = goja.AssertFunction(call.Argument(0))
	f.onkeyup, _ = goja.AssertFunction(call.Argument(1))
	return goja.Undefined()
}

func (f *Frame) keysDown() []int {
	keys := make([]int, 0, len(f.keys))
	for k := range f.keys {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// post sends a frame message to the host as if it came from the frame's
// origin.
func (f *Frame) post(msg interface{}) {
	data, err := sonic.Marshal(msg)
	if err != nil {
		f.logger.Error("Failed to serialize frame message", zap.Error(err))
		return
	}
	f.host.Receive(channel.RawEvent{Origin: f.host.Origin(), Data: data})
}
