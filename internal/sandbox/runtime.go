package sandbox

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

var errRuntimeClosed = errors.New("sandbox runtime is closed")

// Runtime wraps a goja VM with security controls. A goja VM is not safe for
// concurrent use, so every entry point holds mu.
type Runtime struct {
	vm     *goja.Runtime
	config Config
	mu     sync.Mutex

	console   []LogEntry
	consoleMu sync.Mutex
}

// New creates a new sandboxed runtime
func New(config Config) (*Runtime, error) {
	r := &Runtime{config: config}
	if err := r.reset(); err != nil {
		return nil, err
	}
	return r, nil
}

// Run executes script under name, which is the file name reported in error
// positions. A failing script returns a *ScriptError both as err and in
// Result.Error.
func (r *Runtime) Run(ctx context.Context, name, script string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return nil, errRuntimeClosed
	}

	start := time.Now()
	stop := r.watch(ctx)
	val, err := r.vm.RunScript(name, script)
	stop()

	result := &Result{
		Duration: time.Since(start),
		Console:  r.Console(),
	}
	if err != nil {
		se := newScriptError(name, err)
		result.Error = se
		return result, se
	}
	result.Value = exportValue(val)
	return result, nil
}

// Call invokes a JavaScript function previously handed to Go.
func (r *Runtime) Call(ctx context.Context, scriptName string, fn goja.Callable, args ...interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return errRuntimeClosed
	}

	vals := make([]goja.Value, len(args))
	for i, a := range args {
		vals[i] = r.vm.ToValue(a)
	}

	stop := r.watch(ctx)
	_, err := fn(goja.Undefined(), vals...)
	stop()

	if err != nil {
		return newScriptError(scriptName, err)
	}
	return nil
}

// Bind exposes a global object whose properties are the given Go values.
func (r *Runtime) Bind(name string, props map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return errRuntimeClosed
	}
	obj := r.vm.NewObject()
	for k, v := range props {
		if err := obj.Set(k, v); err != nil {
			return err
		}
	}
	return r.vm.Set(name, obj)
}

// watch interrupts the VM when the timeout elapses or ctx ends. The
// returned func must be called once the VM call returns; it waits for the
// watcher so no interrupt leaks into the next call.
func (r *Runtime) watch(ctx context.Context) func() {
	var (
		timer   *time.Timer
		timeout <-chan time.Time
	)
	if r.config.Timeout > 0 {
		timer = time.NewTimer(r.config.Timeout)
		timeout = timer.C
	}

	done, exited := make(chan struct{}), make(chan struct{})
	go r.interruptOn(ctx, timeout, done, exited)

	return func() {
		if timer != nil {
			timer.Stop()
		}
		close(done)
		<-exited
		r.vm.ClearInterrupt()
	}
}

func (r *Runtime) interruptOn(ctx context.Context, timeout <-chan time.Time, done, exited chan struct{}) {
	defer close(exited)
	select {
	case <-timeout:
		r.vm.Interrupt("execution timeout exceeded")
	case <-ctx.Done():
		r.vm.Interrupt("context cancelled")
	case <-done:
	}
}

// Console returns a copy of the captured console output.
func (r *Runtime) Console() []LogEntry {
	r.consoleMu.Lock()
	defer r.consoleMu.Unlock()
	return append([]LogEntry{}, r.console...)
}

// ConsoleText joins captured console messages, one per line.
func (r *Runtime) ConsoleText() string {
	entries := r.Console()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Message
	}
	return strings.Join(lines, "\n")
}

// setupGlobals configures global objects and security
func (r *Runtime) setupGlobals() error {
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		for _, level := range []string{"log", "warn", "error", "info"} {
			if err := console.Set(level, r.makeConsoleFunc(level)); err != nil {
				return err
			}
		}
		if err := r.vm.Set("console", console); err != nil {
			return err
		}
	}

	// Timers are not supported; frames react to host messages instead.
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	for _, name := range []string{"setTimeout", "setInterval"} {
		if err := r.vm.Set(name, noop); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: strings.Join(parts, " "),
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

func exportValue(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

// Reset replaces the VM and clears the console
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reset()
}

func (r *Runtime) reset() error {
	r.vm = goja.New()
	if r.config.MaxCallStack > 0 {
		r.vm.SetMaxCallStackSize(r.config.MaxCallStack)
	}

	r.consoleMu.Lock()
	r.console = nil
	r.consoleMu.Unlock()

	return r.setupGlobals()
}

// Close releases resources
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.consoleMu.Lock()
	r.console = nil
	r.consoleMu.Unlock()
	return nil
}
