/*
Package sandbox runs frame programs in-process on the goja JavaScript engine.

# Overview

A Frame stands in for a browser frame: it attaches to a frame session as
its transport, announces readiness with {"ready":true}, runs the wrapped
program and keeps answering host messages until stopped.

  - Screenshot requests are answered with the console output as a
    text/plain data URL.
  - keydown and keyup events are dispatched to the program's onkeydown and
    onkeyup functions.
  - Failures are reported as "program.js:line:col: Kind: message" followed
    by the stack, the format a browser frame produces.

# Wrapping

Programs are indented and wrapped in a five-line header that exposes
print, autoscreenshot and keysdown. Positions in error reports are
relative to the wrapped script.

# Runtimes

Runtimes are pooled. Each call into a runtime is bounded by Config.Timeout
and by the caller's context; require, process, module and exports are
removed and timers are no-ops.

	pool, _ := sandbox.NewPool(sandbox.DefaultConfig(), 4)
	frame, result, err := sandbox.Start(ctx, pool, session, logger)
	defer frame.Stop()
*/
package sandbox
