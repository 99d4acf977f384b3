// Package-level structured logging for scheduler and exclusive-section
// diagnostics.
//
// Design decision: a package-level global logger is appropriate because
// logging is an infrastructure cross-cutting concern, every Core and
// primitive in a process shares the same logging sink, and per-instance
// configuration would bloat every constructor's signature for no benefit.
// SetLogger replaces the sink; the default is silent.

package kernel

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

var globalLogger struct {
	sync.RWMutex
	logger *logiface.Logger[*stumpy.Event]
}

// SetLogger installs the package-wide structured logger, used by the
// scheduler (thread create/destroy/suspend/resume and failed operations)
// and the exclusive section (entry timeouts) to emit trace events.
// Critlock and Mutex emit none. A nil logger restores the silent default.
func SetLogger(logger *logiface.Logger[*stumpy.Event]) {
	globalLogger.Lock()
	defer globalLogger.Unlock()
	globalLogger.logger = logger
}

// NewDefaultLogger builds a stumpy-backed logger writing newline-delimited
// JSON at the given level, suitable for passing to SetLogger.
func NewDefaultLogger(level logiface.Level) *logiface.Logger[*stumpy.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(),
		stumpy.L.WithLevel(level),
	)
}

func logger() *logiface.Logger[*stumpy.Event] {
	globalLogger.RLock()
	defer globalLogger.RUnlock()
	if globalLogger.logger != nil {
		return globalLogger.logger
	}
	return nil
}

// traceCoreEvent emits a debug-level scheduler/primitive event tagged with
// the originating core, op, and subject handle id. It is a no-op if no
// logger has been installed.
func traceCoreEvent(core CoreID, op string, id int32, msg string) {
	l := logger()
	if l == nil {
		return
	}
	l.Debug().
		Int(`core`, int(core)).
		Str(`op`, op).
		Int(`id`, int(id)).
		Log(msg)
}

// traceError emits an error-level event for a failed operation, including
// its resulting Code. It is a no-op if no logger has been installed.
func traceError(op string, err *Error) {
	l := logger()
	if l == nil || err == nil {
		return
	}
	l.Err().
		Str(`op`, op).
		Str(`code`, err.Code.String()).
		Str(`detail`, err.Detail).
		Log(`operation failed`)
}
