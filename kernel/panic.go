package kernel

import (
	"runtime/debug"
	"sync/atomic"

	"go.uber.org/zap"
)

// CrashInfo contains details about a kernel crash.
type CrashInfo struct {
	Thread     ThreadID
	ThreadName string
	Message    string
	Stack      []byte
}

// CrashError is the panic value raised by Crash.
type CrashError struct {
	Message string
}

func (e *CrashError) Error() string { return "furi_crash: " + e.Message }

var crashHandler atomic.Value // func(CrashInfo)

// SetCrashHandler installs a process-wide crash handler.
//
// The handler is invoked at most once per System (on the first crash). It must not panic.
func SetCrashHandler(fn func(CrashInfo)) {
	crashHandler.Store(fn)
}

// InCrashMode reports whether the current system has crashed.
func InCrashMode() bool {
	return current().crashed.Load()
}

// Crash halts the calling thread: the crash handler runs (once), then the
// caller panics with a *CrashError. It never returns.
//
// Allocation failures and violated kernel invariants end here.
func Crash(msg string) {
	current().report(msg)
	panic(&CrashError{Message: msg})
}

// report enters crash mode and runs the crash handler on the first call.
func (s *System) report(msg string) {
	s.crashOnce.Do(func() {
		s.crashed.Store(true)
		id := CurrentThreadID()
		info := CrashInfo{
			Thread:     id,
			ThreadName: ThreadName(id),
			Message:    msg,
			Stack:      debug.Stack(),
		}
		Logger().Error("kernel crash",
			zap.String("message", msg),
			zap.Uint64("thread", uint64(id)),
			zap.String("thread_name", info.ThreadName),
		)
		if v := crashHandler.Load(); v != nil {
			if fn, ok := v.(func(CrashInfo)); ok && fn != nil {
				fn(info)
			}
		}
	})
}

// check crashes with msg unless cond holds.
func check(cond bool, msg string) {
	if !cond {
		Crash(msg)
	}
}
