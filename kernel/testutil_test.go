package kernel

import (
	"testing"
	"time"
)

func resetSystem(t *testing.T) *System {
	t.Helper()
	s, err := Init(DefaultConfig())
	if err != nil {
		t.Fatalf("Init() err = %v", err)
	}
	return s
}

// expectCrash runs fn and returns the crash message it raised.
func expectCrash(t *testing.T, fn func()) (msg string) {
	t.Helper()
	defer func() {
		r := recover()
		ce, ok := r.(*CrashError)
		if !ok {
			t.Fatalf("expected *CrashError panic, got %v", r)
		}
		msg = ce.Message
	}()
	fn()
	return ""
}

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}
