package furi

import (
	"errors"
	"testing"

	"furigo/kernel"
)

func TestLockGuard(t *testing.T) {
	resetKernel(t)
	g, err := Lock()
	if err != nil {
		t.Fatalf("Lock() err = %v", err)
	}
	if g.WasLocked() {
		t.Fatal("WasLocked() = true for first lock")
	}
	if IsRunning() {
		t.Fatal("IsRunning() = true while locked")
	}
	g.Unlock()
	if !IsRunning() {
		t.Fatal("IsRunning() = false after Unlock")
	}
	expectPanic(t, "second Unlock", g.Unlock)
}

// The kernel lock is binary: the nested guard sees WasLocked, its Unlock
// resumes scheduling, and the outer Unlock finds the kernel already running.
func TestLockGuardNested(t *testing.T) {
	resetKernel(t)
	outer, err := Lock()
	if err != nil {
		t.Fatal(err)
	}
	inner, err := Lock()
	if err != nil {
		t.Fatal(err)
	}
	if !inner.WasLocked() {
		t.Fatal("nested WasLocked() = false")
	}

	inner.Unlock()
	if !IsRunning() {
		t.Fatal("inner Unlock should resume scheduling")
	}
	outer.Unlock()
	if !IsRunning() {
		t.Fatal("outer Unlock left the kernel locked")
	}
}

func TestLockInterrupted(t *testing.T) {
	resetKernel(t)
	check := func(err error) {
		t.Helper()
		if !errors.Is(err, ErrInterrupted) {
			t.Fatalf("err = %v, want ErrInterrupted", err)
		}
	}
	kernel.RunInISR(func() {
		_, err := Lock()
		check(err)
		_, err = LockKernel()
		check(err)
	})
	kernel.RunMasked(func() {
		if !IsIRQOrMasked() {
			t.Fatal("IsIRQOrMasked() = false while masked")
		}
		_, err := UnlockKernel()
		check(err)
		_, err = RestoreLock(Locked)
		check(err)
	})
	if !IsRunning() {
		t.Fatal("failed lock calls changed scheduler state")
	}
}

func TestRawLockState(t *testing.T) {
	resetKernel(t)
	if prev, err := LockKernel(); err != nil || prev != Unlocked {
		t.Fatalf("LockKernel() = %v, %v", prev, err)
	}
	if prev, err := RestoreLock(Unlocked); err != nil || prev != Unlocked {
		t.Fatalf("RestoreLock(Unlocked) = %v, %v", prev, err)
	}
	if !IsRunning() {
		t.Fatal("RestoreLock(Unlocked) did not resume")
	}
	if prev, err := UnlockKernel(); err != nil || prev != Unlocked {
		t.Fatalf("UnlockKernel() = %v, %v", prev, err)
	}
}

func TestLockGuardOtherThread(t *testing.T) {
	resetKernel(t)
	g, err := Lock()
	if err != nil {
		t.Fatal(err)
	}
	defer g.Unlock()

	done := make(chan bool)
	go func() {
		defer func() { done <- recover() != nil }()
		g.Unlock()
	}()
	if !<-done {
		t.Fatal("Unlock from another goroutine did not panic")
	}
}
