package furi

import (
	"sync/atomic"

	"furigo/kernel"
)

// IsIRQOrMasked reports whether the caller runs in interrupt context or
// with interrupts masked.
func IsIRQOrMasked() bool { return kernel.IsIRQOrMasked() }

// IsRunning reports whether the scheduler is running.
func IsRunning() bool { return kernel.IsRunning() }

// TickFrequency returns the kernel tick frequency in hertz.
func TickFrequency() uint32 { return kernel.TickFrequency() }

// Tick returns the current kernel tick.
func Tick() uint32 { return kernel.Tick() }

// LockState is the scheduler lock state.
type LockState int32

const (
	Unlocked LockState = LockState(kernel.LockStateUnlocked)
	Locked   LockState = LockState(kernel.LockStateLocked)
)

func (s LockState) String() string {
	if s == Locked {
		return "locked"
	}
	return "unlocked"
}

func lockResult(st kernel.Status) (LockState, error) {
	v, err := st.IntoResult()
	if err != nil {
		logStatus("kernel lock", st)
		return Unlocked, &LockError{Err: err}
	}
	return LockState(v), nil
}

// LockKernel pauses scheduling and returns the previous state.
func LockKernel() (LockState, error) {
	if IsIRQOrMasked() {
		return Unlocked, &LockError{Err: ErrInterrupted}
	}
	return lockResult(kernel.KernelLock())
}

// UnlockKernel resumes scheduling and returns the previous state.
func UnlockKernel() (LockState, error) {
	if IsIRQOrMasked() {
		return Unlocked, &LockError{Err: ErrInterrupted}
	}
	return lockResult(kernel.KernelUnlock())
}

// RestoreLock reapplies a state read earlier and returns it.
func RestoreLock(state LockState) (LockState, error) {
	if IsIRQOrMasked() {
		return Unlocked, &LockError{Err: ErrInterrupted}
	}
	return lockResult(kernel.KernelRestoreLock(int32(state)))
}

// LockGuard holds the scheduler paused. It is confined to the locking thread.
//
// The kernel lock does not nest: a guard taken while already locked reports
// WasLocked, and the first Unlock of any guard resumes scheduling.
type LockGuard struct {
	owner     kernel.ThreadID
	wasLocked bool
	released  atomic.Bool
}

// Lock pauses scheduling until the returned guard is unlocked.
// It fails with ErrInterrupted in interrupt context or with interrupts masked.
func Lock() (*LockGuard, error) {
	prev, err := LockKernel()
	if err != nil {
		return nil, err
	}
	return &LockGuard{
		owner:     kernel.CurrentThreadID(),
		wasLocked: prev == Locked,
	}, nil
}

// WasLocked reports whether scheduling was already paused.
func (g *LockGuard) WasLocked() bool { return g.wasLocked }

// Unlock resumes scheduling. A second Unlock, or an Unlock from another
// thread, panics.
func (g *LockGuard) Unlock() {
	if kernel.CurrentThreadID() != g.owner {
		panic("furi: kernel lock guard used from another thread")
	}
	if !g.released.CompareAndSwap(false, true) {
		panic("furi: kernel lock guard unlocked twice")
	}
	if _, err := UnlockKernel(); err != nil {
		kernel.Crash("kernel unlock failed: " + err.Error())
	}
}
