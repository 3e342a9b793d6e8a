package furi

import (
	"sync/atomic"

	"furigo/kernel"
)

// Mutex guards a value with a kernel mutex.
type Mutex[T any] struct {
	raw    *kernel.Mutex
	value  T
	closed atomic.Bool
}

// NewMutex allocates a kernel mutex guarding v.
func NewMutex[T any](v T) *Mutex[T] {
	return &Mutex[T]{raw: kernel.MutexAlloc(kernel.MutexNormal), value: v}
}

// Lock blocks until the mutex is acquired.
func (m *Mutex[T]) Lock() (*MutexGuard[T], error) {
	for {
		g, err := m.LockTimeout(WaitForever)
		if err == ErrTimeout {
			continue
		}
		return g, err
	}
}

// TryLock acquires the mutex without waiting. A held mutex yields ErrResource.
func (m *Mutex[T]) TryLock() (*MutexGuard[T], error) {
	return m.LockTimeout(Zero)
}

// LockTimeout waits up to timeout for the mutex.
func (m *Mutex[T]) LockTimeout(timeout Duration) (*MutexGuard[T], error) {
	if m.closed.Load() {
		panic("furi: mutex used after close")
	}
	if err := statusErr("mutex", m.raw.Acquire(timeout.Ticks())); err != nil {
		return nil, err
	}
	return &MutexGuard[T]{m: m, owner: kernel.CurrentThreadID()}, nil
}

// WithLock runs fn with the mutex held.
func (m *Mutex[T]) WithLock(fn func(v *T)) error {
	g, err := m.Lock()
	if err != nil {
		return err
	}
	defer g.Unlock()
	fn(g.Value())
	return nil
}

// Close frees the kernel mutex. The mutex must not be held.
func (m *Mutex[T]) Close() {
	if m.closed.CompareAndSwap(false, true) {
		m.raw.Free()
	}
}

// MutexGuard is a held mutex. It is confined to the thread that locked it.
type MutexGuard[T any] struct {
	m        *Mutex[T]
	owner    kernel.ThreadID
	released bool
}

func (g *MutexGuard[T]) checkOwner() {
	if kernel.CurrentThreadID() != g.owner {
		panic("furi: mutex guard used from another thread")
	}
	if g.released {
		panic("furi: mutex guard used after unlock")
	}
}

// Value returns the guarded value. The pointer must not outlive the guard.
func (g *MutexGuard[T]) Value() *T {
	g.checkOwner()
	return &g.m.value
}

// Unlock releases the mutex. A failed release crashes the kernel.
func (g *MutexGuard[T]) Unlock() {
	g.checkOwner()
	g.released = true
	if st := g.m.raw.Release(); st.IsErr() {
		kernel.Crash("mutex release failed: " + st.Error())
	}
}
