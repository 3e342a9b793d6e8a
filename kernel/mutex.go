package kernel

import "sync"

// MutexType selects the acquisition semantics of a kernel mutex.
type MutexType uint8

const (
	// MutexNormal blocks when the owner acquires it again.
	MutexNormal MutexType = iota
	// MutexRecursive counts repeated acquisitions by the owner.
	MutexRecursive
)

func (t MutexType) String() string {
	switch t {
	case MutexNormal:
		return "normal"
	case MutexRecursive:
		return "recursive"
	default:
		return "unknown"
	}
}

const mutexObjectBytes = 80

// Mutex is a kernel mutex handle.
type Mutex struct {
	s   *System
	typ MutexType

	mu      sync.Mutex
	owner   ThreadID
	depth   int
	changed notifier
	freed   bool
}

// MutexAlloc allocates a kernel mutex. It never returns nil.
func MutexAlloc(typ MutexType) *Mutex {
	check(typ == MutexNormal || typ == MutexRecursive, "invalid mutex type")
	s := current()
	s.alloc(mutexObjectBytes)
	return &Mutex{s: s, typ: typ}
}

// Type returns the mutex type.
func (m *Mutex) Type() MutexType { return m.typ }

func (m *Mutex) tryTake(id ThreadID) bool {
	switch {
	case m.depth == 0:
		m.owner = id
		m.depth = 1
		return true
	case m.typ == MutexRecursive && m.owner == id:
		m.depth++
		return true
	default:
		return false
	}
}

// Acquire takes the mutex, waiting up to timeout ticks.
//
// A normal mutex acquired again by its owner waits like any other caller.
func (m *Mutex) Acquire(timeout uint32) Status {
	if IsIRQ() {
		return StatusErrorISR
	}
	id := CurrentThreadID()

	m.mu.Lock()
	check(!m.freed, "mutex used after free")
	if m.tryTake(id) {
		m.mu.Unlock()
		return StatusOK
	}
	if timeout == 0 {
		m.mu.Unlock()
		return StatusErrorResource
	}

	d := m.s.newDeadline(timeout)
	defer d.stop()
	for {
		ch := m.changed.C()
		m.mu.Unlock()
		if !d.wait(ch) {
			return StatusErrorTimeout
		}
		m.mu.Lock()
		check(!m.freed, "mutex freed while waiting")
		if m.tryTake(id) {
			m.mu.Unlock()
			return StatusOK
		}
	}
}

// Release gives the mutex back. Only the owner may release it.
func (m *Mutex) Release() Status {
	if IsIRQ() {
		return StatusErrorISR
	}
	id := CurrentThreadID()

	m.mu.Lock()
	defer m.mu.Unlock()
	check(!m.freed, "mutex used after free")
	if m.depth == 0 || m.owner != id {
		return StatusErrorResource
	}
	m.depth--
	if m.depth == 0 {
		m.owner = 0
		m.changed.Broadcast()
	}
	return StatusOK
}

// Owner returns the owning thread, or 0 when the mutex is free.
func (m *Mutex) Owner() ThreadID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner
}

// Free releases the kernel object. The handle must not be used afterwards.
func (m *Mutex) Free() {
	m.mu.Lock()
	check(!m.freed, "mutex double free")
	m.freed = true
	m.changed.Broadcast()
	m.mu.Unlock()
	m.s.free(mutexObjectBytes)
}
