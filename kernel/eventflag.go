package kernel

import "sync"

// FlagError marks a flag-word return as an encoded error status.
// Bit 31 therefore cannot be used as an event flag.
const FlagError uint32 = 0x80000000

// FlagOption controls how EventFlag.Wait matches and clears.
type FlagOption uint32

const (
	// FlagWaitAny wakes when any requested bit is set.
	FlagWaitAny FlagOption = 0
	// FlagWaitAll wakes when all requested bits are set.
	FlagWaitAll FlagOption = 1 << 0
	// FlagNoClear leaves matched bits set on return.
	FlagNoClear FlagOption = 1 << 1
)

const eventFlagObjectBytes = 48

// flagWord encodes an error status as a flag-word return.
func flagWord(st Status) uint32 { return uint32(st) }

type flagWaiter struct {
	mask uint32
	opt  FlagOption
	done chan uint32
}

func (w *flagWaiter) satisfied(bits uint32) bool {
	if w.opt&FlagWaitAll != 0 {
		return bits&w.mask == w.mask
	}
	return bits&w.mask != 0
}

// EventFlag is a kernel event group holding 31 usable flag bits.
type EventFlag struct {
	s *System

	mu      sync.Mutex
	bits    uint32
	waiters []*flagWaiter
	freed   bool
}

// EventFlagAlloc allocates a kernel event flag. It never returns nil.
func EventFlagAlloc() *EventFlag {
	s := current()
	s.alloc(eventFlagObjectBytes)
	return &EventFlag{s: s}
}

// Set ORs flags into the group and returns the resulting word after every
// waiter it released has cleared its bits. Errors are encoded with FlagError.
func (e *EventFlag) Set(flags uint32) uint32 {
	if flags&FlagError != 0 {
		return flagWord(StatusErrorParameter)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	check(!e.freed, "event flag used after free")

	e.bits |= flags
	var clear uint32
	kept := e.waiters[:0]
	for _, w := range e.waiters {
		if !w.satisfied(e.bits) {
			kept = append(kept, w)
			continue
		}
		w.done <- e.bits
		if w.opt&FlagNoClear == 0 {
			clear |= w.mask
		}
	}
	for i := len(kept); i < len(e.waiters); i++ {
		e.waiters[i] = nil
	}
	e.waiters = kept
	e.bits &^= clear
	return e.bits
}

// Clear removes flags and returns the word as it was before clearing.
func (e *EventFlag) Clear(flags uint32) uint32 {
	if flags&FlagError != 0 {
		return flagWord(StatusErrorParameter)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	check(!e.freed, "event flag used after free")

	prev := e.bits
	e.bits &^= flags
	return prev
}

// Get returns the current flag word.
func (e *EventFlag) Get() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	check(!e.freed, "event flag used after free")
	return e.bits
}

// Wait blocks up to timeout ticks for flags according to opt and returns the
// word observed when the wait was satisfied (before any clearing).
//
// An unsatisfied zero-timeout wait reports StatusErrorResource, an expired one
// StatusErrorTimeout; both are encoded with FlagError.
func (e *EventFlag) Wait(flags uint32, opt FlagOption, timeout uint32) uint32 {
	if flags == 0 || flags&FlagError != 0 {
		return flagWord(StatusErrorParameter)
	}
	if IsIRQ() {
		return flagWord(StatusErrorISR)
	}

	w := &flagWaiter{mask: flags, opt: opt, done: make(chan uint32, 1)}

	e.mu.Lock()
	check(!e.freed, "event flag used after free")
	if w.satisfied(e.bits) {
		got := e.bits
		if opt&FlagNoClear == 0 {
			e.bits &^= flags
		}
		e.mu.Unlock()
		return got
	}
	if timeout == 0 {
		e.mu.Unlock()
		return flagWord(StatusErrorResource)
	}
	e.waiters = append(e.waiters, w)
	e.mu.Unlock()

	d := e.s.newDeadline(timeout)
	defer d.stop()
	if d.forever {
		return <-w.done
	}
	select {
	case got := <-w.done:
		return got
	case <-d.timer.C:
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, other := range e.waiters {
		if other == w {
			e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
			return flagWord(StatusErrorTimeout)
		}
	}
	// Set released us between the timer firing and taking the lock.
	return <-w.done
}

// Free releases the kernel object. The handle must not be used afterwards.
func (e *EventFlag) Free() {
	e.mu.Lock()
	check(!e.freed, "event flag double free")
	check(len(e.waiters) == 0, "event flag freed with waiters")
	e.freed = true
	e.mu.Unlock()
	e.s.free(eventFlagObjectBytes)
}
