package furi

import (
	"sync/atomic"

	"furigo/kernel"
)

// EventFlag is a group of 31 flag bits threads can set and wait on.
// Bit 31 is reserved; passing it yields ErrParameter.
type EventFlag struct {
	raw    *kernel.EventFlag
	closed atomic.Bool
}

// NewEventFlag allocates a kernel event flag with every bit clear.
func NewEventFlag() *EventFlag {
	return &EventFlag{raw: kernel.EventFlagAlloc()}
}

func (e *EventFlag) live() *kernel.EventFlag {
	if e.closed.Load() {
		panic("furi: event flag used after close")
	}
	return e.raw
}

func flagResult(v uint32) (uint32, error) {
	flags, st := kernel.FlagStatus(v)
	if err := statusErr("event flag", st); err != nil {
		return 0, err
	}
	return flags, nil
}

// Set sets flags and returns the resulting word. Waiters released by this
// call may already have cleared their bits from the returned word.
func (e *EventFlag) Set(flags uint32) (uint32, error) {
	return flagResult(e.live().Set(flags))
}

// Clear clears flags and returns the word as it was before.
func (e *EventFlag) Clear(flags uint32) (uint32, error) {
	return flagResult(e.live().Clear(flags))
}

// Get returns the current word.
func (e *EventFlag) Get() uint32 {
	return e.live().Get()
}

// WaitAny waits until any of flags is set and returns the word observed.
// With clear set the matched flags are cleared on return.
func (e *EventFlag) WaitAny(flags uint32, clear bool, timeout Duration) (uint32, error) {
	return e.wait(flags, kernel.FlagWaitAny, clear, timeout)
}

// WaitAll waits until all of flags are set and returns the word observed.
// With clear set the matched flags are cleared on return.
func (e *EventFlag) WaitAll(flags uint32, clear bool, timeout Duration) (uint32, error) {
	return e.wait(flags, kernel.FlagWaitAll, clear, timeout)
}

func (e *EventFlag) wait(flags uint32, opt kernel.FlagOption, clear bool, timeout Duration) (uint32, error) {
	if !clear {
		opt |= kernel.FlagNoClear
	}
	return flagResult(e.live().Wait(flags, opt, timeout.Ticks()))
}

// Close frees the kernel event flag.
func (e *EventFlag) Close() {
	if e.closed.CompareAndSwap(false, true) {
		e.raw.Free()
	}
}
