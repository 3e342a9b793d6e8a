package furi

import (
	"errors"

	"furigo/kernel"
)

// Status is a kernel status code. It implements error.
type Status = kernel.Status

// Kernel status sentinels. Match them with errors.Is.
const (
	StatusOK       = kernel.StatusOK
	ErrUnspecified = kernel.StatusError
	ErrTimeout     = kernel.StatusErrorTimeout
	ErrResource    = kernel.StatusErrorResource
	ErrParameter   = kernel.StatusErrorParameter
	ErrNoMemory    = kernel.StatusErrorNoMemory
	ErrISR         = kernel.StatusErrorISR
)

// ErrInterrupted is returned by calls that are not allowed in interrupt
// context or while interrupts are masked.
var ErrInterrupted = errors.New("furi: interrupt context")

// LockError is returned when the kernel lock cannot be changed.
type LockError struct {
	Err error
}

func (e *LockError) Error() string { return "kernel lock: " + e.Err.Error() }

func (e *LockError) Unwrap() error { return e.Err }

// statusErr converts a kernel status into an error, logging kinds that
// point at exhausted resources or misuse. Timeouts are ordinary control flow.
func statusErr(primitive string, st Status) error {
	if st.IsOK() {
		return nil
	}
	switch st {
	case ErrTimeout, ErrResource:
	default:
		logStatus(primitive, st)
	}
	return st
}
