package kernel

import "strconv"

// Status is the kernel's signed operation status.
//
// Zero is success, negative values are error kinds. Some calls return a
// non-negative payload (a flag word, a lock state) through the same encoding.
type Status int32

const (
	// StatusOK means the operation completed successfully.
	StatusOK Status = 0
	// StatusError is an unspecified RTOS error.
	StatusError Status = -1
	// StatusErrorTimeout means the operation did not complete within the timeout.
	StatusErrorTimeout Status = -2
	// StatusErrorResource means the resource is not available.
	StatusErrorResource Status = -3
	// StatusErrorParameter is a parameter error.
	StatusErrorParameter Status = -4
	// StatusErrorNoMemory means memory could not be allocated or reserved.
	StatusErrorNoMemory Status = -5
	// StatusErrorISR means the call is not allowed in interrupt context.
	StatusErrorISR Status = -6
)

// IsOK reports whether s is the success code.
func (s Status) IsOK() bool { return s == StatusOK }

// IsErr reports whether s is anything but the success code.
func (s Status) IsErr() bool { return s != StatusOK }

// Description describes the status kind.
func (s Status) Description() string {
	switch s {
	case StatusOK:
		return "Operation completed successfully"
	case StatusError:
		return "Unspecified RTOS error"
	case StatusErrorTimeout:
		return "Operation not completed within the timeout period"
	case StatusErrorResource:
		return "Resource not available"
	case StatusErrorParameter:
		return "Parameter error"
	case StatusErrorNoMemory:
		return "System is out of memory"
	case StatusErrorISR:
		return "Not allowed in ISR context"
	default:
		return "Unknown"
	}
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusErrorTimeout:
		return "timeout"
	case StatusErrorResource:
		return "resource"
	case StatusErrorParameter:
		return "parameter"
	case StatusErrorNoMemory:
		return "no_memory"
	case StatusErrorISR:
		return "isr"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// Error implements error.
func (s Status) Error() string {
	return s.Description() + " (" + strconv.Itoa(int(s)) + ")"
}

// Err returns nil for StatusOK and s otherwise.
func (s Status) Err() error {
	if s == StatusOK {
		return nil
	}
	return s
}

// IntoResult splits a raw return into payload and error: non-negative values
// are payloads, negative values are errors.
func (s Status) IntoResult() (int32, error) {
	if s < 0 {
		return 0, s
	}
	return int32(s), nil
}

// FlagStatus decodes a flag-word return. The kernel reports errors in flag
// calls by returning the negative status reinterpreted as an unsigned word.
func FlagStatus(v uint32) (uint32, Status) {
	if v&FlagError != 0 {
		return 0, Status(int32(v))
	}
	return v, StatusOK
}
