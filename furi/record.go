package furi

import (
	"fmt"
	"sync/atomic"

	"furigo/kernel"
)

// Well-known record names.
const (
	RecordGUI          = "gui"
	RecordNotification = "notification"
	RecordDialogs      = "dialogs"
	RecordStorage      = "storage"
	RecordDolphin      = "dolphin"
)

// Record is an open handle to a named kernel service.
//
// The kernel counts open handles per name; each Record holds one count
// until Close.
type Record[T any] struct {
	name   string
	data   T
	closed atomic.Bool
}

// OpenRecord opens name, blocking until the service is created.
// It panics when the service is not a T.
func OpenRecord[T any](name string) *Record[T] {
	v := kernel.RecordOpen(name)
	data, ok := v.(T)
	if !ok {
		kernel.RecordClose(name)
		panic(fmt.Sprintf("furi: record %q holds %T, not %T", name, v, data))
	}
	return &Record[T]{name: name, data: data}
}

// Name returns the record name.
func (r *Record[T]) Name() string { return r.name }

// Get returns the service. It panics after Close.
func (r *Record[T]) Get() T {
	if r.closed.Load() {
		panic("furi: record " + r.name + " used after close")
	}
	return r.data
}

// Clone opens another handle to the same record.
func (r *Record[T]) Clone() *Record[T] {
	if r.closed.Load() {
		panic("furi: record " + r.name + " cloned after close")
	}
	return OpenRecord[T](r.name)
}

// Close releases the handle. Closing twice is a no-op.
func (r *Record[T]) Close() {
	if r.closed.CompareAndSwap(false, true) {
		kernel.RecordClose(r.name)
	}
}
