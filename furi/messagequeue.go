package furi

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"sync/atomic"

	"furigo/kernel"
)

// Dropper is implemented by messages that release something when discarded.
// MessageQueue.Close calls Drop on every message still queued.
type Dropper interface {
	Drop()
}

// MessageQueue is a bounded FIFO of M values copied through the kernel.
//
// M must have a fixed binary size (encoding/binary.Size) and exported
// fields: messages cross the kernel as little-endian bytes.
type MessageQueue[M any] struct {
	raw    *kernel.MessageQueue
	size   int
	closed atomic.Bool
}

// NewMessageQueue allocates a queue of capacity messages.
// A zero capacity, an M without a fixed size or an M with unexported
// fields crashes the kernel.
func NewMessageQueue[M any](capacity uint32) *MessageQueue[M] {
	var zero M
	size := binary.Size(zero)
	if size < 0 {
		kernel.Crash(fmt.Sprintf("message queue: %T has no fixed size", zero))
	}
	if field, ok := unexportedField(reflect.TypeOf(zero)); ok {
		kernel.Crash(fmt.Sprintf("message queue: %T has unexported field %s", zero, field))
	}
	return &MessageQueue[M]{
		raw:  kernel.MessageQueueAlloc(capacity, size),
		size: size,
	}
}

func (q *MessageQueue[M]) live() *kernel.MessageQueue {
	if q.closed.Load() {
		panic("furi: message queue used after close")
	}
	return q.raw
}

// Put copies msg into the queue, waiting up to timeout for space.
// On error the queue is unchanged.
func (q *MessageQueue[M]) Put(msg M, timeout Duration) error {
	raw := q.live()
	buf := make([]byte, q.size)
	if _, err := binary.Encode(buf, binary.LittleEndian, msg); err != nil {
		return fmt.Errorf("message queue: encode %T: %w", msg, err)
	}
	return statusErr("message queue", raw.Put(buf, timeout.Ticks()))
}

// Get removes the front message, waiting up to timeout for one.
func (q *MessageQueue[M]) Get(timeout Duration) (M, error) {
	var msg M
	buf := make([]byte, q.size)
	if err := statusErr("message queue", q.live().Get(buf, timeout.Ticks())); err != nil {
		return msg, err
	}
	if _, err := binary.Decode(buf, binary.LittleEndian, &msg); err != nil {
		return msg, fmt.Errorf("message queue: decode %T: %w", msg, err)
	}
	return msg, nil
}

// Capacity returns the number of slots.
func (q *MessageQueue[M]) Capacity() uint32 { return q.live().Capacity() }

// Len returns the number of queued messages.
func (q *MessageQueue[M]) Len() uint32 { return q.live().Count() }

// IsEmpty reports whether no message is queued.
func (q *MessageQueue[M]) IsEmpty() bool { return q.Len() == 0 }

// Space returns the number of free slots.
func (q *MessageQueue[M]) Space() uint32 { return q.live().Space() }

// Reset discards every queued message without dropping it.
func (q *MessageQueue[M]) Reset() error {
	return statusErr("message queue", q.live().Reset())
}

// Close drops the remaining messages and frees the kernel queue.
func (q *MessageQueue[M]) Close() {
	if !q.closed.CompareAndSwap(false, true) {
		return
	}
	buf := make([]byte, q.size)
	for q.raw.Get(buf, 0).IsOK() {
		var msg M
		if _, err := binary.Decode(buf, binary.LittleEndian, &msg); err != nil {
			continue
		}
		drop(&msg)
	}
	q.raw.Free()
}

// unexportedField finds a field binary.Decode cannot set. Blank fields are
// skipped by the codec and allowed.
func unexportedField(t reflect.Type) (string, bool) {
	switch t.Kind() {
	case reflect.Array:
		return unexportedField(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Name == "_" {
				continue
			}
			if !f.IsExported() {
				return t.String() + "." + f.Name, true
			}
			if name, ok := unexportedField(f.Type); ok {
				return name, true
			}
		}
	}
	return "", false
}

func drop[M any](msg *M) {
	if d, ok := any(msg).(Dropper); ok {
		d.Drop()
	}
}
