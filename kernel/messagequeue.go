package kernel

import "sync"

const messageQueueObjectBytes = 80

// MessageQueue is a fixed-capacity queue of fixed-size messages.
// Messages are copied in and out as raw bytes.
type MessageQueue struct {
	s        *System
	capacity uint32
	size     int

	mu      sync.Mutex
	head    uint32
	tail    uint32
	slots   []byte
	changed notifier
	freed   bool
}

// MessageQueueAlloc allocates a queue of count messages of size bytes each.
// Both must be non-zero. It never returns nil.
func MessageQueueAlloc(count uint32, size int) *MessageQueue {
	check(count > 0 && size > 0, "message queue: count and size must be non-zero")
	s := current()
	s.alloc(messageQueueObjectBytes + int(count)*size)
	return &MessageQueue{
		s:        s,
		capacity: count,
		size:     size,
		slots:    make([]byte, int(count)*size),
	}
}

func (q *MessageQueue) slot(i uint32) []byte {
	off := int(i%q.capacity) * q.size
	return q.slots[off : off+q.size]
}

func (q *MessageQueue) push(msg []byte) bool {
	if q.head-q.tail >= q.capacity {
		return false
	}
	copy(q.slot(q.head), msg)
	q.head++
	q.changed.Broadcast()
	return true
}

func (q *MessageQueue) pop(dst []byte) bool {
	if q.tail == q.head {
		return false
	}
	copy(dst, q.slot(q.tail))
	q.tail++
	q.changed.Broadcast()
	return true
}

// Put copies msg to the back of the queue, waiting up to timeout ticks for space.
//
// A full queue reports StatusErrorResource for a zero timeout and
// StatusErrorTimeout once a non-zero timeout expires; the queue is unchanged.
// From interrupt context only a zero timeout is accepted.
func (q *MessageQueue) Put(msg []byte, timeout uint32) Status {
	if len(msg) != q.size {
		return StatusErrorParameter
	}
	if timeout != 0 && IsIRQ() {
		return StatusErrorParameter
	}
	return q.wait(timeout, func() bool { return q.push(msg) })
}

// Get copies the front message into dst, waiting up to timeout ticks for one.
// dst is only written on success.
func (q *MessageQueue) Get(dst []byte, timeout uint32) Status {
	if len(dst) != q.size {
		return StatusErrorParameter
	}
	if timeout != 0 && IsIRQ() {
		return StatusErrorParameter
	}
	return q.wait(timeout, func() bool { return q.pop(dst) })
}

func (q *MessageQueue) wait(timeout uint32, op func() bool) Status {
	q.mu.Lock()
	check(!q.freed, "message queue used after free")
	if op() {
		q.mu.Unlock()
		return StatusOK
	}
	if timeout == 0 {
		q.mu.Unlock()
		return StatusErrorResource
	}

	d := q.s.newDeadline(timeout)
	defer d.stop()
	for {
		ch := q.changed.C()
		q.mu.Unlock()
		if !d.wait(ch) {
			return StatusErrorTimeout
		}
		q.mu.Lock()
		check(!q.freed, "message queue freed while waiting")
		if op() {
			q.mu.Unlock()
			return StatusOK
		}
	}
}

// Capacity returns the number of message slots.
func (q *MessageQueue) Capacity() uint32 { return q.capacity }

// MessageSize returns the size of one message in bytes.
func (q *MessageQueue) MessageSize() int { return q.size }

// Count returns the number of queued messages.
func (q *MessageQueue) Count() uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.head - q.tail
}

// Space returns the number of free slots.
func (q *MessageQueue) Space() uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity - (q.head - q.tail)
}

// Reset discards every queued message.
func (q *MessageQueue) Reset() Status {
	if IsIRQ() {
		return StatusErrorISR
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	check(!q.freed, "message queue used after free")
	q.tail = q.head
	q.changed.Broadcast()
	return StatusOK
}

// Free releases the kernel object. Queued messages are discarded.
func (q *MessageQueue) Free() {
	q.mu.Lock()
	check(!q.freed, "message queue double free")
	q.freed = true
	q.changed.Broadcast()
	q.mu.Unlock()
	q.s.free(messageQueueObjectBytes + int(q.capacity)*q.size)
}
