package kernel

import "sync"

const streamBufferObjectBytes = 64

// StreamBuffer is a byte ring buffer for one writer and one reader.
//
// A blocked reader is released once the buffered byte count reaches the
// trigger level.
type StreamBuffer struct {
	s    *System
	size int

	mu      sync.Mutex
	buf     []byte
	w       uint64
	r       uint64
	trigger int
	blocked int
	changed notifier
	freed   bool
}

// StreamBufferAlloc allocates a stream buffer of size bytes.
// size must be non-zero and trigger must not exceed it. It never returns nil.
func StreamBufferAlloc(size, trigger int) *StreamBuffer {
	check(size > 0, "stream buffer: size must be non-zero")
	check(trigger >= 0 && trigger <= size, "stream buffer: trigger level exceeds size")
	s := current()
	s.alloc(streamBufferObjectBytes + size)
	if trigger == 0 {
		trigger = 1
	}
	return &StreamBuffer{
		s:       s,
		size:    size,
		buf:     make([]byte, size),
		trigger: trigger,
	}
}

// Size returns the buffer capacity in bytes.
func (b *StreamBuffer) Size() int { return b.size }

// SetTriggerLevel updates the trigger level. It fails when level exceeds the size.
func (b *StreamBuffer) SetTriggerLevel(level int) bool {
	if level < 0 || level > b.size {
		return false
	}
	if level == 0 {
		level = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	check(!b.freed, "stream buffer used after free")
	b.trigger = level
	b.changed.Broadcast()
	return true
}

// TriggerLevel returns the current trigger level.
func (b *StreamBuffer) TriggerLevel() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.trigger
}

func (b *StreamBuffer) available() int { return int(b.w - b.r) }
func (b *StreamBuffer) space() int     { return b.size - int(b.w-b.r) }

func (b *StreamBuffer) write(data []byte) int {
	n := min(len(data), b.space())
	if n == 0 {
		return 0
	}
	idx := int(b.w % uint64(b.size))
	chunk := min(n, b.size-idx)
	copy(b.buf[idx:idx+chunk], data[:chunk])
	if chunk < n {
		copy(b.buf[:n-chunk], data[chunk:n])
	}
	b.w += uint64(n)
	b.changed.Broadcast()
	return n
}

func (b *StreamBuffer) read(dst []byte) int {
	n := min(len(dst), b.available())
	if n == 0 {
		return 0
	}
	idx := int(b.r % uint64(b.size))
	chunk := min(n, b.size-idx)
	copy(dst[:chunk], b.buf[idx:idx+chunk])
	if chunk < n {
		copy(dst[chunk:n], b.buf[:n-chunk])
	}
	b.r += uint64(n)
	b.changed.Broadcast()
	return n
}

// Send copies as much of data as fits and, while bytes remain, waits up to
// timeout ticks for the reader to make room. It returns the bytes written.
// In interrupt context the timeout is ignored.
func (b *StreamBuffer) Send(data []byte, timeout uint32) int {
	if IsIRQ() {
		timeout = 0
	}

	b.mu.Lock()
	check(!b.freed, "stream buffer used after free")
	sent := b.write(data)
	if sent == len(data) || timeout == 0 {
		b.mu.Unlock()
		return sent
	}

	d := b.s.newDeadline(timeout)
	defer d.stop()
	b.blocked++
	for sent < len(data) {
		ch := b.changed.C()
		b.mu.Unlock()
		ok := d.wait(ch)
		b.mu.Lock()
		check(!b.freed, "stream buffer freed while waiting")
		sent += b.write(data[sent:])
		if !ok {
			break
		}
	}
	b.blocked--
	b.mu.Unlock()
	return sent
}

// Receive copies buffered bytes into dst. With a non-zero timeout it first
// waits until the trigger level is reached; when the timeout expires it
// returns whatever is buffered. In interrupt context the timeout is ignored.
func (b *StreamBuffer) Receive(dst []byte, timeout uint32) int {
	if len(dst) == 0 {
		return 0
	}
	if IsIRQ() {
		timeout = 0
	}

	b.mu.Lock()
	check(!b.freed, "stream buffer used after free")
	if timeout == 0 || b.available() >= b.trigger {
		n := b.read(dst)
		b.mu.Unlock()
		return n
	}

	d := b.s.newDeadline(timeout)
	defer d.stop()
	b.blocked++
	for b.available() < b.trigger {
		ch := b.changed.C()
		b.mu.Unlock()
		ok := d.wait(ch)
		b.mu.Lock()
		check(!b.freed, "stream buffer freed while waiting")
		if !ok {
			break
		}
	}
	b.blocked--
	n := b.read(dst)
	b.mu.Unlock()
	return n
}

// BytesAvailable returns the number of buffered bytes.
func (b *StreamBuffer) BytesAvailable() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available()
}

// SpacesAvailable returns the number of bytes that still fit.
func (b *StreamBuffer) SpacesAvailable() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.space()
}

// IsFull reports whether no more bytes fit.
func (b *StreamBuffer) IsFull() bool { return b.SpacesAvailable() == 0 }

// IsEmpty reports whether no bytes are buffered.
func (b *StreamBuffer) IsEmpty() bool { return b.BytesAvailable() == 0 }

// Reset discards buffered bytes. It fails while a sender or receiver is blocked.
func (b *StreamBuffer) Reset() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	check(!b.freed, "stream buffer used after free")
	if b.blocked > 0 {
		return StatusError
	}
	b.r, b.w = 0, 0
	b.changed.Broadcast()
	return StatusOK
}

// Free releases the kernel object. The handle must not be used afterwards.
func (b *StreamBuffer) Free() {
	b.mu.Lock()
	check(!b.freed, "stream buffer double free")
	b.freed = true
	b.changed.Broadcast()
	b.mu.Unlock()
	b.s.free(streamBufferObjectBytes + b.size)
}
