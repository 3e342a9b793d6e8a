package furi

import (
	"sync/atomic"

	"furigo/kernel"
)

// StreamBuffer is a byte ring buffer with one writer and one reader.
//
// A reader blocked in Receive wakes once the trigger level is buffered.
// Concurrent writers (or concurrent readers) are not allowed; IntoStream
// enforces this by splitting the buffer into a Sender and a Receiver.
type StreamBuffer struct {
	raw   *kernel.StreamBuffer
	state atomic.Int32

	// shared is set on the inspection view handed out by Sender and
	// Receiver; the view cannot be closed or split.
	shared *stream
}

const (
	bufOwned int32 = iota
	bufSplit
	bufClosed
)

// NewStreamBuffer allocates a buffer of size bytes. A trigger of 0 is
// treated as 1; a zero size or a trigger above size crashes the kernel.
func NewStreamBuffer(size, trigger int) *StreamBuffer {
	return &StreamBuffer{raw: kernel.StreamBufferAlloc(size, trigger)}
}

func (b *StreamBuffer) live() *kernel.StreamBuffer {
	if b.shared != nil {
		if b.shared.open.Load() == 0 {
			panic("furi: stream buffer used after close")
		}
		return b.raw
	}
	switch b.state.Load() {
	case bufSplit:
		panic("furi: stream buffer used after IntoStream")
	case bufClosed:
		panic("furi: stream buffer used after close")
	}
	return b.raw
}

// Size returns the capacity in bytes.
func (b *StreamBuffer) Size() int { return b.live().Size() }

// SetTriggerLevel changes the trigger level. It fails when level exceeds Size.
func (b *StreamBuffer) SetTriggerLevel(level int) bool {
	return b.live().SetTriggerLevel(level)
}

// Send writes data, waiting up to timeout for room, and returns the bytes written.
func (b *StreamBuffer) Send(data []byte, timeout Duration) int {
	return b.live().Send(data, timeout.Ticks())
}

// Receive reads into dst and returns the bytes read. With a timeout it first
// waits for the trigger level; on expiry it returns whatever is buffered.
func (b *StreamBuffer) Receive(dst []byte, timeout Duration) int {
	return b.live().Receive(dst, timeout.Ticks())
}

// BytesAvailable returns the number of buffered bytes.
func (b *StreamBuffer) BytesAvailable() int { return b.live().BytesAvailable() }

// SpacesAvailable returns the number of bytes that still fit.
func (b *StreamBuffer) SpacesAvailable() int { return b.live().SpacesAvailable() }

// IsFull reports whether no more bytes fit.
func (b *StreamBuffer) IsFull() bool { return b.live().IsFull() }

// IsEmpty reports whether nothing is buffered.
func (b *StreamBuffer) IsEmpty() bool { return b.live().IsEmpty() }

// Reset discards buffered bytes. It fails while a thread is blocked on the buffer.
func (b *StreamBuffer) Reset() error {
	return statusErr("stream buffer", b.live().Reset())
}

// Close frees the kernel buffer. A split buffer is freed by closing its
// Sender and Receiver instead; closing it directly panics.
func (b *StreamBuffer) Close() {
	if b.shared != nil {
		panic("furi: shared stream buffer closed")
	}
	if b.state.CompareAndSwap(bufOwned, bufClosed) {
		b.raw.Free()
		return
	}
	if b.state.Load() == bufSplit {
		panic("furi: stream buffer closed after IntoStream")
	}
}

// IntoStream splits the buffer into its two ends and consumes it. The
// buffer is freed when both ends are closed.
func (b *StreamBuffer) IntoStream() (*Sender, *Receiver) {
	if b.shared != nil {
		panic("furi: shared stream buffer split")
	}
	b.live()
	if !b.state.CompareAndSwap(bufOwned, bufSplit) {
		panic("furi: stream buffer split twice")
	}
	st := &stream{buf: b}
	st.view = &StreamBuffer{raw: b.raw, shared: st}
	st.open.Store(2)
	return &Sender{st: st}, &Receiver{st: st}
}

type stream struct {
	buf  *StreamBuffer
	view *StreamBuffer
	open atomic.Int32

	senderClosed   atomic.Bool
	receiverClosed atomic.Bool
}

func (st *stream) release() {
	if st.open.Add(-1) == 0 {
		st.buf.state.Store(bufClosed)
		st.buf.raw.Free()
	}
}

// take hands the buffer to the caller when it holds the last reference.
func (st *stream) take(self, peer *atomic.Bool) (*StreamBuffer, bool) {
	if !peer.Load() {
		return nil, false
	}
	if !self.CompareAndSwap(false, true) {
		return nil, false
	}
	if st.open.Add(-1) != 0 {
		panic("furi: stream buffer still shared")
	}
	st.buf.state.Store(bufOwned)
	return st.buf, true
}

// Sender is the writing end of a stream buffer.
type Sender struct {
	st *stream
}

func (s *Sender) buf() *StreamBuffer {
	if s.st.senderClosed.Load() {
		panic("furi: stream sender used after close")
	}
	return s.st.view
}

// Send writes what fits without waiting and returns the bytes written.
func (s *Sender) Send(data []byte) int { return s.buf().Send(data, Zero) }

// SendBlocking writes all of data, waiting for room as needed.
func (s *Sender) SendBlocking(data []byte) int { return s.buf().Send(data, WaitForever) }

// SendTimeout writes data, waiting up to timeout for room, and returns the
// bytes written.
func (s *Sender) SendTimeout(data []byte, timeout Duration) int {
	return s.buf().Send(data, timeout)
}

// IsReceiverAlive reports whether the receiving end is still open.
func (s *Sender) IsReceiverAlive() bool { return !s.st.receiverClosed.Load() }

// StreamBuffer returns the shared buffer for inspection.
func (s *Sender) StreamBuffer() *StreamBuffer { return s.buf() }

// IntoStreamBuffer closes the sender and returns the whole buffer. It
// succeeds only once the receiver is closed.
func (s *Sender) IntoStreamBuffer() (*StreamBuffer, bool) {
	return s.st.take(&s.st.senderClosed, &s.st.receiverClosed)
}

// Close closes the sending end.
func (s *Sender) Close() {
	if s.st.senderClosed.CompareAndSwap(false, true) {
		s.st.release()
	}
}

// Receiver is the reading end of a stream buffer.
type Receiver struct {
	st *stream
}

func (r *Receiver) buf() *StreamBuffer {
	if r.st.receiverClosed.Load() {
		panic("furi: stream receiver used after close")
	}
	return r.st.view
}

// Recv reads what is buffered without waiting.
func (r *Receiver) Recv(dst []byte) int { return r.buf().Receive(dst, Zero) }

// RecvBlocking waits for the trigger level, then reads.
func (r *Receiver) RecvBlocking(dst []byte) int { return r.buf().Receive(dst, WaitForever) }

// RecvTimeout waits up to timeout for the trigger level, then reads what
// is buffered.
func (r *Receiver) RecvTimeout(dst []byte, timeout Duration) int {
	return r.buf().Receive(dst, timeout)
}

// IsSenderAlive reports whether the sending end is still open. Once false
// it stays false.
func (r *Receiver) IsSenderAlive() bool { return !r.st.senderClosed.Load() }

// StreamBuffer returns the shared buffer for inspection.
func (r *Receiver) StreamBuffer() *StreamBuffer { return r.buf() }

// IntoStreamBuffer closes the receiver and returns the whole buffer. It
// succeeds only once the sender is closed.
func (r *Receiver) IntoStreamBuffer() (*StreamBuffer, bool) {
	return r.st.take(&r.st.receiverClosed, &r.st.senderClosed)
}

// Close closes the receiving end.
func (r *Receiver) Close() {
	if r.st.receiverClosed.CompareAndSwap(false, true) {
		r.st.release()
	}
}
