// Package thread spawns and joins kernel threads.
package thread

import (
	"errors"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"furigo/furi"
	"furigo/kernel"
)

// MinStackSize is the default and smallest stack size in bytes.
const MinStackSize = 1024

// ErrNameContainsNul is returned for thread names with NUL bytes.
var ErrNameContainsNul = errors.New("thread: name contains NUL byte")

// Builder configures a thread before it is spawned.
type Builder struct {
	name      string
	stackSize int
	heapTrace bool
	appID     string
}

// NewBuilder returns a builder for an unnamed thread with the default stack.
func NewBuilder() Builder {
	return Builder{stackSize: MinStackSize}
}

// Name sets the thread name.
func (b Builder) Name(name string) (Builder, error) {
	if strings.IndexByte(name, 0) >= 0 {
		return b, ErrNameContainsNul
	}
	b.name = name
	return b, nil
}

// StackSize sets the stack size in bytes. Sizes below MinStackSize are raised.
func (b Builder) StackSize(size int) Builder {
	b.stackSize = max(size, MinStackSize)
	return b
}

// HeapTrace enables heap tracing for the thread.
func (b Builder) HeapTrace() Builder {
	b.heapTrace = true
	return b
}

// AppID tags the thread with an application id. By default the thread
// inherits the spawning thread's id.
func (b Builder) AppID(id string) Builder {
	b.appID = id
	return b
}

// Spawn starts f on a new kernel thread. Its return value is the exit code.
func (b Builder) Spawn(f func() int32) *JoinHandle {
	raw := kernel.ThreadAlloc()
	if b.name != "" {
		raw.SetName(b.name)
	}
	if b.appID != "" {
		raw.SetAppID(b.appID)
	}
	raw.SetStackSize(b.stackSize)
	if b.heapTrace {
		raw.EnableHeapTrace()
	}
	raw.SetCallback(f)
	raw.Start()

	furi.Logger().Debug("thread spawned",
		zap.String("name", b.name),
		zap.String("app_id", raw.AppID()),
		zap.Int("stack_size", raw.StackSize()),
	)
	h := &JoinHandle{thread: &Thread{raw: raw}}
	runtime.SetFinalizer(h, (*JoinHandle).release)
	return h
}

// Spawn starts f on a new unnamed kernel thread.
func Spawn(f func() int32) *JoinHandle {
	return NewBuilder().Spawn(f)
}

// Thread is a handle to a kernel thread.
type Thread struct {
	raw *kernel.Thread
}

// ID returns the kernel thread id. It reports false once the thread stopped.
func (t *Thread) ID() (kernel.ThreadID, bool) {
	id := t.raw.ID()
	return id, id != 0
}

// Name returns the thread name, or "" for unnamed threads.
func (t *Thread) Name() string { return t.raw.Name() }

// AppID returns the application id the thread runs under.
func (t *Thread) AppID() string { return t.raw.AppID() }

// Current returns the calling kernel thread, or nil when the caller is not
// a kernel thread.
func Current() *Thread {
	raw := kernel.CurrentThread()
	if raw == nil {
		return nil
	}
	return &Thread{raw: raw}
}

// Sleep blocks the calling thread for at least d.
func Sleep(d time.Duration) {
	if d <= 0 {
		kernel.Yield()
		return
	}
	for d >= time.Millisecond {
		chunk := min(d, time.Duration(kernel.WaitForever-1)*time.Millisecond)
		kernel.DelayMs(uint32(chunk / time.Millisecond))
		d -= chunk.Truncate(time.Millisecond)
	}
	if d > 0 {
		kernel.DelayUs(uint32(d / time.Microsecond))
	}
}

// Yield gives up the rest of the time slice.
func Yield() { kernel.Yield() }

// JoinHandle owns a spawned thread. Dropping it without Join detaches the
// thread: it keeps running and its kernel object is freed once both the
// thread stopped and the handle was collected.
type JoinHandle struct {
	thread *Thread
	taken  atomic.Bool
}

// Thread returns the spawned thread.
func (h *JoinHandle) Thread() *Thread { return h.thread }

// IsFinished reports whether the thread body has returned.
func (h *JoinHandle) IsFinished() bool {
	select {
	case <-h.thread.raw.Done():
		return true
	default:
		return false
	}
}

// Join waits for the thread and returns its exit code. A second Join, or a
// Join after Detach, panics.
func (h *JoinHandle) Join() int32 {
	if !h.taken.CompareAndSwap(false, true) {
		panic("thread: join on a consumed handle")
	}
	runtime.SetFinalizer(h, nil)
	raw := h.thread.raw
	raw.Join()
	code := raw.ReturnCode()
	raw.Free()
	return code
}

// Detach gives up the handle without waiting. The thread keeps running and
// its kernel object is freed when it stops.
func (h *JoinHandle) Detach() {
	if !h.taken.CompareAndSwap(false, true) {
		panic("thread: detach on a consumed handle")
	}
	runtime.SetFinalizer(h, nil)
	freeWhenDone(h.thread.raw)
}

func (h *JoinHandle) release() {
	if h.taken.CompareAndSwap(false, true) {
		freeWhenDone(h.thread.raw)
	}
}

func freeWhenDone(raw *kernel.Thread) {
	go func() {
		<-raw.Done()
		raw.Free()
	}()
}
