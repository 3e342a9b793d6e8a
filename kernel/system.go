package kernel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// WaitForever is the timeout sentinel for blocking calls that never expire.
const WaitForever uint32 = 0xFFFFFFFF

// Lock states returned by the scheduler lock calls.
const (
	LockStateUnlocked int32 = 0
	LockStateLocked   int32 = 1
)

type irqState struct {
	isr    int
	masked int
}

// System is the host kernel state: timebase, scheduler lock, interrupt
// context, thread table, record registry and heap accounting.
type System struct {
	cfg     Config
	start   time.Time
	tickDur time.Duration

	crashOnce sync.Once
	crashed   atomic.Bool

	mu        sync.Mutex
	locked    bool
	lockOwner ThreadID
	resumed   notifier
	irq       map[ThreadID]irqState
	threads   map[ThreadID]*Thread
	live      int

	recMu   sync.Mutex
	records map[string]*record

	heapUsed atomic.Int64
}

var sys atomic.Pointer[System]

func newSystem(cfg Config) *System {
	return &System{
		cfg:     cfg,
		start:   time.Now(),
		tickDur: time.Second / time.Duration(cfg.TickHz),
		irq:     make(map[ThreadID]irqState),
		threads: make(map[ThreadID]*Thread),
		records: make(map[string]*record),
	}
}

// Init replaces the process-wide kernel with a fresh one.
//
// Objects allocated from the previous kernel keep working against it, but
// records, the thread table and the scheduler lock start empty.
func Init(cfg Config) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := newSystem(cfg)
	sys.Store(s)
	Logger().Debug("kernel init",
		zap.Uint32("tick_hz", cfg.TickHz),
		zap.Int("min_stack_size", cfg.MinStackSize),
		zap.Int64("heap_bytes", cfg.HeapBytes),
	)
	return s, nil
}

// Default returns the process-wide kernel, creating it with DefaultConfig on first use.
func Default() *System {
	return current()
}

func current() *System {
	if s := sys.Load(); s != nil {
		return s
	}
	sys.CompareAndSwap(nil, newSystem(DefaultConfig()))
	return sys.Load()
}

// Config returns the configuration the system was created with.
func (s *System) Config() Config { return s.cfg }

// HeapUsed returns the bytes currently charged to kernel objects.
func (s *System) HeapUsed() int64 { return s.heapUsed.Load() }

// alloc charges n bytes against the heap budget, crashing when it is exhausted.
func (s *System) alloc(n int) {
	used := s.heapUsed.Add(int64(n))
	if s.cfg.HeapBytes > 0 && used > s.cfg.HeapBytes {
		s.heapUsed.Add(-int64(n))
		Crash("out of memory")
	}
}

func (s *System) free(n int) {
	s.heapUsed.Add(-int64(n))
}

func (s *System) tick() uint32 {
	return uint32(time.Since(s.start) / s.tickDur)
}

func (s *System) ticksToDuration(ticks uint32) time.Duration {
	return time.Duration(ticks) * time.Second / time.Duration(s.cfg.TickHz)
}

// Tick returns the current kernel tick. It wraps at 2^32.
func Tick() uint32 { return current().tick() }

// TickFrequency returns the kernel tick frequency in hertz.
func TickFrequency() uint32 { return current().cfg.TickHz }

// RunInISR runs fn on the calling goroutine as if it were an interrupt handler.
func RunInISR(fn func()) {
	s := current()
	id := CurrentThreadID()
	s.setIRQ(id, func(st *irqState) { st.isr++ })
	defer s.setIRQ(id, func(st *irqState) { st.isr-- })
	fn()
}

// RunMasked runs fn on the calling goroutine with interrupts masked.
func RunMasked(fn func()) {
	s := current()
	id := CurrentThreadID()
	s.setIRQ(id, func(st *irqState) { st.masked++ })
	defer s.setIRQ(id, func(st *irqState) { st.masked-- })
	fn()
}

func (s *System) setIRQ(id ThreadID, fn func(*irqState)) {
	s.mu.Lock()
	st := s.irq[id]
	fn(&st)
	if st.isr == 0 && st.masked == 0 {
		delete(s.irq, id)
	} else {
		s.irq[id] = st
	}
	s.mu.Unlock()
}

func (s *System) irqOf(id ThreadID) irqState {
	s.mu.Lock()
	st := s.irq[id]
	s.mu.Unlock()
	return st
}

// IsIRQ reports whether the caller runs in interrupt context.
func IsIRQ() bool {
	return current().irqOf(CurrentThreadID()).isr > 0
}

// IsIRQOrMasked reports whether the caller runs in interrupt context or with
// interrupts masked.
func IsIRQOrMasked() bool {
	st := current().irqOf(CurrentThreadID())
	return st.isr > 0 || st.masked > 0
}

// IsRunning reports whether the scheduler is running (not paused by a lock).
func IsRunning() bool {
	s := current()
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.locked
}

// IsLocked reports whether scheduling is paused.
func IsLocked() bool {
	return !IsRunning()
}

// KernelLock pauses scheduling and returns the previous lock state.
//
// The lock is binary: locking an already locked kernel reports
// LockStateLocked and does not nest.
func KernelLock() Status {
	if IsIRQOrMasked() {
		return StatusErrorISR
	}
	s := current()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return Status(LockStateLocked)
	}
	s.locked = true
	s.lockOwner = CurrentThreadID()
	return Status(LockStateUnlocked)
}

// KernelUnlock resumes scheduling and returns the previous lock state.
func KernelUnlock() Status {
	if IsIRQOrMasked() {
		return StatusErrorISR
	}
	s := current()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.locked {
		return Status(LockStateUnlocked)
	}
	s.locked = false
	s.lockOwner = 0
	s.resumed.Broadcast()
	return Status(LockStateLocked)
}

// KernelRestoreLock applies a lock state read earlier and returns it.
func KernelRestoreLock(state int32) Status {
	if IsIRQOrMasked() {
		return StatusErrorISR
	}
	switch state {
	case LockStateLocked:
		KernelLock()
	case LockStateUnlocked:
		KernelUnlock()
	default:
		return StatusError
	}
	return Status(state)
}

// schedulePoint parks the caller while another thread holds the scheduler lock.
func (s *System) schedulePoint() {
	id := CurrentThreadID()
	s.mu.Lock()
	for s.locked && s.lockOwner != id {
		ch := s.resumed.C()
		s.mu.Unlock()
		<-ch
		s.mu.Lock()
	}
	s.mu.Unlock()
}

// Yield gives up the rest of the time slice.
func Yield() {
	s := current()
	s.schedulePoint()
	runtime.Gosched()
}

// Delay blocks the calling thread for ticks kernel ticks.
func Delay(ticks uint32) {
	check(!IsIRQ(), "delay in ISR")
	s := current()
	s.schedulePoint()
	if ticks == 0 {
		runtime.Gosched()
		return
	}
	time.Sleep(s.ticksToDuration(ticks))
	s.schedulePoint()
}

// DelayMs blocks the calling thread for ms milliseconds.
func DelayMs(ms uint32) {
	check(!IsIRQ(), "delay in ISR")
	s := current()
	s.schedulePoint()
	time.Sleep(time.Duration(ms) * time.Millisecond)
	s.schedulePoint()
}

// DelayUs blocks the calling thread for us microseconds.
func DelayUs(us uint32) {
	s := current()
	s.schedulePoint()
	time.Sleep(time.Duration(us) * time.Microsecond)
}
