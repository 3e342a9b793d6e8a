package kernel

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ThreadState is the lifecycle state of a kernel thread.
type ThreadState uint8

const (
	ThreadStateStopped ThreadState = iota
	ThreadStateStarting
	ThreadStateRunning
)

func (s ThreadState) String() string {
	switch s {
	case ThreadStateStopped:
		return "stopped"
	case ThreadStateStarting:
		return "starting"
	case ThreadStateRunning:
		return "running"
	default:
		return "unknown"
	}
}

const threadObjectBytes = 128

// Thread is a kernel thread handle.
type Thread struct {
	s *System

	mu            sync.Mutex
	name          string
	appID         string
	stackSize     int
	heapTrace     bool
	callback      func() int32
	stateCallback func(ThreadState)
	state         ThreadState
	started       bool
	id            ThreadID
	ret           int32
	done          chan struct{}
	freed         bool
}

// ThreadAlloc allocates a stopped thread. It inherits the app id of the
// calling kernel thread. It never returns nil.
//
// Config.MaxThreads is enforced when the thread starts.
func ThreadAlloc() *Thread {
	s := current()
	t := &Thread{
		s:         s,
		stackSize: s.cfg.MinStackSize,
		done:      make(chan struct{}),
	}
	if parent := CurrentThread(); parent != nil {
		t.appID = parent.AppID()
	}
	s.alloc(threadObjectBytes + t.stackSize)
	return t
}

func (t *Thread) checkStopped(op string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	check(!t.freed, "thread used after free")
	check(!t.started, "thread "+op+" after start")
}

// SetName names the thread.
func (t *Thread) SetName(name string) {
	t.checkStopped("set name")
	t.mu.Lock()
	t.name = name
	t.mu.Unlock()
}

// SetAppID tags the thread with an application id.
func (t *Thread) SetAppID(appID string) {
	t.checkStopped("set app id")
	t.mu.Lock()
	t.appID = appID
	t.mu.Unlock()
}

// SetStackSize sets the stack size in bytes.
//
// Sizes below the configured minimum are raised to it. Host threads run on
// growable goroutine stacks; the size is accounted against the heap budget.
func (t *Thread) SetStackSize(size int) {
	t.checkStopped("set stack size")
	size = max(size, t.s.cfg.MinStackSize)
	t.mu.Lock()
	prev := t.stackSize
	t.stackSize = size
	t.mu.Unlock()
	t.s.free(prev)
	t.s.alloc(size)
}

// EnableHeapTrace turns on heap tracing for the thread.
func (t *Thread) EnableHeapTrace() {
	t.checkStopped("enable heap trace")
	t.mu.Lock()
	t.heapTrace = true
	t.mu.Unlock()
}

// SetCallback sets the thread body. Its return value is the exit code.
func (t *Thread) SetCallback(fn func() int32) {
	t.checkStopped("set callback")
	t.mu.Lock()
	t.callback = fn
	t.mu.Unlock()
}

// SetStateCallback registers fn to observe state transitions.
func (t *Thread) SetStateCallback(fn func(ThreadState)) {
	t.checkStopped("set state callback")
	t.mu.Lock()
	t.stateCallback = fn
	t.mu.Unlock()
}

// Start begins executing the thread body.
func (t *Thread) Start() {
	t.markStarted()

	s := t.s
	s.mu.Lock()
	if s.cfg.MaxThreads > 0 && s.live >= s.cfg.MaxThreads {
		s.mu.Unlock()
		Crash("out of memory: thread limit reached")
	}
	s.live++
	s.mu.Unlock()

	t.setState(ThreadStateStarting)
	ready := make(chan struct{})
	go t.run(ready)
	<-ready
}

func (t *Thread) markStarted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	check(!t.freed, "thread used after free")
	check(t.callback != nil, "thread started without callback")
	check(!t.started, "thread started twice")
	t.started = true
}

func (t *Thread) setState(st ThreadState) {
	t.mu.Lock()
	t.state = st
	fn := t.stateCallback
	t.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

func (t *Thread) run(ready chan<- struct{}) {
	s := t.s
	id := CurrentThreadID()

	t.mu.Lock()
	t.id = id
	body := t.callback
	t.mu.Unlock()

	s.mu.Lock()
	s.threads[id] = t
	s.mu.Unlock()
	close(ready)

	s.schedulePoint()
	t.setState(ThreadStateRunning)

	ret := t.call(body)

	s.mu.Lock()
	delete(s.threads, id)
	s.live--
	s.mu.Unlock()

	t.mu.Lock()
	t.ret = ret
	t.id = 0
	t.mu.Unlock()
	t.setState(ThreadStateStopped)
	close(t.done)
}

// ThreadCrashCode is the return code of a thread halted by a crash.
const ThreadCrashCode int32 = -1

// call runs the body. A panic escaping it crashes the kernel; the thread
// is then halted with ThreadCrashCode instead of taking the process down.
func (t *Thread) call(body func() int32) (ret int32) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(*CrashError); !ok {
			t.s.report(fmt.Sprintf("thread %q panicked: %v", t.Name(), r))
		}
		Logger().Warn("thread halted",
			zap.String("thread", t.Name()),
			zap.Any("reason", r),
		)
		ret = ThreadCrashCode
	}()
	return body()
}

// Join blocks until the thread body returns. A thread cannot join itself.
func (t *Thread) Join() bool {
	t.mu.Lock()
	freed, started := t.freed, t.started
	self := t.id != 0 && t.id == CurrentThreadID()
	t.mu.Unlock()
	check(!freed, "thread used after free")
	check(started, "thread joined before start")
	check(!self, "thread joined itself")

	t.s.schedulePoint()
	<-t.done
	return true
}

// ReturnCode returns the exit code of a stopped thread.
func (t *Thread) ReturnCode() int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ret
}

// ID returns the running thread's id, or 0 when it is not running.
func (t *Thread) ID() ThreadID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

// State returns the current lifecycle state.
func (t *Thread) State() ThreadState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Name returns the thread name ("" when unnamed).
func (t *Thread) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

// AppID returns the application id.
func (t *Thread) AppID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appID
}

// StackSize returns the stack size in bytes.
func (t *Thread) StackSize() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stackSize
}

// HeapTraceEnabled reports whether heap tracing is on.
func (t *Thread) HeapTraceEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.heapTrace
}

// Done returns a channel closed when the thread stops.
func (t *Thread) Done() <-chan struct{} { return t.done }

// Free releases the thread object. The thread must not be running.
func (t *Thread) Free() {
	t.s.free(threadObjectBytes + t.release())
}

func (t *Thread) release() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	check(!t.freed, "thread double free")
	running := t.started && t.state != ThreadStateStopped
	check(!running, "thread freed while running")
	t.freed = true
	return t.stackSize
}

// CurrentThread returns the kernel thread running the caller, or nil for
// goroutines the kernel did not start.
func CurrentThread() *Thread {
	s := current()
	id := CurrentThreadID()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threads[id]
}

// ThreadName returns the name of the running thread id ("" when unknown).
func ThreadName(id ThreadID) string {
	s := current()
	s.mu.Lock()
	t := s.threads[id]
	s.mu.Unlock()
	if t == nil {
		return ""
	}
	// The name is frozen once the thread is registered.
	return t.name
}

// ThreadInfo is a snapshot of one running thread.
type ThreadInfo struct {
	ID        ThreadID
	Name      string
	AppID     string
	StackSize int
	State     ThreadState
}

func (i ThreadInfo) String() string {
	return fmt.Sprintf("%d %q app=%q stack=%d %s", i.ID, i.Name, i.AppID, i.StackSize, i.State)
}

// Threads enumerates the running kernel threads ordered by id.
func Threads() []ThreadInfo {
	s := current()
	s.mu.Lock()
	list := make([]*Thread, 0, len(s.threads))
	for _, t := range s.threads {
		list = append(list, t)
	}
	s.mu.Unlock()

	infos := make([]ThreadInfo, 0, len(list))
	for _, t := range list {
		t.mu.Lock()
		if t.id != 0 {
			infos = append(infos, ThreadInfo{
				ID:        t.id,
				Name:      t.name,
				AppID:     t.appID,
				StackSize: t.stackSize,
				State:     t.state,
			})
		}
		t.mu.Unlock()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
