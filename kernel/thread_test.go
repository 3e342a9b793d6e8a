package kernel

import (
	"sync"
	"testing"
	"time"
)

func TestThreadStartJoin(t *testing.T) {
	resetSystem(t)
	th := ThreadAlloc()
	th.SetName("Worker")
	th.SetAppID("demo")
	th.SetStackSize(2048)

	var mu sync.Mutex
	var states []ThreadState
	th.SetStateCallback(func(st ThreadState) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	})

	var self *Thread
	th.SetCallback(func() int32 {
		self = CurrentThread()
		return 42
	})
	th.Start()
	if !th.Join() {
		t.Fatal("Join() = false")
	}

	if th.ReturnCode() != 42 {
		t.Fatalf("ReturnCode() = %d, want 42", th.ReturnCode())
	}
	if self != th {
		t.Fatal("CurrentThread() inside body did not return the thread")
	}
	if th.ID() != 0 {
		t.Fatalf("ID() = %d after stop, want 0", th.ID())
	}
	mu.Lock()
	defer mu.Unlock()
	want := []ThreadState{ThreadStateStarting, ThreadStateRunning, ThreadStateStopped}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}
	th.Free()
}

func TestThreadStackSizeMinimum(t *testing.T) {
	resetSystem(t)
	th := ThreadAlloc()
	defer th.Free()
	th.SetStackSize(16)
	if th.StackSize() != 1024 {
		t.Fatalf("StackSize() = %d, want 1024", th.StackSize())
	}
}

func TestThreadInheritsAppID(t *testing.T) {
	resetSystem(t)
	parent := ThreadAlloc()
	parent.SetAppID("parent_app")

	childApp := make(chan string, 1)
	parent.SetCallback(func() int32 {
		child := ThreadAlloc()
		childApp <- child.AppID()
		child.Free()
		return 0
	})
	parent.Start()
	parent.Join()
	parent.Free()

	if got := <-childApp; got != "parent_app" {
		t.Fatalf("child AppID() = %q, want parent_app", got)
	}
}

func TestThreadsEnumeration(t *testing.T) {
	resetSystem(t)
	release := make(chan struct{})
	th := ThreadAlloc()
	th.SetName("ListedSrv")
	th.SetCallback(func() int32 {
		<-release
		return 0
	})
	th.Start()

	infos := Threads()
	if len(infos) != 1 || infos[0].Name != "ListedSrv" || infos[0].ID != th.ID() {
		t.Fatalf("Threads() = %v", infos)
	}
	if ThreadName(th.ID()) != "ListedSrv" {
		t.Fatalf("ThreadName() = %q", ThreadName(th.ID()))
	}

	close(release)
	th.Join()
	if len(Threads()) != 0 {
		t.Fatalf("Threads() = %v after join, want empty", Threads())
	}
	th.Free()
}

func TestThreadPanicCrashes(t *testing.T) {
	resetSystem(t)
	crashed := make(chan CrashInfo, 1)
	SetCrashHandler(func(info CrashInfo) { crashed <- info })
	defer SetCrashHandler(nil)

	th := ThreadAlloc()
	th.SetName("Faulty")
	th.SetCallback(func() int32 { panic("boom") })
	th.Start()
	th.Join()

	if th.ReturnCode() != ThreadCrashCode {
		t.Fatalf("ReturnCode() = %d, want %d", th.ReturnCode(), ThreadCrashCode)
	}
	select {
	case info := <-crashed:
		if info.ThreadName != "Faulty" {
			t.Fatalf("CrashInfo.ThreadName = %q", info.ThreadName)
		}
	case <-time.After(time.Second):
		t.Fatal("crash handler not called")
	}
	th.Free()
}

func TestThreadMaxThreads(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxThreads = 1
	if _, err := Init(cfg); err != nil {
		t.Fatal(err)
	}
	release := make(chan struct{})
	a := ThreadAlloc()
	a.SetCallback(func() int32 { <-release; return 0 })
	a.Start()

	b := ThreadAlloc()
	b.SetCallback(func() int32 { return 0 })
	expectCrash(t, b.Start)

	close(release)
	a.Join()
}

func TestThreadMisuseCrashes(t *testing.T) {
	resetSystem(t)
	th := ThreadAlloc()
	expectCrash(t, th.Start)

	th.SetCallback(func() int32 { return 0 })
	th.Start()
	expectCrash(t, func() { th.SetName("late") })
	expectCrash(t, th.Start)
	th.Join()
	th.Free()
	expectCrash(t, th.Free)
}
