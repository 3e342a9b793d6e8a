package kernel

import (
	"sync"
	"testing"
	"time"
)

func TestMutexAcquireRelease(t *testing.T) {
	resetSystem(t)
	m := MutexAlloc(MutexNormal)
	defer m.Free()

	if st := m.Acquire(WaitForever); st != StatusOK {
		t.Fatalf("Acquire() = %v, want ok", st)
	}
	if m.Owner() != CurrentThreadID() {
		t.Fatalf("Owner() = %d, want caller", m.Owner())
	}
	if st := m.Release(); st != StatusOK {
		t.Fatalf("Release() = %v, want ok", st)
	}
	if m.Owner() != 0 {
		t.Fatalf("Owner() = %d after release, want 0", m.Owner())
	}
}

func TestMutexTimeouts(t *testing.T) {
	resetSystem(t)
	m := MutexAlloc(MutexNormal)
	defer m.Free()

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		m.Acquire(WaitForever)
		close(held)
		<-release
		m.Release()
	}()
	<-held

	if st := m.Acquire(0); st != StatusErrorResource {
		t.Fatalf("Acquire(0) = %v, want resource", st)
	}
	start := time.Now()
	if st := m.Acquire(20); st != StatusErrorTimeout {
		t.Fatalf("Acquire(20) = %v, want timeout", st)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatal("Acquire(20) returned early")
	}
	if st := m.Release(); st != StatusErrorResource {
		t.Fatalf("Release() by non-owner = %v, want resource", st)
	}

	close(release)
	if st := m.Acquire(WaitForever); st != StatusOK {
		t.Fatalf("Acquire() after release = %v", st)
	}
	m.Release()
}

func TestMutexRecursive(t *testing.T) {
	resetSystem(t)
	m := MutexAlloc(MutexRecursive)
	defer m.Free()

	for i := 0; i < 3; i++ {
		if st := m.Acquire(0); st != StatusOK {
			t.Fatalf("Acquire() #%d = %v", i, st)
		}
	}
	for i := 0; i < 3; i++ {
		if st := m.Release(); st != StatusOK {
			t.Fatalf("Release() #%d = %v", i, st)
		}
	}
	if st := m.Release(); st != StatusErrorResource {
		t.Fatalf("extra Release() = %v, want resource", st)
	}
}

func TestMutexNormalDoesNotRecurse(t *testing.T) {
	resetSystem(t)
	m := MutexAlloc(MutexNormal)
	defer m.Free()

	m.Acquire(WaitForever)
	if st := m.Acquire(0); st != StatusErrorResource {
		t.Fatalf("re-Acquire(0) = %v, want resource", st)
	}
	m.Release()
}

func TestMutexISR(t *testing.T) {
	resetSystem(t)
	m := MutexAlloc(MutexNormal)
	defer m.Free()
	RunInISR(func() {
		if st := m.Acquire(0); st != StatusErrorISR {
			t.Fatalf("Acquire() in ISR = %v, want isr", st)
		}
	})
}

func TestMutexContention(t *testing.T) {
	resetSystem(t)
	m := MutexAlloc(MutexNormal)
	defer m.Free()

	const workers, rounds = 8, 200
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				if st := m.Acquire(WaitForever); st != StatusOK {
					t.Errorf("Acquire() = %v", st)
					return
				}
				counter++
				m.Release()
			}
		}()
	}
	wg.Wait()
	if counter != workers*rounds {
		t.Fatalf("counter = %d, want %d", counter, workers*rounds)
	}
}

func TestMutexDoubleFreeCrashes(t *testing.T) {
	resetSystem(t)
	m := MutexAlloc(MutexNormal)
	m.Free()
	expectCrash(t, m.Free)
}
