package furi

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMutexGuardValue(t *testing.T) {
	resetKernel(t)
	m := NewMutex([]string{"a"})
	defer m.Close()

	g, err := m.Lock()
	if err != nil {
		t.Fatalf("Lock() err = %v", err)
	}
	*g.Value() = append(*g.Value(), "b")
	g.Unlock()

	err = m.WithLock(func(v *[]string) {
		if len(*v) != 2 || (*v)[1] != "b" {
			t.Fatalf("value = %v", *v)
		}
	})
	if err != nil {
		t.Fatalf("WithLock() err = %v", err)
	}
}

func TestMutexTryLockHeld(t *testing.T) {
	resetKernel(t)
	m := NewMutex(0)
	defer m.Close()

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		g, _ := m.Lock()
		close(held)
		<-release
		g.Unlock()
	}()
	<-held

	if _, err := m.TryLock(); !errors.Is(err, ErrResource) {
		t.Fatalf("TryLock() err = %v, want ErrResource", err)
	}
	if _, err := m.LockTimeout(FromMillis(10)); !errors.Is(err, ErrTimeout) {
		t.Fatalf("LockTimeout() err = %v, want ErrTimeout", err)
	}
	close(release)

	g, err := m.LockTimeout(FromSecs(1))
	if err != nil {
		t.Fatalf("LockTimeout() after release err = %v", err)
	}
	g.Unlock()
}

func TestMutexCounter(t *testing.T) {
	resetKernel(t)
	m := NewMutex(0)
	defer m.Close()

	const workers, rounds = 10, 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				if err := m.WithLock(func(v *int) { *v++ }); err != nil {
					t.Errorf("WithLock() err = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	g, _ := m.Lock()
	defer g.Unlock()
	if *g.Value() != workers*rounds {
		t.Fatalf("counter = %d, want %d", *g.Value(), workers*rounds)
	}
}

func TestMutexGuardConfined(t *testing.T) {
	resetKernel(t)
	m := NewMutex(1)
	defer m.Close()

	g, _ := m.Lock()
	done := make(chan bool)
	go func() {
		defer func() { done <- recover() != nil }()
		_ = g.Value()
	}()
	select {
	case panicked := <-done:
		if !panicked {
			t.Fatal("Value() from another goroutine did not panic")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
	g.Unlock()
	expectPanic(t, "Unlock twice", g.Unlock)
	expectPanic(t, "Value after Unlock", func() { g.Value() })
}
