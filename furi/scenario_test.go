package furi_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"furigo/furi"
	"furigo/furi/thread"
	"furigo/kernel"
)

func TestStreamScenarioBlockingRecv(t *testing.T) {
	if _, err := kernel.Init(kernel.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	tx, rx := furi.NewStreamBuffer(1024, 16).IntoStream()

	var sentAt atomic.Int64
	a := thread.Spawn(func() int32 {
		defer tx.Close()
		thread.Sleep(2 * time.Second)
		sentAt.Store(time.Now().UnixNano())
		return int32(tx.Send(make([]byte, 20)))
	})

	b := thread.Spawn(func() int32 {
		defer rx.Close()
		buf := make([]byte, 64)
		if n := rx.Recv(buf); n != 0 {
			t.Errorf("Recv() = %d before send, want 0", n)
		}
		n := rx.RecvBlocking(buf)
		if sentAt.Load() == 0 {
			t.Errorf("RecvBlocking() returned before the sender sent")
		}
		return int32(n)
	})

	if got := a.Join(); got != 20 {
		t.Fatalf("sender returned %d, want 20", got)
	}
	if got := b.Join(); got != 20 {
		t.Fatalf("RecvBlocking() = %d, want 20", got)
	}
}

func TestMessageQueueScenario(t *testing.T) {
	if _, err := kernel.Init(kernel.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	q := furi.NewMessageQueue[[4]byte](1)
	defer q.Close()

	x := [4]byte{1, 2, 3, 4}
	if err := q.Put(x, furi.Zero); err != nil {
		t.Fatalf("Put(x) err = %v", err)
	}
	if err := q.Put([4]byte{5, 6, 7, 8}, furi.Zero); !errors.Is(err, furi.ErrResource) {
		t.Fatalf("Put(y) err = %v, want ErrResource", err)
	}
	got, err := q.Get(furi.Zero)
	if err != nil || got != x {
		t.Fatalf("Get() = %v, %v; want %v", got, err, x)
	}
}

func TestMutexAcrossThreads(t *testing.T) {
	if _, err := kernel.Init(kernel.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	m := furi.NewMutex(0)
	defer m.Close()

	handles := make([]*thread.JoinHandle, 0, 8)
	for i := 0; i < 8; i++ {
		handles = append(handles, thread.Spawn(func() int32 {
			for j := 0; j < 50; j++ {
				if err := m.WithLock(func(v *int) { *v++ }); err != nil {
					return 1
				}
				thread.Yield()
			}
			return 0
		}))
	}
	for _, h := range handles {
		if code := h.Join(); code != 0 {
			t.Fatalf("worker exit = %d", code)
		}
	}
	m.WithLock(func(v *int) {
		if *v != 400 {
			t.Fatalf("counter = %d, want 400", *v)
		}
	})
}
