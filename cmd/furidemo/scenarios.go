package main

import (
	"errors"
	"fmt"
	"time"

	"furigo/furi"
	"furigo/furi/thread"
	"furigo/rt"
	"furigo/services/gui"
	"furigo/services/notification"
)

type options struct {
	streamDelay time.Duration
}

var scenarios = map[string]func(options) error{
	"stream":  streamScenario,
	"queue":   queueScenario,
	"mutex":   mutexScenario,
	"flags":   flagsScenario,
	"records": recordsScenario,
}

// runApp runs fn as an application and turns a non-zero exit into an error.
func runApp(name string, fn func() error) error {
	var appErr error
	code := rt.Run(rt.Manifest{Name: name, AppID: name + "_app"}, func(string) int32 {
		if appErr = fn(); appErr != nil {
			return 1
		}
		return 0
	})
	if code != 0 {
		if appErr == nil {
			appErr = fmt.Errorf("exit code %d", code)
		}
		return appErr
	}
	return nil
}

// streamScenario: a sender sleeps, then writes 20 bytes; the receiver first
// polls (nothing buffered) and then blocks until the bytes arrive.
func streamScenario(opts options) error {
	return runApp("stream", func() error {
		tx, rx := furi.NewStreamBuffer(1024, 16).IntoStream()

		sender := thread.Spawn(func() int32 {
			defer tx.Close()
			thread.Sleep(opts.streamDelay)
			return int32(tx.Send([]byte("hello from sender!!!")))
		})

		received := make(chan int, 1)
		receiver := thread.Spawn(func() int32 {
			defer rx.Close()
			buf := make([]byte, 64)
			if n := rx.Recv(buf); n != 0 {
				received <- -n
				return 1
			}
			received <- rx.RecvBlocking(buf)
			return 0
		})

		if sent := sender.Join(); sent != 20 {
			return fmt.Errorf("sent %d bytes, want 20", sent)
		}
		if code := receiver.Join(); code != 0 {
			return fmt.Errorf("receiver saw %d bytes before send", -<-received)
		}
		if n := <-received; n != 20 {
			return fmt.Errorf("received %d bytes, want 20", n)
		}
		return nil
	})
}

// queueScenario: a capacity-1 queue of 4-byte messages.
func queueScenario(options) error {
	return runApp("queue", func() error {
		q := furi.NewMessageQueue[uint32](1)
		defer q.Close()

		if err := q.Put(0x11223344, furi.Zero); err != nil {
			return fmt.Errorf("first put: %w", err)
		}
		if err := q.Put(0x55667788, furi.Zero); !errors.Is(err, furi.ErrResource) {
			return fmt.Errorf("second put: got %v, want %v", err, furi.ErrResource)
		}
		v, err := q.Get(furi.Zero)
		if err != nil {
			return err
		}
		if v != 0x11223344 {
			return fmt.Errorf("get: %#x", v)
		}
		if q.Len()+q.Space() != q.Capacity() {
			return errors.New("len+space != capacity")
		}
		return nil
	})
}

// mutexScenario: worker threads increment a shared counter.
func mutexScenario(options) error {
	const workers, rounds = 4, 250
	return runApp("mutex", func() error {
		m := furi.NewMutex(0)
		defer m.Close()

		for i := 0; i < workers; i++ {
			b, err := thread.NewBuilder().Name(fmt.Sprintf("Worker%d", i))
			if err != nil {
				return err
			}
			b.Spawn(func() int32 {
				for j := 0; j < rounds; j++ {
					if err := m.WithLock(func(v *int) { *v++ }); err != nil {
						return 1
					}
				}
				return 0
			}).Detach()
		}
		rt.WaitForCompletion()

		var total int
		if err := m.WithLock(func(v *int) { total = *v }); err != nil {
			return err
		}
		if total != workers*rounds {
			return fmt.Errorf("counter = %d, want %d", total, workers*rounds)
		}
		return nil
	})
}

// flagsScenario: a waiter needs two flags raised by two threads.
func flagsScenario(options) error {
	const ready, loaded = 1 << 0, 1 << 1
	return runApp("flags", func() error {
		e := furi.NewEventFlag()
		defer e.Close()

		for _, bit := range []uint32{ready, loaded} {
			thread.Spawn(func() int32 {
				thread.Sleep(10 * time.Millisecond)
				if _, err := e.Set(bit); err != nil {
					return 1
				}
				return 0
			}).Detach()
		}
		got, err := e.WaitAll(ready|loaded, true, furi.FromSecs(1))
		if err != nil {
			return err
		}
		if got&(ready|loaded) != ready|loaded {
			return fmt.Errorf("flags = %#b", got)
		}
		return nil
	})
}

// recordsScenario: services published as records, used through handles.
func recordsScenario(options) error {
	screen := gui.Start()
	notify := notification.Start()

	err := runApp("records", func() error {
		g := furi.OpenRecord[*gui.Service](furi.RecordGUI)
		defer g.Close()
		n := furi.OpenRecord[*notification.Service](furi.RecordNotification)
		defer n.Close()

		if err := g.Get().DrawText(0, 0, "furigo"); err != nil {
			return err
		}
		if err := g.Get().Commit(); err != nil {
			return err
		}
		if err := n.Get().Send(notification.Message{Kind: notification.KindLedBlue, Value: 255}); err != nil {
			return err
		}
		return n.Get().WaitDelivered(furi.FromSecs(1))
	})

	if stopErr := notify.Stop(); err == nil {
		err = stopErr
	}
	if stopErr := screen.Stop(); err == nil {
		err = stopErr
	}
	if err == nil && screen.Frames() != 1 {
		err = fmt.Errorf("gui frames = %d, want 1", screen.Frames())
	}
	return err
}
