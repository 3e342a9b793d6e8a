package kernel

import "time"

// notifier wakes every goroutine waiting on a state change.
// It must be used under the lock that guards the state it signals.
type notifier struct {
	ch chan struct{}
}

// C returns a channel that is closed on the next Broadcast.
func (n *notifier) C() <-chan struct{} {
	if n.ch == nil {
		n.ch = make(chan struct{})
	}
	return n.ch
}

// Broadcast wakes all current waiters.
func (n *notifier) Broadcast() {
	if n.ch != nil {
		close(n.ch)
		n.ch = nil
	}
}

// deadline bounds a blocking call by a tick timeout.
type deadline struct {
	forever bool
	expired bool
	timer   *time.Timer
}

func (s *System) newDeadline(ticks uint32) *deadline {
	if ticks == WaitForever {
		return &deadline{forever: true}
	}
	return &deadline{timer: time.NewTimer(s.ticksToDuration(ticks))}
}

// wait blocks until ch is closed or the deadline passes.
// It returns false once the deadline has passed.
func (d *deadline) wait(ch <-chan struct{}) bool {
	if d.expired {
		return false
	}
	if d.forever {
		<-ch
		return true
	}
	select {
	case <-ch:
		return true
	case <-d.timer.C:
		d.expired = true
		return false
	}
}

func (d *deadline) stop() {
	if d.timer != nil {
		d.timer.Stop()
	}
}
