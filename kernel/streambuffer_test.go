package kernel

import (
	"bytes"
	"testing"
	"time"
)

func TestStreamBufferPartialSend(t *testing.T) {
	resetSystem(t)
	b := StreamBufferAlloc(8, 1)
	defer b.Free()

	if n := b.Send([]byte("0123456789"), 0); n != 8 {
		t.Fatalf("Send() = %d, want 8", n)
	}
	if !b.IsFull() || b.SpacesAvailable() != 0 {
		t.Fatal("buffer should be full")
	}
	dst := make([]byte, 5)
	if n := b.Receive(dst, 0); n != 5 || string(dst) != "01234" {
		t.Fatalf("Receive() = %d %q", n, dst[:n])
	}
	if n := b.Send([]byte("89ab"), 0); n != 4 {
		t.Fatalf("Send() after drain = %d, want 4", n)
	}
	all := make([]byte, 16)
	n := b.Receive(all, 0)
	if string(all[:n]) != "56789ab" {
		t.Fatalf("Receive() = %q, want wrapped 56789ab", all[:n])
	}
	if !b.IsEmpty() {
		t.Fatal("IsEmpty() = false after draining")
	}
}

func TestStreamBufferTriggerLevel(t *testing.T) {
	resetSystem(t)
	b := StreamBufferAlloc(32, 4)
	defer b.Free()

	if b.SetTriggerLevel(33) {
		t.Fatal("SetTriggerLevel(33) = true on 32-byte buffer")
	}
	if !b.SetTriggerLevel(0) || b.TriggerLevel() != 1 {
		t.Fatalf("trigger 0 should become 1, got %d", b.TriggerLevel())
	}
	b.SetTriggerLevel(4)

	got := make(chan []byte, 1)
	go func() {
		dst := make([]byte, 32)
		n := b.Receive(dst, WaitForever)
		got <- dst[:n]
	}()

	time.Sleep(10 * time.Millisecond)
	b.Send([]byte("ab"), 0)
	select {
	case v := <-got:
		t.Fatalf("Receive woke below trigger with %q", v)
	case <-time.After(20 * time.Millisecond):
	}
	b.Send([]byte("cd"), 0)
	select {
	case v := <-got:
		if string(v) != "abcd" {
			t.Fatalf("Receive() = %q, want abcd", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive did not wake at trigger level")
	}
}

func TestStreamBufferReceiveTimeoutReturnsBuffered(t *testing.T) {
	resetSystem(t)
	b := StreamBufferAlloc(16, 8)
	defer b.Free()

	b.Send([]byte("xy"), 0)
	dst := make([]byte, 16)
	if n := b.Receive(dst, 10); n != 2 || string(dst[:2]) != "xy" {
		t.Fatalf("Receive(10) = %d %q, want 2 xy", n, dst[:n])
	}
	if n := b.Receive(dst, 5); n != 0 {
		t.Fatalf("Receive(5) on empty = %d, want 0", n)
	}
}

func TestStreamBufferBlockingSend(t *testing.T) {
	resetSystem(t)
	b := StreamBufferAlloc(4, 1)
	defer b.Free()

	payload := []byte("hello world")
	sent := make(chan int, 1)
	go func() { sent <- b.Send(payload, WaitForever) }()

	var out []byte
	dst := make([]byte, 3)
	deadline := time.After(2 * time.Second)
	for len(out) < len(payload) {
		select {
		case <-deadline:
			t.Fatalf("received %q before deadline", out)
		default:
		}
		n := b.Receive(dst, 10)
		out = append(out, dst[:n]...)
	}
	if n := <-sent; n != len(payload) {
		t.Fatalf("Send() = %d, want %d", n, len(payload))
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("received %q, want %q", out, payload)
	}
}

func TestStreamBufferSendTimeout(t *testing.T) {
	resetSystem(t)
	b := StreamBufferAlloc(4, 1)
	defer b.Free()

	if n := b.Send([]byte("abcdef"), 10); n != 4 {
		t.Fatalf("Send(10) = %d, want 4", n)
	}
}

func TestStreamBufferResetFailsWhileBlocked(t *testing.T) {
	resetSystem(t)
	b := StreamBufferAlloc(8, 1)
	defer b.Free()

	b.Send([]byte("abc"), 0)
	if st := b.Reset(); st != StatusOK || !b.IsEmpty() {
		t.Fatalf("Reset() = %v, empty = %v", st, b.IsEmpty())
	}

	done := make(chan struct{})
	go func() {
		b.Receive(make([]byte, 1), 100)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	if st := b.Reset(); st != StatusError {
		t.Fatalf("Reset() while blocked = %v, want error", st)
	}
	waitClosed(t, done, "receive timeout")
}

func TestStreamBufferAllocChecks(t *testing.T) {
	resetSystem(t)
	expectCrash(t, func() { StreamBufferAlloc(0, 0) })
	expectCrash(t, func() { StreamBufferAlloc(4, 5) })
}
