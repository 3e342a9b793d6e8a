package notification

import (
	"testing"

	"furigo/furi"
	"furigo/kernel"
)

func TestServiceDeliversMessages(t *testing.T) {
	if _, err := kernel.Init(kernel.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	svc := Start()

	rec := furi.OpenRecord[*Service](furi.RecordNotification)
	msgs := []Message{
		{Kind: KindLedGreen, Value: 255},
		{Kind: KindVibro, Value: 1, DurationMs: 100},
		{Kind: KindSound, Value: 440, DurationMs: 50},
	}
	for _, m := range msgs {
		if err := rec.Get().Send(m); err != nil {
			t.Fatalf("Send(%v) err = %v", m.Kind, err)
		}
	}
	for svc.Delivered() < uint32(len(msgs)) {
		if err := svc.WaitDelivered(furi.FromSecs(1)); err != nil {
			t.Fatalf("WaitDelivered() err = %v after %d", err, svc.Delivered())
		}
	}

	st, err := svc.State()
	if err != nil {
		t.Fatal(err)
	}
	if st.Green != 255 || !st.Vibro || st.SoundHz != 440 {
		t.Fatalf("State() = %+v", st)
	}

	if err := svc.Stop(); err != ErrInUse {
		t.Fatalf("Stop() err = %v, want ErrInUse", err)
	}
	rec.Close()
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop() err = %v", err)
	}
	if len(kernel.Threads()) != 0 {
		t.Fatalf("Threads() = %v after Stop", kernel.Threads())
	}
}

func TestSendRejectsInvalidKind(t *testing.T) {
	if _, err := kernel.Init(kernel.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	svc := Start()
	defer svc.Stop()

	if err := svc.Send(Message{}); err == nil {
		t.Fatal("Send(zero kind) err = nil")
	}
	if err := svc.Send(Message{Kind: kindStop}); err == nil {
		t.Fatal("Send(stop) err = nil")
	}
}
