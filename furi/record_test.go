package furi

import (
	"testing"

	"furigo/kernel"
)

type fakeService struct {
	name string
}

func TestRecordOpenClone(t *testing.T) {
	resetKernel(t)
	svc := &fakeService{name: "notification"}
	kernel.RecordCreate(RecordNotification, svc)

	r := OpenRecord[*fakeService](RecordNotification)
	if r.Get() != svc || r.Name() != RecordNotification {
		t.Fatal("OpenRecord() returned the wrong service")
	}
	c := r.Clone()
	if kernel.RecordHolders(RecordNotification) != 2 {
		t.Fatalf("holders = %d, want 2", kernel.RecordHolders(RecordNotification))
	}

	r.Close()
	r.Close()
	if kernel.RecordHolders(RecordNotification) != 1 {
		t.Fatalf("holders = %d after double Close, want 1", kernel.RecordHolders(RecordNotification))
	}
	expectPanic(t, "Get after Close", func() { r.Get() })
	if c.Get() != svc {
		t.Fatal("clone lost the service")
	}
	c.Close()
	if !kernel.RecordDestroy(RecordNotification) {
		t.Fatal("RecordDestroy() failed with all handles closed")
	}
}

func TestRecordWrongType(t *testing.T) {
	resetKernel(t)
	kernel.RecordCreate(RecordStorage, 42)
	expectPanic(t, "OpenRecord with wrong type", func() { OpenRecord[string](RecordStorage) })
	if kernel.RecordHolders(RecordStorage) != 0 {
		t.Fatal("failed open kept a holder")
	}
}
