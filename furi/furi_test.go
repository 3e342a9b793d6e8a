package furi

import (
	"testing"

	"furigo/kernel"
)

func resetKernel(t *testing.T) {
	t.Helper()
	if _, err := kernel.Init(kernel.DefaultConfig()); err != nil {
		t.Fatalf("kernel.Init() err = %v", err)
	}
}

func expectPanic(t *testing.T, what string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s did not panic", what)
		}
	}()
	fn()
}
