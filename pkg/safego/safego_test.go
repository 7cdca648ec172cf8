package safego

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGoRecoversPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core)

	done := make(chan struct{})
	Go(logger, "panicky", func() {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not finish")
	}

	deadline := time.Now().Add(time.Second)
	for logs.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected 1 panic log, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.ContextMap()["goroutine"] != "panicky" {
		t.Errorf("unexpected goroutine field: %v", entry.ContextMap()["goroutine"])
	}
}
