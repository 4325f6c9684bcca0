package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	failing := func() error { return errors.New("store down") }

	for i := 0; i < 3; i++ {
		if err := cb.Execute(context.Background(), failing); err == nil {
			t.Fatal("Expected failure from wrapped call")
		}
	}

	if cb.GetState() != StateOpen {
		t.Errorf("Expected state open, got %s", cb.GetState())
	}

	err := cb.Execute(context.Background(), func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	for i := 0; i < 10; i++ {
		if err := cb.Execute(context.Background(), func() error { return nil }); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	if cb.GetState() != StateClosed {
		t.Errorf("Expected state closed, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	failing := func() error { return errors.New("store down") }

	cb.Execute(context.Background(), failing)
	cb.Execute(context.Background(), failing)
	cb.Execute(context.Background(), func() error { return nil })
	cb.Execute(context.Background(), failing)
	cb.Execute(context.Background(), failing)

	if cb.GetState() != StateClosed {
		t.Errorf("Expected state closed after interleaved success, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenClosesOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	cb.Execute(context.Background(), func() error { return errors.New("store down") })
	if cb.GetState() != StateOpen {
		t.Fatalf("Expected state open, got %s", cb.GetState())
	}

	time.Sleep(20 * time.Millisecond)

	if err := cb.Execute(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("Expected a trial call to run after reset timeout, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state closed, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenReopensOnFailure(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	cb.Execute(context.Background(), func() error { return errors.New("store down") })
	time.Sleep(20 * time.Millisecond)

	cb.Execute(context.Background(), func() error { return errors.New("still down") })
	if cb.GetState() != StateOpen {
		t.Errorf("Expected state open after half-open failure, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_CancelledContext(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := cb.Execute(ctx, func() error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("Expected wrapped call to be skipped on cancelled context")
	}
}
