package fixgen

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, 2, time.Hour)

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
	}
	if cb.State() != CircuitClosed {
		t.Errorf("state = %s before threshold, want CLOSED", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Errorf("state = %s after threshold, want OPEN", cb.State())
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow() = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %s, want OPEN", cb.State())
	}

	time.Sleep(20 * time.Millisecond)
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after cooldown = %v, want nil", err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("state = %s after cooldown, want HALF_OPEN", cb.State())
	}

	cb.RecordSuccess()
	if cb.State() != CircuitHalfOpen {
		t.Errorf("state = %s after one success, want HALF_OPEN", cb.State())
	}
	cb.RecordSuccess()
	if cb.State() != CircuitClosed {
		t.Errorf("state = %s after recovery, want CLOSED", cb.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	if err := cb.Allow(); err != nil {
		t.Fatal(err)
	}

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Errorf("state = %s after half-open failure, want OPEN", cb.State())
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, 2, time.Hour)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	if cb.State() != CircuitClosed {
		t.Errorf("state = %s, want CLOSED (success should reset the count)", cb.State())
	}
}

func TestIsRetriableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.DeadlineExceeded, true},
		{errors.New("429 too many requests"), true},
		{errors.New("rate limit exceeded"), true},
		{errors.New("503 service unavailable"), true},
		{errors.New("connection refused"), true},
		{errors.New("401 unauthorized"), false},
		{errors.New("invalid request body"), false},
	}
	for _, tt := range tests {
		if got := isRetriableError(tt.err); got != tt.want {
			t.Errorf("isRetriableError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestStubHonorsContext(t *testing.T) {
	stub := &Stub{Delay: time.Second, Result: &Result{FixedCode: "x"}}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := stub.GenerateFix(ctx, Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("GenerateFix() = %v, want deadline exceeded", err)
	}
}

func TestStubScriptedResponses(t *testing.T) {
	stub := &Stub{Result: &Result{FixedCode: "fixed", Explanation: "did it"}}

	res, err := stub.GenerateFix(context.Background(), Request{Code: "broken"})
	if err != nil {
		t.Fatal(err)
	}
	if res.FixedCode != "fixed" {
		t.Errorf("FixedCode = %q", res.FixedCode)
	}
	if stub.Calls != 1 {
		t.Errorf("Calls = %d, want 1", stub.Calls)
	}
}
