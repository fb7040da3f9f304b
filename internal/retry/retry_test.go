package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries:     maxRetries,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
		BackoffFactor:  2.0,
	}
}

func TestDo_Success(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), testPolicy(3), func(context.Context) error {
		attempts++
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), testPolicy(3), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return Retryable(errors.New("temporary error"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestDo_MaxRetriesExceeded(t *testing.T) {
	attempts := 0
	persistent := errors.New("persistent error")
	err := Do(context.Background(), testPolicy(2), func(context.Context) error {
		attempts++
		return Retryable(persistent)
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, persistent) {
		t.Errorf("expected wrapped cause, got %v", err)
	}

	if attempts != 3 {
		t.Errorf("expected 3 attempts (initial + 2 retries), got %d", attempts)
	}
}

func TestDo_NoRetriesReturnsCauseUnwrapped(t *testing.T) {
	cause := Retryable(errors.New("busy"))
	err := Do(context.Background(), testPolicy(0), func(context.Context) error {
		return cause
	})
	if err != cause {
		t.Fatalf("expected the original error, got %v", err)
	}
}

func TestDo_NonRetryableError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), testPolicy(3), func(context.Context) error {
		attempts++
		return errors.New("non-retryable error")
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if attempts != 1 {
		t.Errorf("expected 1 attempt (non-retryable), got %d", attempts)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	policy := Policy{
		MaxRetries:     5,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
		BackoffFactor:  2.0,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	attempts := 0
	err := Do(ctx, policy, func(context.Context) error {
		attempts++
		return Retryable(errors.New("retryable error"))
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	if attempts != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestDo_RetryAfterIsCapped(t *testing.T) {
	policy := testPolicy(1)
	start := time.Now()
	attempts := 0
	_ = Do(context.Background(), policy, func(context.Context) error {
		attempts++
		return RetryableAfter(errors.New("slow down"), time.Hour)
	})

	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("expected RetryAfter to be capped at MaxBackoff, waited %v", elapsed)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"regular error", errors.New("regular"), false},
		{"retryable error", Retryable(errors.New("retry")), true},
		{"retryable with delay", RetryableAfter(errors.New("retry"), 1*time.Second), true},
		{"wrapped retryable", errors.Join(errors.New("ctx"), Retryable(errors.New("retry"))), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	policy := Policy{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         false,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second},
		{5, 10 * time.Second},
	}

	for _, tt := range tests {
		if got := calculateBackoff(policy, tt.attempt); got != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}
}

func TestCalculateBackoffJitterStaysWithinTenPercent(t *testing.T) {
	policy := Policy{InitialBackoff: time.Second, MaxBackoff: time.Second, BackoffFactor: 2, Jitter: true}
	for i := 0; i < 50; i++ {
		got := calculateBackoff(policy, 0)
		if got < 900*time.Millisecond || got > 1100*time.Millisecond {
			t.Fatalf("jittered backoff out of range: %v", got)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := Retryable(errors.New("test error"))
	if err.Error() != "test error" {
		t.Errorf("unexpected error message: %s", err.Error())
	}

	withDelay := RetryableAfter(errors.New("test error"), 5*time.Second)
	if withDelay.Error() != "test error (retry after 5s)" {
		t.Errorf("unexpected error message: %s", withDelay.Error())
	}
}
