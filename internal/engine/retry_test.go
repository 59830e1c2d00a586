package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ordo-ai/ordo/internal/core"
)

func TestRetryPolicy_SucceedsFirstAttempt(t *testing.T) {
	p := NewRetryPolicy(WithMaxAttempts(3), WithBaseDelay(time.Millisecond))

	calls := 0
	err := p.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryPolicy_RetriesUntilSuccess(t *testing.T) {
	p := NewRetryPolicy(WithMaxAttempts(5), WithBaseDelay(time.Millisecond), WithJitter(0))

	calls := 0
	err := p.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return core.ErrExecution(core.CodeAgentFailed, "transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryPolicy_ExhaustsAttempts(t *testing.T) {
	p := NewRetryPolicy(WithMaxAttempts(3), WithBaseDelay(time.Millisecond), WithJitter(0))

	calls := 0
	err := p.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return core.ErrExecution(core.CodeAgentFailed, "always fails")
	})
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !IsRetryExhausted(err) {
		t.Fatalf("err = %v, want RetryExhaustedError", err)
	}
	var exhausted *RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatal("errors.As failed for RetryExhaustedError")
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", exhausted.Attempts)
	}
	if !core.IsCategory(exhausted.LastErr, core.ErrCatExecution) {
		t.Errorf("LastErr category = %v, want execution", core.GetCategory(exhausted.LastErr))
	}
}

func TestRetryPolicy_NonRetryableStopsImmediately(t *testing.T) {
	p := NewRetryPolicy(WithMaxAttempts(5), WithBaseDelay(time.Millisecond))

	calls := 0
	wantErr := core.ErrConfiguration(core.CodeUnknownAgent, "no such agent")
	err := p.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return wantErr
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestRetryPolicy_ContextCancellation(t *testing.T) {
	p := NewRetryPolicy(WithMaxAttempts(10), WithBaseDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := p.Execute(ctx, func(ctx context.Context) error {
		calls++
		return core.ErrExecution(core.CodeAgentFailed, "transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 before cancellation", calls)
	}
}

func TestRetryPolicy_ExecuteWithNotify(t *testing.T) {
	p := NewRetryPolicy(WithMaxAttempts(3), WithBaseDelay(time.Millisecond), WithJitter(0))

	var notified []int
	err := p.ExecuteWithNotify(context.Background(), func(ctx context.Context) error {
		return core.ErrTimeout("runner timed out")
	}, func(attempt int, err error, delay time.Duration) {
		notified = append(notified, attempt)
	})
	if !IsRetryExhausted(err) {
		t.Fatalf("err = %v, want RetryExhaustedError", err)
	}
	// Notifications fire before each wait, so the last attempt has none.
	if len(notified) != 2 || notified[0] != 1 || notified[1] != 2 {
		t.Errorf("notified = %v, want [1 2]", notified)
	}
}

func TestCalculateDelay_ExponentialBackoff(t *testing.T) {
	p := &RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
	}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // capped at MaxDelay
	}
	for _, tc := range cases {
		if got := p.CalculateDelayNoJitter(tc.attempt); got != tc.want {
			t.Errorf("CalculateDelayNoJitter(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestCalculateDelay_JitterStaysBounded(t *testing.T) {
	p := &RetryPolicy{
		MaxAttempts:  3,
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		JitterFactor: 0.2,
		Multiplier:   2.0,
	}

	base := p.CalculateDelayNoJitter(2)
	lo := time.Duration(float64(base) * (1 - p.JitterFactor))
	hi := time.Duration(float64(base) * (1 + p.JitterFactor))
	for i := 0; i < 100; i++ {
		if d := p.CalculateDelay(2); d < lo || d > hi {
			t.Fatalf("CalculateDelay(2) = %v, want within [%v, %v]", d, lo, hi)
		}
	}
}
