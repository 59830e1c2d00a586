package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/ordo-ai/ordo/internal/core"
)

// RetryPolicy defines backoff behavior for repeated agent attempts.
type RetryPolicy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64 // 0.0 to 1.0
	Multiplier   float64 // Exponential factor
}

// DefaultRetryPolicy returns the policy used when the caller does not
// supply one.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		BaseDelay:    time.Second,
		MaxDelay:     30 * time.Second,
		JitterFactor: 0.2,
		Multiplier:   2.0,
	}
}

// RetryPolicyOption configures a retry policy.
type RetryPolicyOption func(*RetryPolicy)

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(n int) RetryPolicyOption {
	return func(p *RetryPolicy) {
		p.MaxAttempts = n
	}
}

// WithBaseDelay sets the initial delay.
func WithBaseDelay(d time.Duration) RetryPolicyOption {
	return func(p *RetryPolicy) {
		p.BaseDelay = d
	}
}

// WithMaxDelay sets the maximum delay.
func WithMaxDelay(d time.Duration) RetryPolicyOption {
	return func(p *RetryPolicy) {
		p.MaxDelay = d
	}
}

// WithJitter sets the jitter factor.
func WithJitter(factor float64) RetryPolicyOption {
	return func(p *RetryPolicy) {
		p.JitterFactor = factor
	}
}

// WithMultiplier sets the exponential multiplier.
func WithMultiplier(m float64) RetryPolicyOption {
	return func(p *RetryPolicy) {
		p.Multiplier = m
	}
}

// NewRetryPolicy creates a policy from the defaults plus options.
func NewRetryPolicy(opts ...RetryPolicyOption) *RetryPolicy {
	p := DefaultRetryPolicy()
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RetryableFunc is a function that can be retried.
type RetryableFunc func(ctx context.Context) error

// Execute runs the function until it succeeds, returns a non-retryable
// error, or exhausts MaxAttempts.
func (p *RetryPolicy) Execute(ctx context.Context, fn RetryableFunc) error {
	return p.ExecuteWithNotify(ctx, fn, nil)
}

// RetryNotifyFunc is called before each retry wait.
type RetryNotifyFunc func(attempt int, err error, delay time.Duration)

// ExecuteWithNotify runs with retry and per-retry notifications.
func (p *RetryPolicy) ExecuteWithNotify(ctx context.Context, fn RetryableFunc, notify RetryNotifyFunc) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if !core.IsRetryable(err) {
			return err
		}

		if attempt == p.MaxAttempts {
			break
		}

		delay := p.CalculateDelay(attempt)

		if notify != nil {
			notify(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return &RetryExhaustedError{
		Attempts: p.MaxAttempts,
		LastErr:  lastErr,
	}
}

// CalculateDelay computes the backoff delay for a given attempt.
func (p *RetryPolicy) CalculateDelay(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if p.JitterFactor > 0 {
		delay = addJitter(delay, p.JitterFactor)
	}
	return time.Duration(delay)
}

// CalculateDelayNoJitter computes the delay without jitter (for testing).
func (p *RetryPolicy) CalculateDelayNoJitter(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

// addJitter adds random jitter to a delay.
func addJitter(delay float64, factor float64) float64 {
	jitter := delay * factor
	randomJitter := (rand.Float64()*2 - 1) * jitter
	return delay + randomJitter
}

// RetryExhaustedError indicates all retry attempts failed.
type RetryExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.LastErr
}

// IsRetryExhausted checks if an error is a RetryExhaustedError.
func IsRetryExhausted(err error) bool {
	_, ok := err.(*RetryExhaustedError)
	return ok
}
