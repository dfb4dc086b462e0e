package devguide

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Retryer decides how long to wait before retrying a failed operation.
type Retryer interface {
	// NextDelay returns the delay before retry number attempt (0-based) after
	// lastErr, and false once no more retries should be made.
	NextDelay(attempt int, lastErr error) (time.Duration, bool)

	// Reset clears any state kept between attempts.
	Reset()
}

// ExponentialBackoffRetryer multiplies the delay after every attempt.
type ExponentialBackoffRetryer struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// MaxRetries is the maximum number of retries (0 for no limit).
	MaxRetries int

	// JitterFactor spreads each delay by up to this fraction in either
	// direction. Zero disables jitter.
	JitterFactor float64
}

// NewExponentialBackoffRetryer creates a new exponential backoff retryer with defaults
func NewExponentialBackoffRetryer() *ExponentialBackoffRetryer {
	return &ExponentialBackoffRetryer{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		MaxRetries:   10,
		JitterFactor: 0.2,
	}
}

// NewInsertRetryer returns the retryer DoInsertWithBackoff uses by default:
// ten attempts in total, sleeping 10ms after the first failure and doubling
// the sleep after every further one.
func NewInsertRetryer() *ExponentialBackoffRetryer {
	return &ExponentialBackoffRetryer{
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		MaxRetries:   9,
	}
}

// NextDelay implements Retryer
func (r *ExponentialBackoffRetryer) NextDelay(attempt int, lastErr error) (time.Duration, bool) {
	if r.MaxRetries > 0 && attempt >= r.MaxRetries {
		return 0, false
	}

	delay := float64(r.InitialDelay) * math.Pow(r.Multiplier, float64(attempt))
	if r.MaxDelay > 0 && delay > float64(r.MaxDelay) {
		delay = float64(r.MaxDelay)
	}

	if r.JitterFactor > 0 {
		//nolint:gosec // jitter is not security sensitive
		delay += delay * r.JitterFactor * (2*rand.Float64() - 1)
		if delay < 0 {
			delay = float64(r.InitialDelay)
		}
	}

	return time.Duration(delay), true
}

// Reset implements Retryer
func (r *ExponentialBackoffRetryer) Reset() {}

// FixedDelayRetryer waits the same amount of time before every retry.
type FixedDelayRetryer struct {
	Delay time.Duration

	// MaxRetries is the maximum number of retries (0 for no limit).
	MaxRetries int
}

// NewFixedDelayRetryer creates a new fixed delay retryer
func NewFixedDelayRetryer(delay time.Duration, maxRetries int) *FixedDelayRetryer {
	return &FixedDelayRetryer{
		Delay:      delay,
		MaxRetries: maxRetries,
	}
}

// NextDelay implements Retryer
func (r *FixedDelayRetryer) NextDelay(attempt int, lastErr error) (time.Duration, bool) {
	if r.MaxRetries > 0 && attempt >= r.MaxRetries {
		return 0, false
	}
	return r.Delay, true
}

// Reset implements Retryer
func (r *FixedDelayRetryer) Reset() {}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
