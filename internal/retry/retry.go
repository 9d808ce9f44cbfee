// Package retry provides bounded retries with exponential backoff and jitter
// for outbound deliveries such as webhook sends.
package retry

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"time"
)

// PermanentError wraps an error that should not be retried, such as a 4xx
// response from a webhook subscriber.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that Do stops immediately instead of retrying.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// Do calls fn up to maxAttempts times, sleeping between attempts with
// exponential backoff and +-25% jitter starting from baseDelay. It returns
// nil on the first success, the unwrapped error for a *PermanentError, the
// context error if ctx is cancelled during backoff, and otherwise the error
// from the final attempt.
func Do(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	delay := baseDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		var pe *PermanentError
		if errors.As(err, &pe) {
			return pe.Err
		}
		if attempt == maxAttempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(withJitter(delay)):
		}
		delay *= 2
	}
}

// withJitter spreads a delay over [0.75d, 1.25d] so retries from concurrent
// deliveries do not land on the subscriber at the same instant.
func withJitter(d time.Duration) time.Duration {
	spread := d / 4
	if spread <= 0 {
		return d
	}
	return d - spread + time.Duration(randInt64n(int64(2*spread+1)))
}

// randInt64n returns a random int64 in [0, n) using crypto/rand.
func randInt64n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var b [8]byte
	_, _ = rand.Read(b[:])
	v := binary.LittleEndian.Uint64(b[:]) >> 1
	return int64(v % uint64(n)) //nolint:gosec // n>0, v%n < n, safe
}
