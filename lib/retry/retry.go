package retry

import (
	"context"
	"errors"
	"time"
)

// Policy is a named bounded-retry policy: at most Attempts calls with a
// fixed Delay between them. All remote-service calls in the coupon
// lifecycle share one policy instead of inline sleep loops.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

type stopError struct {
	err error
}

func (s stopError) Error() string { return s.err.Error() }
func (s stopError) Unwrap() error { return s.err }

// Stop wraps an error to mark it permanent: Do returns it immediately
// without consuming further attempts.
func Stop(err error) error {
	return stopError{err: err}
}

// Do runs fn until it succeeds, returns a permanent error, the attempt
// budget is exhausted, or the context is done. The last error is returned.
func Do(ctx context.Context, p Policy, fn func() error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	var err error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if attempt > 0 && p.Delay > 0 {
			select {
			case <-time.After(p.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err = fn()
		if err == nil {
			return nil
		}
		var stop stopError
		if errors.As(err, &stop) {
			return stop.err
		}
	}
	return err
}
