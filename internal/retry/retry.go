// Package retry implements the fixed-interval retry policies used by the
// entrypoint's startup and discovery loops.
//
// Two shapes of loop exist in the entrypoint: a bounded wait for a freshly
// started server to accept connections, and an unbounded wait for a primary
// node to appear in the discovery catalog. Both are expressed as an explicit
// Policy value rather than inline sleeps, so timing is configuration and tests
// can inject a fake sleep function instead of waiting on the wall clock.
package retry

import (
	"errors"
	"fmt"
	"time"
)

// ErrBudgetExhausted indicates a bounded policy ran out of attempts without a
// single success. Callers wrap it into their own failure taxonomy.
var ErrBudgetExhausted = errors.New("retry budget exhausted")

// Policy describes a fixed-interval retry loop.
type Policy struct {
	Interval    time.Duration       // Pause between attempts
	MaxAttempts int                 // Attempt budget; 0 means retry forever
	Sleep       func(time.Duration) // Sleep implementation; nil uses time.Sleep
}

// Validate checks that the policy's timing is usable. A zero interval with an
// unbounded budget would spin the CPU waiting on an external service.
func (p Policy) Validate() error {
	if p.Interval <= 0 {
		return fmt.Errorf("retry interval must be positive, got: %v", p.Interval)
	}
	if p.MaxAttempts < 0 {
		return fmt.Errorf("max attempts cannot be negative, got: %d", p.MaxAttempts)
	}
	return nil
}

// Do runs fn until it succeeds or the attempt budget is exhausted, sleeping
// for the configured interval between attempts (never after the last one).
//
// With MaxAttempts == 0 the loop only ends on success; cancellation is the
// caller's process lifetime, matching the entrypoint's blocking discovery
// semantics. On exhaustion the last failure is preserved in the returned
// error chain alongside ErrBudgetExhausted.
func (p Policy) Do(fn func() error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %v", ErrBudgetExhausted, attempt, err)
		}
		sleep(p.Interval)
	}
}
