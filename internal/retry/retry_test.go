// Package retry tests cover both boundary counts of the bounded policy
// (budget-1 failures then success, and a fully exhausted budget) plus the
// unbounded policy's persistence, all with an injected sleep so no test
// touches the wall clock.
package retry

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestBoundedPolicyBoundaries(t *testing.T) {
	tests := []struct {
		name         string
		maxAttempts  int
		failures     int // attempts that fail before success
		expectError  bool
		expectCalls  int
		expectSleeps int
	}{
		{
			name:         "first_attempt_succeeds",
			maxAttempts:  30,
			failures:     0,
			expectError:  false,
			expectCalls:  1,
			expectSleeps: 0,
		},
		{
			name:         "budget_minus_one_failures_then_success",
			maxAttempts:  30,
			failures:     29,
			expectError:  false,
			expectCalls:  30,
			expectSleeps: 29,
		},
		{
			name:         "budget_exhausted",
			maxAttempts:  30,
			failures:     30,
			expectError:  true,
			expectCalls:  30,
			expectSleeps: 29, // no sleep after the final attempt
		},
		{
			name:         "single_attempt_budget",
			maxAttempts:  1,
			failures:     1,
			expectError:  true,
			expectCalls:  1,
			expectSleeps: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			sleeps := 0
			policy := Policy{
				Interval:    time.Second,
				MaxAttempts: tt.maxAttempts,
				Sleep:       func(time.Duration) { sleeps++ },
			}

			err := policy.Do(func() error {
				calls++
				if calls <= tt.failures {
					return fmt.Errorf("attempt %d failed", calls)
				}
				return nil
			})

			if tt.expectError {
				if !errors.Is(err, ErrBudgetExhausted) {
					t.Fatalf("expected ErrBudgetExhausted, got: %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if calls != tt.expectCalls {
				t.Errorf("expected %d calls, got %d", tt.expectCalls, calls)
			}
			if sleeps != tt.expectSleeps {
				t.Errorf("expected %d sleeps, got %d", tt.expectSleeps, sleeps)
			}
		})
	}
}

func TestUnboundedPolicyRetriesUntilSuccess(t *testing.T) {
	calls := 0
	policy := Policy{
		Interval: time.Second,
		Sleep:    func(time.Duration) {},
	}

	err := policy.Do(func() error {
		calls++
		if calls < 50 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 50 {
		t.Errorf("expected 50 calls, got %d", calls)
	}
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name        string
		policy      Policy
		expectError bool
	}{
		{"valid_bounded", Policy{Interval: time.Second, MaxAttempts: 30}, false},
		{"valid_unbounded", Policy{Interval: time.Second}, false},
		{"zero_interval", Policy{MaxAttempts: 30}, true},
		{"negative_interval", Policy{Interval: -time.Second}, true},
		{"negative_attempts", Policy{Interval: time.Second, MaxAttempts: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
