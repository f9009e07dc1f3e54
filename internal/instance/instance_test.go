// Package instance tests cover the readiness wait at both boundaries of the
// attempt budget and the idempotency of Stop, using a fake client runner and
// an injected sleep so no server process or wall-clock time is involved.
package instance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/dbfleet/mysql-entrypoint/internal/mysql"
	"github.com/dbfleet/mysql-entrypoint/internal/retry"
)

// failingThenReadyClient returns a client whose probe fails a given number of
// times before succeeding.
func failingThenReadyClient(failures int, probes *int) *mysql.Client {
	c := mysql.New("mysql", "/run/mysqld.sock")
	c.Run = func(ctx context.Context, name string, args []string, stdin io.Reader) error {
		*probes++
		if *probes <= failures {
			return fmt.Errorf("connection refused")
		}
		return nil
	}
	return c
}

func testConfig(maxAttempts int) *Config {
	cfg := DefaultConfig()
	cfg.DataDir = "/var/lib/mysql"
	cfg.Socket = "/run/mysqld.sock"
	cfg.ReadyPolicy = retry.Policy{
		Interval:    time.Second,
		MaxAttempts: maxAttempts,
		Sleep:       func(time.Duration) {},
	}
	return cfg
}

func TestWaitReadySucceedsOnLastAttempt(t *testing.T) {
	inst, err := New(testConfig(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	probes := 0
	client := failingThenReadyClient(29, &probes)
	if err := inst.WaitReady(context.Background(), client); err != nil {
		t.Fatalf("expected success on the final attempt, got: %v", err)
	}
	if probes != 30 {
		t.Errorf("expected 30 probes, got %d", probes)
	}
}

func TestWaitReadyTimesOutAfterBudget(t *testing.T) {
	inst, err := New(testConfig(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	probes := 0
	client := failingThenReadyClient(31, &probes)
	err = inst.WaitReady(context.Background(), client)
	if !errors.Is(err, ErrStartupTimeout) {
		t.Fatalf("expected ErrStartupTimeout, got: %v", err)
	}
	if probes != 30 {
		t.Errorf("expected exactly 30 probes, got %d", probes)
	}
}

func TestWaitReadySucceedsImmediately(t *testing.T) {
	inst, err := New(testConfig(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	probes := 0
	client := failingThenReadyClient(0, &probes)
	if err := inst.WaitReady(context.Background(), client); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if probes != 1 {
		t.Errorf("expected a single probe, got %d", probes)
	}
}

func TestStopWithoutStartIsNoOp(t *testing.T) {
	inst, err := New(testConfig(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := inst.Stop(); err != nil {
		t.Errorf("Stop on an unstarted instance must succeed, got: %v", err)
	}
	// Stop must stay safe when called again.
	if err := inst.Stop(); err != nil {
		t.Errorf("repeated Stop must succeed, got: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing_binary", func(c *Config) { c.ServerBinary = "" }, true},
		{"missing_datadir", func(c *Config) { c.DataDir = "" }, true},
		{"missing_socket", func(c *Config) { c.Socket = "" }, true},
		{"unbounded_readiness", func(c *Config) { c.ReadyPolicy.MaxAttempts = 0 }, true},
		{"zero_interval", func(c *Config) { c.ReadyPolicy.Interval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(30)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
