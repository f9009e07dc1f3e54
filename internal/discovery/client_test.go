// Package discovery tests cover catalog address extraction (service address
// with node-address fallback, empty and "none" sentinels) and the blocking
// wait loop, against an httptest catalog with an injected sleep.
package discovery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func catalogServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := responses[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupPrimary(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		expectAddr  string
		expectError error
	}{
		{
			name:       "service_address_preferred",
			body:       `[{"Node":"n1","Address":"10.0.0.1","ServiceAddress":"10.0.0.2","ServicePort":3306}]`,
			expectAddr: "10.0.0.2",
		},
		{
			name:       "falls_back_to_node_address",
			body:       `[{"Node":"n1","Address":"10.0.0.1","ServiceAddress":"","ServicePort":3306}]`,
			expectAddr: "10.0.0.1",
		},
		{
			name:       "first_record_wins",
			body:       `[{"Address":"10.0.0.1"},{"Address":"10.0.0.9"}]`,
			expectAddr: "10.0.0.1",
		},
		{
			name:        "empty_listing",
			body:        `[]`,
			expectError: ErrNoPrimary,
		},
		{
			name:        "none_sentinel",
			body:        `[{"Address":"none"}]`,
			expectError: ErrNoPrimary,
		},
		{
			name:        "blank_addresses",
			body:        `[{"Address":"","ServiceAddress":""}]`,
			expectError: ErrNoPrimary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := catalogServer(t, map[string]string{"/v1/catalog/service/mysql": tt.body})
			c := New(srv.URL)

			addr, err := c.LookupPrimary(context.Background(), "mysql")
			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Fatalf("expected %v, got: %v", tt.expectError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if addr != tt.expectAddr {
				t.Errorf("address = %q, want %q", addr, tt.expectAddr)
			}
		})
	}
}

func TestLookupPrimaryRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "catalog unavailable", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	if _, err := c.LookupPrimary(context.Background(), "mysql"); err == nil {
		t.Fatal("expected error for 5xx catalog response, got nil")
	}
}

func TestWaitForPrimaryBlocksUntilPrimaryAppears(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Empty listing for the first lookups, then an elected primary.
		if requests.Add(1) < 4 {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[{"Address":"10.0.0.5"}]`))
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	sleeps := 0
	c.Policy.Sleep = func(d time.Duration) {
		sleeps++
		if d != defaultLookupInterval {
			t.Errorf("sleep interval = %v, want %v", d, defaultLookupInterval)
		}
	}

	addr, err := c.WaitForPrimary(context.Background(), "mysql")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "10.0.0.5" {
		t.Errorf("address = %q, want 10.0.0.5", addr)
	}
	if sleeps != 3 {
		t.Errorf("expected 3 waits before the primary appeared, got %d", sleeps)
	}
}
