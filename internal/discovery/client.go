// Package discovery looks up the current primary node through an external
// Consul-style catalog service.
//
// The catalog maps logical service names to currently healthy instances. The
// client extracts the first instance's address and, when no primary exists
// yet, blocks and retries at a fixed interval forever: replica startup is
// defined to depend on primary availability, so there is no timeout and no
// error surface — cancellation is the process's own lifetime.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dbfleet/mysql-entrypoint/internal/logging"
	"github.com/dbfleet/mysql-entrypoint/internal/retry"
	"github.com/dbfleet/mysql-entrypoint/internal/version"
)

// Interval between catalog lookups while waiting for a primary to appear.
const defaultLookupInterval = 1700 * time.Millisecond

// ErrNoPrimary indicates the catalog currently has no healthy primary.
// Internal to the wait loop; WaitForPrimary retries instead of surfacing it.
var ErrNoPrimary = errors.New("no healthy primary in catalog")

// ServiceRecord is one instance entry in a catalog service listing.
type ServiceRecord struct {
	Node           string `json:"Node"`
	Address        string `json:"Address"`
	ServiceAddress string `json:"ServiceAddress"`
	ServicePort    int    `json:"ServicePort"`
}

// Client queries the discovery catalog over HTTP.
type Client struct {
	http   *resty.Client
	Policy retry.Policy // Lookup retry policy; unbounded by default
}

// New creates a catalog client for the given base URL, e.g.
// "http://consul:8500". Individual lookups time out quickly; persistence
// comes from the retry policy, not long-hanging requests.
func New(baseURL string) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second).
		SetHeader("User-Agent", "mysql-entrypoint/"+version.EntrypointVersion).
		SetHeader("Accept", "application/json")

	return &Client{
		http: httpClient,
		Policy: retry.Policy{
			Interval:    defaultLookupInterval,
			MaxAttempts: 0, // block until a primary exists
		},
	}
}

// LookupPrimary performs a single catalog lookup for the named service and
// returns the first healthy instance's address. Returns ErrNoPrimary when the
// listing is empty or carries no usable address.
func (c *Client) LookupPrimary(ctx context.Context, service string) (string, error) {
	var records []ServiceRecord
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&records).
		Get("/v1/catalog/service/" + service)
	if err != nil {
		return "", fmt.Errorf("catalog lookup for %q failed: %w", service, err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("catalog lookup for %q returned status %d", service, resp.StatusCode())
	}
	if len(records) == 0 {
		return "", ErrNoPrimary
	}

	addr := records[0].ServiceAddress
	if addr == "" {
		addr = records[0].Address
	}
	// Some registrations publish an explicit "none" sentinel while the
	// primary election is still in flight.
	if addr == "" || addr == "none" {
		return "", ErrNoPrimary
	}
	return addr, nil
}

// WaitForPrimary blocks until the catalog reports a healthy primary for the
// named service, retrying at a fixed interval indefinitely. Lookup transport
// failures are retried the same way as empty listings.
func (c *Client) WaitForPrimary(ctx context.Context, service string) (string, error) {
	var primary string
	err := c.Policy.Do(func() error {
		addr, err := c.LookupPrimary(ctx, service)
		if err != nil {
			logging.Debug("Primary not available yet (%v), retrying", err)
			return err
		}
		primary = addr
		return nil
	})
	if err != nil {
		return "", err
	}
	logging.Info("Discovered primary %s for service %q", primary, service)
	return primary, nil
}
