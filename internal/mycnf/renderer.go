// Package mycnf derives per-boot node configuration from host facts and
// renders it into the config artifact consumed by the database server.
//
// Three settings are managed: the InnoDB buffer pool size (70% of physical
// memory unless explicitly overridden), the replication server id (derived
// deterministically from the hostname so node identity survives restarts),
// and the report host. Rendering happens on every boot so the artifact tracks
// host and resource changes, and it rewrites only the managed keys, leaving
// every other line of the artifact untouched.
package mycnf

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/mem"
)

// Fraction of physical memory given to the buffer pool when no override is set.
const bufferPoolFraction = 0.7

// Keys managed by the renderer inside the config artifact.
const (
	keyBufferPool = "innodb_buffer_pool_size"
	keyServerID   = "server-id"
	keyReportHost = "report-host"
)

// NodeConfig is the derived runtime configuration for this node. Created once
// per process start and immutable afterward.
type NodeConfig struct {
	BufferPoolSize string // Rendered value with unit suffix, e.g. "1434M"
	ServerID       uint32 // Replication identity derived from the hostname
	ReportHost     string // Hostname reported to replication peers
	DataDir        string // Server data directory
}

// Renderer computes NodeConfig and persists it into the config artifact.
type Renderer struct {
	Path               string // Config artifact path
	DataDir            string // Server data directory, recorded in NodeConfig
	BufferPoolOverride string // Explicit buffer pool value, used verbatim when set

	// Host probes, injectable for tests. Nil fields use the real host.
	Hostname    func() (string, error)
	TotalMemory func() (uint64, error)
}

// TotalPhysicalMemory reports the host's total physical memory in bytes.
// The default memory probe for Renderer.
func TotalPhysicalMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("failed to read physical memory size: %w", err)
	}
	if vm.Total == 0 {
		return 0, fmt.Errorf("physical memory size reported as zero")
	}
	return vm.Total, nil
}

// ServerIDFromHostname derives the replication server id from the first four
// characters of the hostname interpreted as base-16. Container hostnames are
// hex-prefixed, and the derivation must be stable across restarts of the same
// container so replication identity does not drift.
func ServerIDFromHostname(hostname string) (uint32, error) {
	if len(hostname) < 4 {
		return 0, fmt.Errorf("hostname %q too short to derive server id (need 4 characters)", hostname)
	}
	id, err := strconv.ParseUint(hostname[:4], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("hostname prefix %q is not base-16: %w", hostname[:4], err)
	}
	return uint32(id), nil
}

// BufferPoolSize renders the buffer pool setting from total physical memory
// in bytes, rounding 70% of it to whole mebibytes with the conventional "M"
// suffix.
func BufferPoolSize(totalBytes uint64) string {
	mib := math.Round(bufferPoolFraction * float64(totalBytes) / (1 << 20))
	return fmt.Sprintf("%.0fM", mib)
}

// Render computes the node configuration and rewrites the managed keys of the
// config artifact in place. Safe to re-run every boot: unrelated settings are
// preserved byte-for-byte and re-rendering an unchanged host is a no-op in
// effect.
//
// A missing or unreadable memory probe is a hard failure rather than a silent
// zero-sized buffer pool, which would cripple the server without any visible
// misconfiguration.
func (r *Renderer) Render() (*NodeConfig, error) {
	hostname := r.Hostname
	if hostname == nil {
		hostname = os.Hostname
	}
	totalMemory := r.TotalMemory
	if totalMemory == nil {
		totalMemory = TotalPhysicalMemory
	}

	host, err := hostname()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve hostname: %w", err)
	}

	serverID, err := ServerIDFromHostname(host)
	if err != nil {
		return nil, err
	}

	bufferPool := r.BufferPoolOverride
	if bufferPool == "" {
		total, err := totalMemory()
		if err != nil {
			return nil, err
		}
		bufferPool = BufferPoolSize(total)
	}

	cfg := &NodeConfig{
		BufferPoolSize: bufferPool,
		ServerID:       serverID,
		ReportHost:     host,
		DataDir:        r.DataDir,
	}

	settings := []setting{
		{keyBufferPool, cfg.BufferPoolSize},
		{keyServerID, strconv.FormatUint(uint64(cfg.ServerID), 10)},
		{keyReportHost, cfg.ReportHost},
	}
	if err := updateArtifact(r.Path, settings); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setting is one managed key/value pair of the config artifact.
type setting struct {
	key   string
	value string
}

// updateArtifact rewrites the managed keys inside the artifact, preserving
// all other lines. A missing artifact is created as a minimal [mysqld]
// fragment.
func updateArtifact(path string, settings []setting) error {
	var lines []string
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		lines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	case os.IsNotExist(err):
		lines = []string{"[mysqld]"}
	default:
		return fmt.Errorf("failed to read config artifact %s: %w", path, err)
	}

	seen := make(map[string]bool)
	for i, line := range lines {
		key := configKey(line)
		for _, s := range settings {
			if key == s.key {
				lines[i] = s.key + " = " + s.value
				seen[s.key] = true
			}
		}
	}
	for _, s := range settings {
		if !seen[s.key] {
			lines = append(lines, s.key+" = "+s.value)
		}
	}

	out := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("failed to write config artifact %s: %w", path, err)
	}
	return nil
}

// configKey extracts the key of a "key = value" artifact line, or "" for
// comments, section headers, and blank lines.
func configKey(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "[") {
		return ""
	}
	key, _, found := strings.Cut(trimmed, "=")
	if !found {
		return ""
	}
	return strings.TrimSpace(key)
}
