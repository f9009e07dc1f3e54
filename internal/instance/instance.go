// Package instance manages the temporary, network-isolated database server
// used during first-boot bootstrap.
//
// The temporary server is a scoped resource: it is started with networking
// disabled so no external client can connect before any accounts exist, it is
// polled until it accepts connections over the local socket, and it is always
// terminated and waited on before the bootstrap sequence returns, on success
// and on every error path. The handle exposes explicit Start, WaitReady, and
// Stop operations; Stop is idempotent so callers can defer it unconditionally.
package instance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/dbfleet/mysql-entrypoint/internal/logging"
	"github.com/dbfleet/mysql-entrypoint/internal/mysql"
	"github.com/dbfleet/mysql-entrypoint/internal/retry"
	"github.com/dbfleet/mysql-entrypoint/internal/validate"
)

// ErrStartupTimeout indicates the temporary server never accepted a
// connection within the readiness budget. Fatal: the caller aborts bootstrap.
var ErrStartupTimeout = errors.New("server did not become ready")

// Config holds settings for the temporary bootstrap server.
type Config struct {
	ServerBinary string       // Server binary, e.g. "mysqld"
	DataDir      string       // Data directory the server runs against
	Socket       string       // Unix socket path for local access
	RunAsUser    string       // System account the server drops to
	ReadyPolicy  retry.Policy // Readiness polling policy
}

// DefaultConfig returns the standard temporary-server configuration: one
// readiness probe per second with a budget of 30 attempts.
func DefaultConfig() *Config {
	return &Config{
		ServerBinary: "mysqld",
		RunAsUser:    "mysql",
		ReadyPolicy: retry.Policy{
			Interval:    time.Second,
			MaxAttempts: 30,
		},
	}
}

// Validate checks the configuration before any process is spawned.
func (c *Config) Validate() error {
	if err := validate.ValidateRequiredString(c.ServerBinary, "server binary"); err != nil {
		return err
	}
	if err := validate.ValidateRequiredString(c.DataDir, "data directory"); err != nil {
		return err
	}
	if err := validate.ValidateRequiredString(c.Socket, "socket path"); err != nil {
		return err
	}
	if err := c.ReadyPolicy.Validate(); err != nil {
		return fmt.Errorf("invalid readiness policy: %w", err)
	}
	if c.ReadyPolicy.MaxAttempts == 0 {
		return fmt.Errorf("readiness policy must be bounded")
	}
	return nil
}

// Instance is the handle for a running temporary server process.
type Instance struct {
	config *Config
	cmd    *exec.Cmd
}

// New creates a temporary-server handle from validated configuration.
func New(config *Config) (*Instance, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instance config: %w", err)
	}
	return &Instance{config: config}, nil
}

// Start spawns the server with networking disabled, leaving only local socket
// access. Records the process handle for later termination.
func (i *Instance) Start() error {
	if i.cmd != nil {
		return fmt.Errorf("temporary server already started")
	}

	args := []string{
		"--skip-networking",
		"--datadir=" + i.config.DataDir,
		"--socket=" + i.config.Socket,
	}
	if i.config.RunAsUser != "" {
		args = append(args, "--user="+i.config.RunAsUser)
	}

	cmd := exec.Command(i.config.ServerBinary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start temporary server: %w", err)
	}
	i.cmd = cmd

	logging.Info("Temporary server started (pid %d, networking disabled)", cmd.Process.Pid)
	return nil
}

// WaitReady polls the server with a trivial query over the local socket until
// it accepts a connection or the attempt budget runs out. Returns
// ErrStartupTimeout when the budget is exhausted.
func (i *Instance) WaitReady(ctx context.Context, client *mysql.Client) error {
	err := i.config.ReadyPolicy.Do(func() error {
		return client.Exec(ctx, "SELECT 1;")
	})
	if err != nil {
		if errors.Is(err, retry.ErrBudgetExhausted) {
			return fmt.Errorf("%w: %v", ErrStartupTimeout, err)
		}
		return err
	}
	logging.Info("Temporary server is accepting connections")
	return nil
}

// Stop terminates the temporary server and waits for it to exit. Safe to call
// when the server was never started and safe to call more than once; the
// bootstrap sequence defers it unconditionally so the process is released on
// every exit path.
func (i *Instance) Stop() error {
	if i.cmd == nil || i.cmd.Process == nil {
		return nil
	}
	cmd := i.cmd
	i.cmd = nil

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal temporary server: %w", err)
	}
	if err := cmd.Wait(); err != nil {
		// Dying to our own SIGTERM is the expected shutdown path.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			logging.Debug("Temporary server exited: %v", exitErr)
			return nil
		}
		return fmt.Errorf("failed to wait for temporary server: %w", err)
	}
	logging.Info("Temporary server stopped")
	return nil
}
