// Package mysql wraps invocations of the command-line database client used
// for all administrative statements issued during bootstrap and replication
// setup.
//
// The entrypoint never speaks the wire protocol itself; every statement is
// piped into the client binary over the local socket. The Client type models
// the accumulated invocation prefix as explicit state: it starts in insecure
// bootstrap mode (no password), gains the root password credential once the
// root account has one, and gains a default schema once that schema exists.
// Each sub-step of bootstrap depends on the prefix left behind by the
// previous one, so the ordering of UsePassword and UseDatabase calls is part
// of the bootstrap contract.
package mysql

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// RunFunc executes an external command with the given stdin. Tests inject a
// recording implementation; production uses the os/exec-backed default.
type RunFunc func(ctx context.Context, name string, args []string, stdin io.Reader) error

// Client is the accumulated client-invocation context. Not safe for
// concurrent use; the entrypoint has a single thread of control.
type Client struct {
	Binary string  // Client binary name, e.g. "mysql"
	Socket string  // Unix socket path of the local server
	Run    RunFunc // Command runner; nil uses the exec-backed default

	args     []string
	password string
	database string
}

// New returns a client targeting the local server over its unix socket in
// insecure bootstrap mode: root with no password.
func New(binary, socket string) *Client {
	return &Client{
		Binary: binary,
		Socket: socket,
		args: []string{
			"--protocol=socket",
			"-uroot",
			"-hlocalhost",
			"--socket=" + socket,
		},
	}
}

// UsePassword adds the root password credential to every subsequent
// invocation. Must only be called after the root account actually has this
// password, otherwise the very next call locks the bootstrap out.
func (c *Client) UsePassword(password string) {
	if password == "" {
		return
	}
	c.password = password
	c.args = append(c.args, "-p"+password)
}

// UseDatabase selects a default schema for every subsequent invocation.
// Must only be called after the schema has been created.
func (c *Client) UseDatabase(database string) {
	if database == "" {
		return
	}
	c.database = database
	c.args = append(c.args, "--database="+database)
}

// Args returns a copy of the current invocation prefix.
func (c *Client) Args() []string {
	out := make([]string, len(c.args))
	copy(out, c.args)
	return out
}

// HasPassword reports whether the invocation prefix carries a password.
func (c *Client) HasPassword() bool {
	return c.password != ""
}

// Exec pipes a statement batch into the client.
func (c *Client) Exec(ctx context.Context, sql string) error {
	return c.ExecReader(ctx, strings.NewReader(sql))
}

// ExecReader pipes arbitrary SQL text into the client, used for init-directory
// query files that can be too large to hold in memory.
func (c *Client) ExecReader(ctx context.Context, sql io.Reader) error {
	return c.run(ctx, c.Binary, c.Args(), sql)
}

// ExecReaderDB pipes SQL text into the client with a one-off target schema,
// without mutating the accumulated invocation prefix. Used for the timezone
// reference load, which targets the system schema before any application
// schema exists.
func (c *Client) ExecReaderDB(ctx context.Context, database string, sql io.Reader) error {
	args := append(c.Args(), "--database="+database)
	return c.run(ctx, c.Binary, args, sql)
}

func (c *Client) run(ctx context.Context, name string, args []string, stdin io.Reader) error {
	runner := c.Run
	if runner == nil {
		runner = execRun
	}
	return runner(ctx, name, args, stdin)
}

// execRun is the production RunFunc. Client output is forwarded to the
// entrypoint's own streams so diagnostics surface in container logs.
func execRun(ctx context.Context, name string, args []string, stdin io.Reader) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
