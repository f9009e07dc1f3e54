// Package bootstrap drives the first-boot initialization of an empty data
// directory into a fully provisioned database instance.
//
// The sequence is strictly ordered, each step depending on the one before it:
// create the data directory, initialize an empty schema with no authentication
// (insecure bootstrap mode), start a temporary network-isolated server, wait
// for it to accept connections, load timezone reference data, provision the
// root account, create the optional application schema and user, create the
// optional replication account, run operator-supplied init files, and finally
// expire the root password when a one-time password was requested.
//
// The sequence runs exactly once per data directory: callers gate it on
// NeedsBootstrap, and a half-initialized directory left behind by a failure is
// an unrecoverable state requiring operator intervention, never auto-repaired.
// The temporary server is always terminated before Run returns, on success
// and on every error path.
package bootstrap

import (
	"compress/gzip"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dbfleet/mysql-entrypoint/internal/logging"
	"github.com/dbfleet/mysql-entrypoint/internal/mysql"
	"github.com/dbfleet/mysql-entrypoint/internal/validate"
)

// ErrProvisioning indicates an administrative statement or init file failed.
// Fatal: the temporary server is torn down and the process exits non-zero.
var ErrProvisioning = errors.New("provisioning failed")

// Instance is the lifecycle contract of the temporary bootstrap server.
// Satisfied by instance.Instance; tests substitute a fake.
type Instance interface {
	Start() error
	WaitReady(ctx context.Context, client *mysql.Client) error
	Stop() error
}

// OutputFunc runs an external command and captures its stdout. Used for the
// timezone reference dump, whose output is piped back into the client.
type OutputFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Config holds everything the bootstrap sequence needs: paths and binaries on
// one side, the account-provisioning surface from the environment on the
// other.
type Config struct {
	DataDir        string // Server data directory
	ServerBinary   string // Server binary used for schema initialization
	TimezoneBinary string // Timezone dump tool, e.g. "mysql_tzinfo_to_sql"
	ZoneInfoDir    string // Timezone source data, e.g. "/usr/share/zoneinfo"
	InitDir        string // Operator init-file directory; empty or missing is fine
	RunAsUser      string // System account owning the data directory

	RootPassword       string // Explicit root password
	AllowEmptyPassword bool   // Accept a root account with no password
	RandomRootPassword bool   // Generate and disclose a root password
	OnetimePassword    bool   // Expire the root password after bootstrap
	Database           string // Optional default application schema
	User               string // Optional default application user
	Password           string // Password for the application user
	ReplUser           string // Optional replication account
	ReplPassword       string // Password for the replication account

	// Command hooks, injectable for tests. Nil fields use os/exec.
	Run    mysql.RunFunc
	Output OutputFunc
}

// DefaultConfig returns the standard bootstrap tool configuration.
func DefaultConfig() *Config {
	return &Config{
		ServerBinary:   "mysqld",
		TimezoneBinary: "mysql_tzinfo_to_sql",
		ZoneInfoDir:    "/usr/share/zoneinfo",
		RunAsUser:      "mysql",
	}
}

// Validate checks the configuration before the sequence starts.
func (c *Config) Validate() error {
	if err := validate.ValidateRequiredString(c.DataDir, "data directory"); err != nil {
		return err
	}
	if err := validate.ValidateRequiredString(c.ServerBinary, "server binary"); err != nil {
		return err
	}
	return nil
}

// Engine runs the bootstrap sequence against a single data directory.
type Engine struct {
	config *Config
	client *mysql.Client
	inst   Instance
}

// New creates a bootstrap engine. The client must be in insecure bootstrap
// mode (no password); the engine upgrades its credentials as the sequence
// progresses.
func New(config *Config, client *mysql.Client, inst Instance) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bootstrap config: %w", err)
	}
	return &Engine{config: config, client: client, inst: inst}, nil
}

// NeedsBootstrap reports whether the data directory lacks a populated schema.
// The system schema directory is the marker: present means a previous
// bootstrap completed and the sequence must not run again.
func NeedsBootstrap(dataDir string) bool {
	info, err := os.Stat(filepath.Join(dataDir, "mysql"))
	return err != nil || !info.IsDir()
}

// Run executes the full first-boot sequence. The temporary server is released
// on every exit path; any failure propagates to the caller, which exits
// non-zero.
func (e *Engine) Run(ctx context.Context) (err error) {
	if err := e.ensureDataDir(); err != nil {
		return err
	}
	if err := e.initializeSchema(ctx); err != nil {
		return err
	}
	if err := e.inst.Start(); err != nil {
		return err
	}
	defer func() {
		if stopErr := e.inst.Stop(); stopErr != nil {
			logging.Error("Failed to stop temporary server: %v", stopErr)
			if err == nil {
				err = stopErr
			}
		}
	}()

	if err := e.inst.WaitReady(ctx, e.client); err != nil {
		return err
	}
	if err := e.loadTimezones(ctx); err != nil {
		return provisioningError("load timezone data", err)
	}
	if err := e.setupRootAccount(ctx); err != nil {
		return provisioningError("set up root account", err)
	}
	if err := e.createDatabase(ctx); err != nil {
		return provisioningError("create default schema", err)
	}
	if err := e.createUser(ctx); err != nil {
		return provisioningError("create default user", err)
	}
	if err := e.createReplicationAccount(ctx); err != nil {
		return provisioningError("create replication account", err)
	}
	if err := e.runInitFiles(ctx); err != nil {
		return err
	}
	if err := e.expireRootPassword(ctx); err != nil {
		return provisioningError("expire root password", err)
	}

	logging.Success("Database bootstrap complete")
	return nil
}

// ensureDataDir creates the data directory and hands ownership to the server
// account. Ownership changes are only enforced when running as root; in
// unprivileged environments the directory is already ours.
func (e *Engine) ensureDataDir() error {
	if err := os.MkdirAll(e.config.DataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", e.config.DataDir, err)
	}
	if e.config.RunAsUser == "" || os.Geteuid() != 0 {
		return nil
	}
	u, err := user.Lookup(e.config.RunAsUser)
	if err != nil {
		return fmt.Errorf("failed to look up server user %q: %w", e.config.RunAsUser, err)
	}
	uid, _ := strconv.Atoi(u.Uid)
	gid, _ := strconv.Atoi(u.Gid)
	if err := os.Chown(e.config.DataDir, uid, gid); err != nil {
		return fmt.Errorf("failed to chown data directory: %w", err)
	}
	return nil
}

// initializeSchema populates the system schema with authentication disabled.
// Nothing can connect yet; the temporary server started next is
// network-isolated, so the unauthenticated window never leaves the host.
func (e *Engine) initializeSchema(ctx context.Context) error {
	logging.Info("Initializing empty schema in %s", e.config.DataDir)
	args := []string{"--initialize-insecure", "--datadir=" + e.config.DataDir}
	if e.config.RunAsUser != "" {
		args = append(args, "--user="+e.config.RunAsUser)
	}
	if err := e.run(ctx, e.config.ServerBinary, args, nil); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	return nil
}

// loadTimezones pipes the timezone reference dump into the system schema.
func (e *Engine) loadTimezones(ctx context.Context) error {
	logging.Info("Loading timezone reference data from %s", e.config.ZoneInfoDir)
	out, err := e.output(ctx, e.config.TimezoneBinary, e.config.ZoneInfoDir)
	if err != nil {
		return fmt.Errorf("timezone dump failed: %w", err)
	}
	return e.client.ExecReaderDB(ctx, "mysql", strings.NewReader(string(out)))
}

// setupRootAccount removes every pre-existing account except the internal
// system account, creates root with the configured or a freshly generated
// password, grants full privileges, and drops the default test schema. A
// generated password is disclosed exactly once; it cannot be recovered later.
// From here on the client carries the password credential.
func (e *Engine) setupRootAccount(ctx context.Context) error {
	password := e.config.RootPassword
	if e.config.RandomRootPassword {
		generated, err := generatePassword()
		if err != nil {
			return err
		}
		password = generated
		logging.Disclose("GENERATED ROOT PASSWORD: %s", password)
	}

	var sql strings.Builder
	sql.WriteString("SET @@SESSION.SQL_LOG_BIN=0;\n")
	sql.WriteString("DELETE FROM mysql.user WHERE user NOT IN ('mysql.sys', 'root') OR host NOT IN ('localhost');\n")
	fmt.Fprintf(&sql, "CREATE USER 'root'@'%%' IDENTIFIED BY '%s';\n", password)
	sql.WriteString("GRANT ALL ON *.* TO 'root'@'%' WITH GRANT OPTION;\n")
	sql.WriteString("DROP DATABASE IF EXISTS test;\n")
	sql.WriteString("FLUSH PRIVILEGES;\n")

	if err := e.client.Exec(ctx, sql.String()); err != nil {
		return err
	}

	// Only now does the root account have this password; every further call
	// must authenticate with it.
	e.client.UsePassword(password)
	return nil
}

// createDatabase creates the default application schema when one is named and
// makes it the client's default for the remaining steps.
func (e *Engine) createDatabase(ctx context.Context) error {
	if e.config.Database == "" {
		return nil
	}
	logging.Info("Creating default schema %q", e.config.Database)
	stmt := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`;", e.config.Database)
	if err := e.client.Exec(ctx, stmt); err != nil {
		return err
	}
	e.client.UseDatabase(e.config.Database)
	return nil
}

// createUser provisions the default application user, scoped to the default
// schema when one exists. Requires both a username and a password.
func (e *Engine) createUser(ctx context.Context) error {
	if e.config.User == "" || e.config.Password == "" {
		return nil
	}
	logging.Info("Creating default user %q", e.config.User)

	var sql strings.Builder
	fmt.Fprintf(&sql, "CREATE USER '%s'@'%%' IDENTIFIED BY '%s';\n", e.config.User, e.config.Password)
	if e.config.Database != "" {
		fmt.Fprintf(&sql, "GRANT ALL ON `%s`.* TO '%s'@'%%';\n", e.config.Database, e.config.User)
	}
	sql.WriteString("FLUSH PRIVILEGES;\n")
	return e.client.Exec(ctx, sql.String())
}

// createReplicationAccount provisions the account replicas authenticate with.
// Requires both a username and a password.
func (e *Engine) createReplicationAccount(ctx context.Context) error {
	if e.config.ReplUser == "" || e.config.ReplPassword == "" {
		return nil
	}
	logging.Info("Creating replication account %q", e.config.ReplUser)

	var sql strings.Builder
	fmt.Fprintf(&sql, "CREATE USER IF NOT EXISTS '%s'@'%%' IDENTIFIED BY '%s';\n",
		e.config.ReplUser, e.config.ReplPassword)
	fmt.Fprintf(&sql, "GRANT REPLICATION SLAVE, REPLICATION CLIENT ON *.* TO '%s'@'%%';\n", e.config.ReplUser)
	sql.WriteString("FLUSH PRIVILEGES;\n")
	return e.client.Exec(ctx, sql.String())
}

// runInitFiles processes operator-supplied init files in lexical order,
// dispatching on extension: shell scripts run via /bin/sh, query files are
// piped to the client (gzipped ones decompressed on the fly), and anything
// else is skipped with a warning. The first failure aborts the sequence.
func (e *Engine) runInitFiles(ctx context.Context) error {
	if e.config.InitDir == "" {
		return nil
	}
	entries, err := os.ReadDir(e.config.InitDir)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Debug("Init directory %s does not exist, skipping", e.config.InitDir)
			return nil
		}
		return provisioningError("read init directory", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(e.config.InitDir, name)

		var runErr error
		switch {
		case strings.HasSuffix(name, ".sh"):
			logging.Info("Running init script %s", path)
			runErr = e.run(ctx, "/bin/sh", []string{path}, nil)
		case strings.HasSuffix(name, ".sql"):
			logging.Info("Running init queries %s", path)
			runErr = e.pipeFile(ctx, path, false)
		case strings.HasSuffix(name, ".sql.gz"):
			logging.Info("Running compressed init queries %s", path)
			runErr = e.pipeFile(ctx, path, true)
		default:
			logging.Warn("Ignoring init file %s (unrecognized extension)", path)
			continue
		}
		if runErr != nil {
			return provisioningError(fmt.Sprintf("init file %s", name), runErr)
		}
	}
	return nil
}

// pipeFile streams a query file into the client, decompressing when asked.
func (e *Engine) pipeFile(ctx context.Context, path string, gzipped bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var src io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gz.Close()
		src = gz
	}
	return e.client.ExecReader(ctx, src)
}

// expireRootPassword forces a credential reset on the next administrative
// login when a one-time password was requested.
func (e *Engine) expireRootPassword(ctx context.Context) error {
	if !e.config.OnetimePassword {
		return nil
	}
	logging.Info("Expiring root password (one-time password requested)")
	return e.client.Exec(ctx, "ALTER USER 'root'@'%' PASSWORD EXPIRE;")
}

func (e *Engine) run(ctx context.Context, name string, args []string, stdin io.Reader) error {
	if e.config.Run != nil {
		return e.config.Run(ctx, name, args, stdin)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (e *Engine) output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if e.config.Output != nil {
		return e.config.Output(ctx, name, args...)
	}
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// generatePassword creates a 32-character hex password from crypto/rand.
func generatePassword() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random password: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

func provisioningError(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrProvisioning, step, err)
}
