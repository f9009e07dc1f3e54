// Package daemon orchestrates the entrypoint's sequences.
//
// Two sequences exist. The default one renders node configuration, runs the
// first-boot bootstrap when the data directory holds no schema yet, and then
// replaces this process with the long-running database server. The replica
// one renders configuration, blocks until the discovery catalog reports a
// healthy primary, and binds this node to it from the last recorded binlog
// position.
//
// Steps run in strict dependency order with no internal parallelism; any
// fatal failure propagates to process exit with a non-zero status. The
// credential-strategy policy is enforced only when the data directory is
// empty, before anything is mutated.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/dbfleet/mysql-entrypoint/cmd/entrypoint/config"
	"github.com/dbfleet/mysql-entrypoint/internal/bootstrap"
	"github.com/dbfleet/mysql-entrypoint/internal/discovery"
	"github.com/dbfleet/mysql-entrypoint/internal/instance"
	"github.com/dbfleet/mysql-entrypoint/internal/logging"
	"github.com/dbfleet/mysql-entrypoint/internal/mycnf"
	"github.com/dbfleet/mysql-entrypoint/internal/mysql"
	"github.com/dbfleet/mysql-entrypoint/internal/replication"
)

// Run executes the default sequence: render configuration, bootstrap the data
// directory if this is the first boot, then hand control to the server
// process with the passthrough flags. Only returns on failure.
func Run(serverArgs []string) error {
	node, err := renderConfig()
	if err != nil {
		return err
	}
	logging.Info("Node configured: server-id=%d report-host=%s buffer-pool=%s",
		node.ServerID, node.ReportHost, node.BufferPoolSize)

	if bootstrap.NeedsBootstrap(config.Global.DataDir) {
		// Refuse to touch an empty data directory without an explicit
		// credential strategy.
		if err := config.ValidateCredentials(); err != nil {
			return err
		}
		if err := runBootstrap(); err != nil {
			return err
		}
	} else {
		logging.Info("Data directory already holds a schema, skipping bootstrap")
	}

	return execServer(serverArgs)
}

// RunReplica executes the replica sequence: render configuration, wait for a
// primary to appear in the discovery catalog, then point this node at it.
func RunReplica() error {
	if _, err := renderConfig(); err != nil {
		return err
	}
	cfg := config.Global

	if cfg.DiscoveryAddr == "" {
		return fmt.Errorf("replica setup requires DISCOVERY_SERVICE to be set")
	}

	ctx := context.Background()
	catalog := discovery.New("http://" + cfg.DiscoveryAddr)
	primary, err := catalog.WaitForPrimary(ctx, cfg.ServiceName)
	if err != nil {
		return err
	}

	logFile, logPos, err := replication.ReadStatus(cfg.MasterStatusFile)
	if err != nil {
		return err
	}

	client := mysql.New(cfg.ClientBinary, cfg.Socket)
	client.UsePassword(cfg.RootPassword)

	ptr := replication.Pointer{
		PrimaryHost: primary,
		LogFile:     logFile,
		LogPosition: logPos,
	}
	creds := replication.Credentials{
		User:     cfg.ReplUser,
		Password: cfg.ReplPassword,
	}
	return replication.Configure(ctx, client, ptr, creds)
}

// renderConfig derives the node configuration from host facts and rewrites
// the config artifact. Runs on every invocation so the artifact tracks host
// and resource changes.
func renderConfig() (*mycnf.NodeConfig, error) {
	renderer := &mycnf.Renderer{
		Path:               config.Global.ConfigFile,
		DataDir:            config.Global.DataDir,
		BufferPoolOverride: config.Global.BufferPoolSize,
	}
	return renderer.Render()
}

// runBootstrap assembles and runs the first-boot engine against the empty
// data directory.
func runBootstrap() error {
	cfg := config.Global

	client := mysql.New(cfg.ClientBinary, cfg.Socket)

	instConfig := instance.DefaultConfig()
	instConfig.ServerBinary = cfg.ServerBinary
	instConfig.DataDir = cfg.DataDir
	instConfig.Socket = cfg.Socket
	inst, err := instance.New(instConfig)
	if err != nil {
		return err
	}

	engine, err := bootstrap.New(buildBootstrapConfig(), client, inst)
	if err != nil {
		return err
	}
	return engine.Run(context.Background())
}

// buildBootstrapConfig converts entrypoint config to bootstrap config.
func buildBootstrapConfig() *bootstrap.Config {
	cfg := config.Global

	bootConfig := bootstrap.DefaultConfig()
	bootConfig.DataDir = cfg.DataDir
	bootConfig.ServerBinary = cfg.ServerBinary
	bootConfig.InitDir = cfg.InitDir

	bootConfig.RootPassword = cfg.RootPassword
	bootConfig.AllowEmptyPassword = cfg.AllowEmptyPassword
	bootConfig.RandomRootPassword = cfg.RandomRootPassword
	bootConfig.OnetimePassword = cfg.OnetimePassword
	bootConfig.Database = cfg.Database
	bootConfig.User = cfg.User
	bootConfig.Password = cfg.Password
	bootConfig.ReplUser = cfg.ReplUser
	bootConfig.ReplPassword = cfg.ReplPassword

	return bootConfig
}

// execServer replaces this process with the long-running server, passing
// every flag through untouched.
func execServer(serverArgs []string) error {
	path, err := exec.LookPath(config.Global.ServerBinary)
	if err != nil {
		return fmt.Errorf("cannot find server binary: %w", err)
	}
	argv := append([]string{config.Global.ServerBinary}, serverArgs...)

	logging.Info("Handing control to %s", path)
	return syscall.Exec(path, argv, os.Environ())
}
