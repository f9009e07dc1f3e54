// Package commands implements the CLI surface of the database entrypoint.
//
// The root command runs the default init+serve sequence. Flag parsing is
// disabled on the root so server flags like --max-connections=200 pass
// through to the database server completely untouched. Named subcommands
// cover replication setup and the operational hooks; unrecognized commands
// never reach cobra (main execs them directly).
package commands

import (
	"github.com/spf13/cobra"

	"github.com/dbfleet/mysql-entrypoint/cmd/entrypoint/config"
	"github.com/dbfleet/mysql-entrypoint/cmd/entrypoint/daemon"
	"github.com/dbfleet/mysql-entrypoint/internal/logging"
	"github.com/dbfleet/mysql-entrypoint/internal/version"
)

// RootCmd is the entrypoint's root command: the default init+serve sequence.
var RootCmd = &cobra.Command{
	Use:   "entrypoint [server-flags... | command [args...]]",
	Short: "Container entrypoint for the database server",
	Long: `The entrypoint prepares node configuration, performs first-boot
initialization of an empty data directory, bootstraps administrative and
application accounts, and hands control to the long-running server process.

Invoked with flags, they are passed through to the server untouched. Invoked
with an unrecognized command, that command replaces the entrypoint process
and no database logic runs.`,
	Version: version.EntrypointVersion,
	// Server flags are opaque to the entrypoint; never parse them.
	DisableFlagParsing: true,
	SilenceUsage:       true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.InitializeConfig()
		logging.SetLevel(config.Global.LogLevel)
		return config.ValidateConfig()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return daemon.Run(args)
	},
}

var replicaCmd = &cobra.Command{
	Use:   "replica",
	Short: "Configure this node as a replica of a discovered primary",
	Long: `Blocks until the discovery service reports a healthy primary, reads the
last-known binlog position from the local status record, and issues the
change-master directive binding this node to that primary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return daemon.RunReplica()
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Liveness probe (not yet implemented)",
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Warn("health: not yet implemented")
		return nil
	},
}

var onChangeCmd = &cobra.Command{
	Use:     "onChange",
	Aliases: []string{"on-change"},
	Short:   "Change-notification hook (not yet implemented)",
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Warn("onChange: not yet implemented")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(replicaCmd)
	RootCmd.AddCommand(healthCmd)
	RootCmd.AddCommand(onChangeCmd)
}
