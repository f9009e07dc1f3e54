// Package main implements the container entrypoint for the database server.
//
// The entrypoint prepares node configuration, performs first-boot
// initialization of an empty data directory, bootstraps administrative and
// application accounts, and can configure primary/replica replication against
// a primary found through an external discovery service. Invoked with an
// unrecognized command it replaces its own process image with that command,
// acting as a plain exec wrapper.
package main

import (
	"os"

	"github.com/dbfleet/mysql-entrypoint/cmd/entrypoint/commands"
	"github.com/dbfleet/mysql-entrypoint/internal/logging"
)

func main() {
	// The passthrough escape hatch bypasses everything, including config
	// initialization: an operator exec'ing `ls -la` gets exactly that.
	if op, argv := commands.Classify(os.Args[1:]); op == commands.OpExec {
		if err := commands.ExecPassthrough(argv); err != nil {
			logging.Error("%v", err)
			os.Exit(1)
		}
		return
	}

	if err := commands.RootCmd.Execute(); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}
