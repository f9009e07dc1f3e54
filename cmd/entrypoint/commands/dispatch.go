// Package commands implements the CLI surface of the database entrypoint.
//
// This file implements invocation classification: the first argument selects
// one of a closed set of operations rather than being looked up dynamically.
// Flags (or no arguments at all) mean "run the default init+serve sequence
// with these server flags"; the named subcommands run their own sequences;
// and anything else is an escape hatch — the process image is replaced by the
// named executable, bypassing all database logic.
package commands

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// Operation is one of the entrypoint's closed set of invocation modes.
type Operation int

const (
	OpServe    Operation = iota // Default init+serve sequence, args are server flags
	OpReplica                   // Replication setup against a discovered primary
	OpHealth                    // Liveness probe (not yet implemented)
	OpOnChange                  // Change-notification hook (not yet implemented)
	OpExec                      // Replace the process image with an arbitrary command
)

// Classify maps an invocation's arguments to an operation and the arguments
// that operation consumes.
//
//   - no arguments: the default sequence with no extra server flags
//   - first argument starts with "-": the default sequence, every argument
//     passed through to the server untouched
//   - a known operation name: that operation
//   - anything else: passthrough exec of the named command
func Classify(args []string) (Operation, []string) {
	if len(args) == 0 {
		return OpServe, nil
	}
	if strings.HasPrefix(args[0], "-") {
		return OpServe, args
	}
	switch args[0] {
	case "replica":
		return OpReplica, args[1:]
	case "health":
		return OpHealth, args[1:]
	case "onChange", "on-change":
		return OpOnChange, args[1:]
	}
	return OpExec, args
}

// ExecPassthrough replaces the current process image with the given command,
// inheriting the environment. Only returns on failure to exec; on success
// this process ceases to exist and no database logic ever runs.
func ExecPassthrough(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("no command to exec")
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("cannot exec %q: %w", argv[0], err)
	}
	return syscall.Exec(path, argv, os.Environ())
}
