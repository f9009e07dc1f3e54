// Package replication points this node at a discovered primary.
//
// The last-known binlog position is read from a status record persisted next
// to the data directory by an external producer. When no record exists the
// replica starts from the beginning of the primary's log. Configuration is a
// single change-master directive followed by starting the applier; this step
// is never retried — a failure here propagates to the caller.
package replication

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dbfleet/mysql-entrypoint/internal/logging"
	"github.com/dbfleet/mysql-entrypoint/internal/mysql"
)

// Fixed reconnect interval, in seconds, written into the directive.
const connectRetrySeconds = 30

// Pointer is a (file, offset) position in the primary's change log, plus the
// primary it belongs to.
type Pointer struct {
	PrimaryHost string
	LogFile     string
	LogPosition uint64
}

// Credentials is the replication account the replica authenticates with.
type Credentials struct {
	User     string
	Password string
}

// ReadStatus reads the last recorded binlog position from the status record.
// The record is a single line of the form "<logFile>\t<logPosition>". An
// absent or empty record means "start of log": empty file name, position 0.
// A malformed position is an error rather than a silent restart from zero.
func ReadStatus(path string) (logFile string, logPosition uint64, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("failed to read status record %s: %w", path, err)
	}

	line := strings.TrimSpace(strings.SplitN(string(data), "\n", 2)[0])
	if line == "" {
		return "", 0, nil
	}

	fields := strings.Fields(line)
	logFile = fields[0]
	if len(fields) > 1 {
		logPosition, err = strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return "", 0, fmt.Errorf("malformed log position %q in status record %s: %w", fields[1], path, err)
		}
	}
	return logFile, logPosition, nil
}

// Configure issues the change-master directive binding this node as a replica
// of the given primary and starts the applier. TLS is disabled and the
// reconnect interval is fixed; there are no retries of this step itself.
func Configure(ctx context.Context, client *mysql.Client, ptr Pointer, creds Credentials) error {
	logging.Info("Configuring replication from primary %s (log %q, position %d)",
		ptr.PrimaryHost, ptr.LogFile, ptr.LogPosition)

	var sql strings.Builder
	fmt.Fprintf(&sql, "CHANGE MASTER TO MASTER_HOST='%s', MASTER_USER='%s', MASTER_PASSWORD='%s', ",
		ptr.PrimaryHost, creds.User, creds.Password)
	fmt.Fprintf(&sql, "MASTER_LOG_FILE='%s', MASTER_LOG_POS=%d, ", ptr.LogFile, ptr.LogPosition)
	fmt.Fprintf(&sql, "MASTER_CONNECT_RETRY=%d, MASTER_SSL=0;\n", connectRetrySeconds)
	sql.WriteString("START SLAVE;\n")

	if err := client.Exec(ctx, sql.String()); err != nil {
		return fmt.Errorf("failed to configure replication against %s: %w", ptr.PrimaryHost, err)
	}

	logging.Success("Replication configured against primary %s", ptr.PrimaryHost)
	return nil
}
