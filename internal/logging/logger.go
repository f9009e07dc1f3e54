// Package logging provides structured, colorful logging for the database
// entrypoint, ensuring consistent log formatting across configuration
// rendering, first-boot bootstrap, and replication setup.
//
// Implements a unified logging interface over charmbracelet/log with
// color-coded levels and RFC3339 timestamps. INFO and SUCCESS messages go to
// stdout, WARN/ERROR/DEBUG to stderr, following Unix conventions. Output can
// be redirected for tests or log files, and the minimum level is configurable
// at startup.
//
// The package also implements Disclose, a special-purpose printer for the
// one-time disclosure of a generated root password. Disclosure must survive
// any log-level filtering because the password cannot be recovered later.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	// Logger for INFO/SUCCESS messages (stdout by default)
	stdoutLogger = log.NewWithOptions(os.Stdout, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})

	// Logger for WARN/ERROR/DEBUG messages (stderr by default)
	stderrLogger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})

	// Track the current stdout destination so Success and Disclose follow
	// any redirection applied through SetOutput.
	currentStdoutOutput io.Writer = os.Stdout
)

// setupCustomStyles configures the color scheme for log levels. Colors are
// chosen to stay readable in both light and dark terminals.
func setupCustomStyles() *log.Styles {
	styles := log.DefaultStyles()

	// DEBUG: light purple
	styles.Levels[log.DebugLevel] = lipgloss.NewStyle().
		SetString("DEBUG").
		Foreground(lipgloss.Color("#7F6DFF"))

	// INFO: light blue
	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("INFO").
		Foreground(lipgloss.Color("#42E7FF"))

	// WARN: light yellow
	styles.Levels[log.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN").
		Foreground(lipgloss.Color("#FFE763"))

	// ERROR: light red/pink
	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Foreground(lipgloss.Color("#FF4473"))

	return styles
}

func init() {
	styles := setupCustomStyles()
	stdoutLogger.SetStyles(styles)
	stderrLogger.SetStyles(styles)
}

// Info logs informational messages for entrypoint progress and status updates.
func Info(format string, v ...any) {
	stdoutLogger.Info(fmt.Sprintf(format, v...))
}

// Warn logs warning messages for non-critical issues, such as skipped
// init-directory files with unrecognized extensions.
func Warn(format string, v ...any) {
	stderrLogger.Warn(fmt.Sprintf(format, v...))
}

// Error logs error messages for fatal bootstrap and provisioning failures.
func Error(format string, v ...any) {
	stderrLogger.Error(fmt.Sprintf(format, v...))
}

// Debug logs detailed debugging information for troubleshooting startup.
func Debug(format string, v ...any) {
	stderrLogger.Debug(fmt.Sprintf(format, v...))
}

// Success logs successful operations in green using INFO level with custom
// styling. Respects INFO level filtering.
func Success(format string, v ...any) {
	if stdoutLogger.GetLevel() > log.InfoLevel {
		return
	}

	styles := setupCustomStyles()
	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("SUCCESS").
		Foreground(lipgloss.Color("#60F281")) // light green

	tempLogger := log.NewWithOptions(currentStdoutOutput, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	tempLogger.SetStyles(styles)
	tempLogger.Info(fmt.Sprintf(format, v...))
}

// Disclose prints an operator-facing secret disclosure that bypasses level
// filtering. Used exactly once for a generated root password, which cannot be
// recovered after bootstrap completes.
func Disclose(format string, v ...any) {
	fmt.Fprintf(currentStdoutOutput, format+"\n", v...)
}

// SetLevel configures the minimum logging level across both output streams.
// Accepts DEBUG, INFO, WARN, or ERROR; anything else falls back to INFO.
func SetLevel(level string) {
	var logLevel log.Level
	switch level {
	case "DEBUG":
		logLevel = log.DebugLevel
	case "INFO":
		logLevel = log.InfoLevel
	case "WARN":
		logLevel = log.WarnLevel
	case "ERROR":
		logLevel = log.ErrorLevel
	default:
		logLevel = log.InfoLevel
	}
	stdoutLogger.SetLevel(logLevel)
	stderrLogger.SetLevel(logLevel)
}

// SetOutput redirects all logging to a single writer. Used by tests and when
// the entrypoint's output is captured into a container log file.
func SetOutput(w io.Writer) {
	currentStdoutOutput = w
	stdoutLogger.SetOutput(w)
	stderrLogger.SetOutput(w)
}
