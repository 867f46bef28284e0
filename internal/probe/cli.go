package probe

import (
	"io"
	"os"
	"time"

	"github.com/okian/bizdash/pkg/logger"
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) (string, error) {
	if logFile == "" {
		logFile = "probe_log_" + time.Now().Format("20060102_150405") + ".log"
	}
	if err := logger.InitWithOptions(logger.WithOutput(os.Stdout), logger.WithFile(logFile, 0, 0)); err != nil {
		return "", err
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return logFile, nil
}

// ShowHelp prints usage information for the probe tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `BIZ API Probe
=============

Calls every endpoint of the dashboard backend and reports status, latency and size.

Usage:
  go run ./cmd/api-probe [options]

Options:
  -url string
        Backend API root (default "http://localhost:8000/api")
  -timeout duration
        Per-request timeout (default 30s)
  -workers int
        Number of concurrent calls (default 4)
  -device string
        Device to probe (default: first listed device)
  -result int
        Result id to probe (default: first listed result)
  -alarm int
        Alarm id to probe (default: first listed alarm)
  -watch
        Stream the device's live values after the checks until interrupted
  -log string
        Log file for probe output (default: probe_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Probe a local backend
  go run ./cmd/api-probe

  # Probe one device and keep watching it
  go run ./cmd/api-probe -url http://plant:8000/api -device "OP10 Press" -watch
`)
}
