package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/bizdash/internal/config"
	"github.com/okian/bizdash/internal/probe"
)

const defaultProbeTimeout = 5 * time.Minute

func main() {
	// Flag defaults come from the shared configuration (file and BIZDASH_ env).
	cfg, err := config.Load(context.Background())
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	var (
		baseURL  = flag.String("url", cfg.APIBaseURL, "Backend API root")
		timeout  = flag.Duration("timeout", cfg.APITimeout(), "Per-request timeout")
		workers  = flag.Int("workers", cfg.ProbeWorkers, "Number of concurrent calls")
		device   = flag.String("device", "", "Device to probe (default: first listed device)")
		resultID = flag.Int64("result", 0, "Result id to probe (default: first listed result)")
		alarmID  = flag.Int64("alarm", 0, "Alarm id to probe (default: first listed alarm)")
		watch    = flag.Bool("watch", false, "Stream the device after the checks until interrupted")
		logFile  = flag.String("log", "", "Log file for probe output (default: probe_log_TIMESTAMP.log)")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp(os.Stdout)
		return
	}

	logPath, err := probe.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Watching runs until interrupted; plain probes are bounded.
	if !*watch {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultProbeTimeout)
		defer cancel()
	}

	probeConfig := &probe.Config{
		BaseURL:  *baseURL,
		Timeout:  *timeout,
		Workers:  *workers,
		Device:   *device,
		ResultID: *resultID,
		AlarmID:  *alarmID,
		Watch:    *watch,
		LogFile:  logPath,
		Verbose:  *verbose,
	}

	if _, err := probe.Run(ctx, probeConfig); err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
