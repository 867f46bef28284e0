package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/bizdash/internal/adapters/http/web"
	app "github.com/okian/bizdash/internal/app"
	"github.com/okian/bizdash/internal/config"
	"github.com/okian/bizdash/pkg/logger"
	"github.com/okian/bizdash/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := initLogging(cfg); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "dashboard stopped with error", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// initLogging configures the global logger from cfg.
func initLogging(cfg *config.Config) error {
	var opts []logger.Option
	if strings.EqualFold(cfg.LogFormat, "json") {
		opts = append(opts, logger.WithJSON())
	}
	if cfg.LogFile != "" {
		opts = append(opts, logger.WithFile(cfg.LogFile, 0, 0))
	}
	if err := logger.InitWithOptions(opts...); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

// run serves the dashboard until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	loggerInstance := logger.Get()

	// Each run records on its own registry, served at /healthz.
	mgr := metrics.NewManager(
		metrics.WithPrometheusRegistry(prometheus.NewRegistry()),
		metrics.WithRefreshInterval(cfg.MetricsRefresh()),
	)

	svc := app.New(
		app.WithLogger(loggerInstance),
		app.WithMetrics(mgr),
		app.WithAPIBaseURL(cfg.APIBaseURL),
		app.WithAPITimeout(cfg.APITimeout()),
		app.WithPageSize(cfg.PageSize),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx, mgr)
	go startServiceMetricsUpdater(ctx, svc, mgr.RefreshInterval())

	srv := newServer(ctx, cfg, svc)

	errCh := make(chan error, 1)
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%w: %w", web.ErrServe, err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}

	loggerInstance.Info(ctx, "server stopped")
	return nil
}

// newServer builds the HTTP server with all dashboard routes registered.
// The write timeout leaves room for one backend call at the configured timeout.
func newServer(ctx context.Context, cfg *config.Config, svc *app.Service) *http.Server {
	mux := http.NewServeMux()
	svc.Register(ctx, mux)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      cfg.APITimeout() + readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater updates system metrics on m every refresh interval.
func startSystemMetricsUpdater(ctx context.Context, m *metrics.Manager) {
	ticker := time.NewTicker(m.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics(m)
		}
	}
}

// startServiceMetricsUpdater refreshes route and view gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats updates the service gauges as a side effect.
			_ = svc.GetStats()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics(m *metrics.Manager) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	m.UpdateSystemMemoryUsage(mem.Alloc)

	m.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if mem.NumGC > 0 {
		avgPauseMs := float64(mem.PauseTotalNs) / float64(mem.NumGC) / nanosecondsPerMillisecond
		m.RecordGCPause(avgPauseMs)
	}
}
