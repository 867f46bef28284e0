// Package service assembles the dashboard: the backend API client, the
// views and the route table serving them.
package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/okian/bizdash/internal/adapters/http/client"
	"github.com/okian/bizdash/internal/adapters/http/site"
	"github.com/okian/bizdash/internal/adapters/http/swagger"
	"github.com/okian/bizdash/internal/adapters/http/views"
	"github.com/okian/bizdash/internal/adapters/http/web"
	"github.com/okian/bizdash/internal/domain/model"
	"github.com/okian/bizdash/internal/router"
	"github.com/okian/bizdash/pkg/logger"
	"github.com/okian/bizdash/pkg/metrics"
)

// Service owns the dashboard components.
type Service struct {
	mu sync.RWMutex

	// Core components
	api   *client.Client
	views *views.Views
	table *router.Table

	// Configuration
	baseURL    string
	timeout    time.Duration
	pageSize   int
	httpClient *http.Client
	metrics    *metrics.Manager

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithAPIBaseURL sets the backend API root.
func WithAPIBaseURL(u string) Option {
	return func(s *Service) {
		if u != "" {
			s.baseURL = u
		}
	}
}

// WithAPITimeout sets the backend request timeout.
func WithAPITimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithPageSize sets the default page size of list views.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 && n <= model.MaxPageSize {
			s.pageSize = n
		}
	}
}

// WithHTTPClient sets the HTTP client used for backend calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Service) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// WithMetrics sets the metrics manager shared by all components.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		baseURL:  client.DefaultBaseURL,
		timeout:  client.DefaultTimeout,
		pageSize: model.DefaultPageSize,
		logger:   nil, // Will be replaced when service starts
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the client, views and route table. Views load on first visit.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.metrics == nil {
		s.metrics = metrics.Default()
	}

	s.logger.Info(ctx, "starting dashboard service...")

	clientOpts := []client.Option{
		client.WithBaseURL(s.baseURL),
		client.WithTimeout(s.timeout),
		client.WithLogger(s.logger.Named("client")),
		client.WithMetrics(s.metrics),
	}
	if s.httpClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(s.httpClient))
	}
	s.api = client.New(clientOpts...)
	s.views = views.New(s.api,
		views.WithPageSize(s.pageSize),
		views.WithLogger(s.logger.Named("views")),
		views.WithMetrics(s.metrics),
	)
	s.table = router.New(s.views.Routes(),
		router.WithLogger(s.logger.Named("router")),
		router.WithMetrics(s.metrics),
	)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "dashboard service started",
		logger.String("apiBaseURL", s.api.BaseURL()),
		logger.String("apiTimeout", s.api.Timeout().String()),
		logger.Int("routes", len(s.table.Routes())),
		logger.Int("pageSize", s.pageSize),
	)
	return nil
}

// Stop marks the service stopped. Loaded views are dropped with the table.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping dashboard service...")
	s.started = false
	s.table = nil
	s.views = nil
	s.api = nil
	s.logger.Info(context.Background(), "dashboard service stopped")
}

// Register attaches the dashboard routes, static assets and the OpenAPI
// document to mux. Start must have been called.
func (s *Service) Register(ctx context.Context, mux *http.ServeMux) {
	s.mu.RLock()
	table := s.table
	log := s.logger
	m := s.metrics
	s.mu.RUnlock()
	if table == nil {
		panic("service not started")
	}

	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
	web.NewServer(table, s, log.Named("http"), m).Register(ctx, mux)
}

// Client returns the backend API client, or nil before Start.
func (s *Service) Client() *client.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.api
}

// Table returns the route table, or nil before Start.
func (s *Service) Table() *router.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"apiBaseURL": s.baseURL,
		"pageSize":   s.pageSize,
	}

	if s.started {
		routes := len(s.table.Routes())
		loaded := s.table.Loaded()
		uptime := time.Since(s.startedAt)

		stats["routes"] = routes
		stats["viewsLoaded"] = loaded
		stats["uptimeSeconds"] = int64(uptime.Seconds())

		s.metrics.UpdateServiceGauges(routes, loaded, uptime)
	}

	return stats
}
