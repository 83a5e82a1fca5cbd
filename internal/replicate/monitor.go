package replicate

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/systmms/baorepl/internal/logging"
)

// MonitorConfig holds configuration for the continuous sync monitor.
type MonitorConfig struct {
	// Interval is how long to wait between successful runs.
	// Default: 5 minutes
	Interval time.Duration

	// RetryDelay is how long to wait after a run that had errors.
	// Default: 30 seconds
	RetryDelay time.Duration
}

// DefaultMonitorConfig returns the default monitor configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:   5 * time.Minute,
		RetryDelay: 30 * time.Second,
	}
}

// Monitor runs full synchronizations on a fixed interval until its
// context is cancelled. Runs never overlap: the next run is scheduled
// only after the previous one returns.
type Monitor struct {
	sync   *Synchronizer
	config MonitorConfig
	logger *logging.Logger
}

// NewMonitor creates a monitor driving the given synchronizer.
func NewMonitor(sync *Synchronizer, config MonitorConfig, logger *logging.Logger) *Monitor {
	if config.Interval <= 0 {
		config.Interval = DefaultMonitorConfig().Interval
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultMonitorConfig().RetryDelay
	}
	return &Monitor{sync: sync, config: config, logger: logger}
}

// Run performs an immediate synchronization and then keeps running on
// the configured interval. A run that aborted or had failures is
// retried after the shorter RetryDelay. Returns ctx.Err() once the
// context is cancelled; an in-flight run completes first.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("Starting continuous replication (interval: %s)", m.config.Interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Monitor stopping")
			return ctx.Err()
		case <-timer.C:
		}

		result := m.sync.Run(ctx)
		if ctx.Err() != nil {
			m.logger.Info("Monitor stopping")
			return ctx.Err()
		}

		delay := m.config.Interval
		if !result.OverallSuccess() {
			delay = m.config.RetryDelay
			m.logger.Warn("Run had errors, retrying in %s", delay)
		} else {
			m.logger.Info("Next synchronization in %s", delay)
		}
		timer.Reset(delay)
	}
}

// MetricsServerConfig holds configuration for the metrics HTTP server.
type MetricsServerConfig struct {
	// Enabled indicates whether the metrics server should run.
	Enabled bool

	// Port is the port to listen on.
	Port int

	// Path is the path to serve metrics on.
	Path string

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
}

// DefaultMetricsServerConfig returns the default metrics server configuration.
func DefaultMetricsServerConfig() MetricsServerConfig {
	return MetricsServerConfig{
		Enabled:      false,
		Port:         9090,
		Path:         "/metrics",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// MetricsServer provides an HTTP server exposing Prometheus metrics
// alongside a plain health endpoint for liveness probes.
type MetricsServer struct {
	config MetricsServerConfig
	logger *logging.Logger
	server *http.Server
}

// NewMetricsServer creates a new metrics server.
func NewMetricsServer(config MetricsServerConfig, logger *logging.Logger) *MetricsServer {
	return &MetricsServer{
		config: config,
		logger: logger,
	}
}

// Start starts the metrics HTTP server in the background.
func (s *MetricsServer) Start() error {
	if !s.config.Enabled {
		return nil
	}

	InitMetrics()

	mux := http.NewServeMux()
	mux.Handle(s.config.Path, promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      mux,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Metrics server listening on %s", s.server.Addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Metrics are non-critical; log and keep replicating.
			s.logger.Warn("Metrics server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the metrics server.
func (s *MetricsServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Addr returns the server address.
func (s *MetricsServer) Addr() string {
	if s.server == nil {
		return ""
	}
	return s.server.Addr
}
