package replicate

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRunsTotal     *prometheus.CounterVec
	phaseDuration     *prometheus.HistogramVec
	entitiesTotal     *prometheus.CounterVec
	secretsTotal      *prometheus.CounterVec
	lastSyncTimestamp prometheus.Gauge

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered bool
)

// Metrics records replication outcomes for Prometheus scraping. Safe
// to use before InitMetrics has run; recording is a no-op until then.
type Metrics struct{}

// NewMetrics creates a Metrics instance. Registration is lazy.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// InitMetrics registers all Prometheus metrics. Called once at startup
// when the metrics server is enabled (monitor mode).
func InitMetrics() {
	metricsOnce.Do(func() {
		syncRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baorepl_sync_runs_total",
				Help: "Total number of replication runs",
			},
			[]string{"result"},
		)

		phaseDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "baorepl_phase_duration_seconds",
				Help:    "Duration of replication phases in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 30, 120, 600},
			},
			[]string{"phase"},
		)

		entitiesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baorepl_entities_total",
				Help: "Administrative entities processed, by category and result",
			},
			[]string{"category", "result"},
		)

		secretsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baorepl_secrets_copied_total",
				Help: "Secret leaves copied to the secondary, by result",
			},
			[]string{"result"},
		)

		lastSyncTimestamp = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "baorepl_last_successful_sync_timestamp_seconds",
				Help: "Unix timestamp of the last fully successful replication run",
			},
		)

		metricsRegistered = true
	})
}

// RecordRun records the outcome of one full replication run.
func (m *Metrics) RecordRun(success bool) {
	if !metricsRegistered || syncRunsTotal == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
		if lastSyncTimestamp != nil {
			lastSyncTimestamp.SetToCurrentTime()
		}
	}
	syncRunsTotal.WithLabelValues(result).Inc()
}

// RecordPhase records the duration of one phase.
func (m *Metrics) RecordPhase(phase Phase, duration time.Duration) {
	if !metricsRegistered || phaseDuration == nil {
		return
	}
	phaseDuration.WithLabelValues(string(phase)).Observe(duration.Seconds())
}

// RecordEntities records processed/failed counts for one category.
func (m *Metrics) RecordEntities(cat Category, result CategoryResult) {
	if !metricsRegistered || entitiesTotal == nil {
		return
	}
	succeeded := result.Processed - result.Failed
	if succeeded > 0 {
		entitiesTotal.WithLabelValues(string(cat), "success").Add(float64(succeeded))
	}
	if result.Failed > 0 {
		entitiesTotal.WithLabelValues(string(cat), "failure").Add(float64(result.Failed))
	}
}

// RecordSecrets records copied/failed leaf counts.
func (m *Metrics) RecordSecrets(copied, failed int) {
	if !metricsRegistered || secretsTotal == nil {
		return
	}
	if copied > 0 {
		secretsTotal.WithLabelValues("success").Add(float64(copied))
	}
	if failed > 0 {
		secretsTotal.WithLabelValues("failure").Add(float64(failed))
	}
}
