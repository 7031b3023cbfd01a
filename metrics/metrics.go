// Package metrics holds the Prometheus instrumentation of the pipeline.
//
// All methods are safe on a nil *Metrics, so components can be built
// without instrumentation in tests.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the counters and histograms of one registry.
type Metrics struct {
	EmbeddingFallbacksTotal    prometheus.Counter
	RetrievalStrategyHitsTotal *prometheus.CounterVec
	RecordsIndexedTotal        prometheus.Counter
	PipelineRunsTotal          *prometheus.CounterVec
	StageDuration              *prometheus.HistogramVec
}

// Default returns the metrics registered with the default Prometheus
// registry. Registration happens once per process.
func Default() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = New(prometheus.DefaultRegisterer)
	})
	return globalMetrics
}

// New registers a fresh set of metrics with reg.
//
// Metrics:
//   - embedding_fallbacks_total - batches embedded by the local model after a remote failure
//   - retrieval_strategy_hits_total{strategy} - winning retrieval strategy per query
//   - indexed_records_total - records upserted into the vector store
//   - pipeline_runs_total{outcome} - pipeline runs by outcome (ok or the failing stage)
//   - pipeline_stage_duration_seconds{stage} - stage latency
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EmbeddingFallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "embedding_fallbacks_total",
			Help: "Total number of embedding batches served by the local fallback model",
		}),
		RetrievalStrategyHitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "retrieval_strategy_hits_total",
			Help: "Total number of retrievals won by each strategy",
		}, []string{"strategy"}),
		RecordsIndexedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "indexed_records_total",
			Help: "Total number of records upserted into the vector store",
		}),
		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		}, []string{"outcome"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
	}
}

// EmbeddingFallback counts one batch served by the local model.
func (m *Metrics) EmbeddingFallback() {
	if m == nil {
		return
	}
	m.EmbeddingFallbacksTotal.Inc()
}

// StrategyHit counts a retrieval won by strategy.
func (m *Metrics) StrategyHit(strategy string) {
	if m == nil {
		return
	}
	m.RetrievalStrategyHitsTotal.WithLabelValues(strategy).Inc()
}

// RecordsIndexed adds n upserted records.
func (m *Metrics) RecordsIndexed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsIndexedTotal.Add(float64(n))
}

// PipelineRun counts a finished run. outcome is "ok" or the failing stage.
func (m *Metrics) PipelineRun(outcome string) {
	if m == nil {
		return
	}
	m.PipelineRunsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
