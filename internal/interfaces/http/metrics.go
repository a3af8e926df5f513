package http

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sawpanic/coinscope/internal/application/scan"
	"github.com/sawpanic/coinscope/internal/data/cache"
	"github.com/sawpanic/coinscope/internal/providers"
	"github.com/sawpanic/coinscope/internal/score/composite"
)

// MetricsRegistry holds the Prometheus metrics for scans, providers and the
// API. It owns its registry so several instances can coexist in one process.
type MetricsRegistry struct {
	registry *prometheus.Registry

	// Pipeline
	StepDuration   *prometheus.HistogramVec
	PipelineErrors *prometheus.CounterVec
	ScanDuration   prometheus.Histogram
	TotalScans     prometheus.Counter
	LastScan       prometheus.Gauge

	// Results
	CoinsRanked  prometheus.Gauge
	AverageScore prometheus.Gauge
	Categories   *prometheus.GaugeVec

	// Upstreams
	ProviderErrors *prometheus.CounterVec
	CacheHitRatio  prometheus.Gauge

	// API
	Requests  *prometheus.CounterVec
	WSClients prometheus.Gauge
}

// NewMetricsRegistry creates and registers all coinscope metrics
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinscope_step_duration_seconds",
				Help:    "Duration of each scan step in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 180},
			},
			[]string{"step", "result"},
		),
		PipelineErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinscope_pipeline_errors_total",
				Help: "Scan step failures",
			},
			[]string{"step"},
		),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "coinscope_scan_duration_seconds",
			Help:    "End to end scan duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		TotalScans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coinscope_scans_total",
			Help: "Completed scans",
		}),
		LastScan: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coinscope_last_scan_timestamp_seconds",
			Help: "Unix time the latest scan finished",
		}),
		CoinsRanked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coinscope_coins_ranked",
			Help: "Coins ranked by the latest scan",
		}),
		AverageScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coinscope_average_score",
			Help: "Mean total score of the latest scan",
		}),
		Categories: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coinscope_category_coins",
				Help: "Coins per score category in the latest scan",
			},
			[]string{"category"},
		),
		ProviderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinscope_provider_errors_total",
				Help: "Upstream request failures by provider and kind",
			},
			[]string{"provider", "kind"},
		),
		CacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coinscope_cache_hit_ratio",
			Help: "Response cache hit ratio (0.0 to 1.0)",
		}),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinscope_http_requests_total",
				Help: "API requests by route and status code",
			},
			[]string{"route", "code"},
		),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coinscope_ws_clients",
			Help: "Connected websocket clients",
		}),
	}

	m.registry.MustRegister(
		m.StepDuration,
		m.PipelineErrors,
		m.ScanDuration,
		m.TotalScans,
		m.LastScan,
		m.CoinsRanked,
		m.AverageScore,
		m.Categories,
		m.ProviderErrors,
		m.CacheHitRatio,
		m.Requests,
		m.WSClients,
	)
	return m
}

// Registry exposes the underlying registry for gathering
func (m *MetricsRegistry) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStep records one scan step
func (m *MetricsRegistry) ObserveStep(step string, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
		m.PipelineErrors.WithLabelValues(step).Inc()
	}
	m.StepDuration.WithLabelValues(step, result).Observe(d.Seconds())
}

// ObserveScan records a completed scan and resets the result gauges
func (m *MetricsRegistry) ObserveScan(res *scan.Result, d time.Duration) {
	m.TotalScans.Inc()
	m.ScanDuration.Observe(d.Seconds())
	m.LastScan.Set(float64(res.FinishedAt.Unix()))
	m.CoinsRanked.Set(float64(len(res.Ranked)))
	m.AverageScore.Set(res.Stats.AverageScore)

	m.Categories.Reset()
	for _, c := range allCategories {
		m.Categories.WithLabelValues(string(c)).Set(float64(res.Stats.Categories[c]))
	}
}

// ProviderError counts a failed upstream request
func (m *MetricsRegistry) ProviderError(provider, kind string) {
	m.ProviderErrors.WithLabelValues(provider, kind).Inc()
}

// ObserveCache publishes the cache hit ratio
func (m *MetricsRegistry) ObserveCache(st cache.Stats) {
	m.CacheHitRatio.Set(st.HitRatio)
}

// Handler serves the registry in the Prometheus exposition format
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var allCategories = []composite.Category{
	composite.CategoryHot,
	composite.CategoryStrong,
	composite.CategoryPromising,
	composite.CategoryInteresting,
	composite.CategoryNeutral,
	composite.CategoryWeak,
}

var (
	_ scan.Recorder           = (*MetricsRegistry)(nil)
	_ providers.ErrorRecorder = (*MetricsRegistry)(nil)
)
