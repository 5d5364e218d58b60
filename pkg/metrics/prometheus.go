// Package metrics provides Prometheus metrics for the guidance engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager manages all Prometheus metrics for the guidance engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Monitor loop
	monitorTicks        prometheus.Counter
	monitorTickErrors   prometheus.Counter
	monitorTicksSkipped prometheus.Counter
	recommendationSwaps prometheus.Counter
	assistedSessions    prometheus.Gauge

	// Ranking
	rankComputations prometheus.Counter
	rankLatency      prometheus.Histogram
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter

	// Notification bus
	eventsPublished   *prometheus.CounterVec
	deliveriesDropped prometheus.Counter
	liveChannels      prometheus.Gauge

	// Achievements
	achievementsUnlocked prometheus.Counter

	// Content generator
	generatorLatency prometheus.Histogram
	generatorErrors  prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "academy",
		subsystem:        "guidance",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.monitorTicks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "monitor_ticks_total",
		Help:      "Total number of monitor loop recomputation ticks",
	})

	m.monitorTickErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "monitor_tick_errors_total",
		Help:      "Total number of monitor ticks that failed and were skipped",
	})

	m.monitorTicksSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "monitor_ticks_skipped_total",
		Help:      "Total number of ticks skipped because the previous tick was still in flight",
	})

	m.recommendationSwaps = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recommendation_swaps_total",
		Help:      "Total number of times a recomputed recommendation replaced the stored one",
	})

	m.assistedSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "assisted_sessions",
		Help:      "Current number of sessions in assisted mode with a live monitor loop",
	})

	m.rankComputations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rank_computations_total",
		Help:      "Total number of ranking computations performed (cache misses)",
	})

	m.rankLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rank_latency_milliseconds",
		Help:      "Histogram of ranking computation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_cache_hits_total",
		Help:      "Total number of ranking cache hits",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_cache_misses_total",
		Help:      "Total number of ranking cache misses (absent or expired)",
	})

	m.eventsPublished = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_published_total",
			Help:      "Total number of notification events published, by event type",
		},
		[]string{"type"},
	)

	m.deliveriesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "deliveries_dropped_total",
		Help:      "Total number of per-channel deliveries that failed and were dropped",
	})

	m.liveChannels = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "live_channels",
		Help:      "Current number of live delivery channels registered on the bus",
	})

	m.achievementsUnlocked = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "achievements_unlocked_total",
		Help:      "Total number of achievements newly unlocked",
	})

	m.generatorLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "generator_latency_milliseconds",
		Help:      "Histogram of content generator call latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.generatorErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "generator_errors_total",
		Help:      "Total number of content generator failures",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Current allocated heap memory in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Current number of goroutines",
	})
}

// Registry returns the registry backing the global manager, for exposition.
func Registry() *prometheus.Registry { return customRegistry }

// Package-level recording helpers against the global manager.

func RecordMonitorTick()        { globalManager.monitorTicks.Inc() }
func RecordMonitorTickError()   { globalManager.monitorTickErrors.Inc() }
func RecordMonitorTickSkipped() { globalManager.monitorTicksSkipped.Inc() }
func RecordRecommendationSwap() { globalManager.recommendationSwaps.Inc() }

func UpdateAssistedSessions(n int) { globalManager.assistedSessions.Set(float64(n)) }

func RecordRankComputation(elapsed time.Duration) {
	globalManager.rankComputations.Inc()
	globalManager.rankLatency.Observe(float64(elapsed.Milliseconds()))
}
func RecordCacheHit()  { globalManager.cacheHits.Inc() }
func RecordCacheMiss() { globalManager.cacheMisses.Inc() }

func RecordEventPublished(eventType string) {
	globalManager.eventsPublished.WithLabelValues(eventType).Inc()
}
func RecordDeliveryDropped()    { globalManager.deliveriesDropped.Inc() }
func UpdateLiveChannels(n int)  { globalManager.liveChannels.Set(float64(n)) }
func RecordAchievementUnlock()  { globalManager.achievementsUnlocked.Inc() }

func RecordGeneratorCall(elapsed time.Duration) {
	globalManager.generatorLatency.Observe(float64(elapsed.Milliseconds()))
}
func RecordGeneratorError() { globalManager.generatorErrors.Inc() }

func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }
func UpdateSystemGoroutineCount(n int)     { globalManager.systemGoroutineCount.Set(float64(n)) }

// RecordHTTPRequest records one HTTP request with its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, elapsed time.Duration) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).
		Observe(float64(elapsed.Milliseconds()))
}
