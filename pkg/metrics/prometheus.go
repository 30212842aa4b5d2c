// Package metrics provides Prometheus metrics for the sportsday station and relay.
package metrics

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SyncStates lists the remote sync states exported by the sync_state gauge.
var SyncStates = []string{"disabled", "idle", "pulling", "pushing"} //nolint:gochecknoglobals // fixed label set

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// State store
	stateLoads       *prometheus.CounterVec
	stateSaves       prometheus.Counter
	stateResets      prometheus.Counter
	stateSaveLatency prometheus.Histogram
	stateBytes       prometheus.Gauge

	// Change notification
	notificationsPublished prometheus.Counter
	notificationsDropped   prometheus.Counter
	subscribers            prometheus.Gauge
	wsConnections          prometheus.Gauge

	// Remote sync
	syncPulls         *prometheus.CounterVec
	syncPushes        *prometheus.CounterVec
	syncState         *prometheus.GaugeVec
	syncLatency       *prometheus.HistogramVec
	mergedLaneRecords *prometheus.CounterVec
	pushQueueDepth    prometheus.Gauge
	pushQueueDropped  prometheus.Counter
	relayWrites       *prometheus.CounterVec

	// Domain
	heatsBuilt     prometheus.Counter
	resultsEntered *prometheus.CounterVec
	rankingLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByType        *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var (
	globalManager  atomic.Pointer[Manager]             //nolint:gochecknoglobals // singleton metrics manager
	customRegistry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // metrics registry
)

func init() { //nolint:gochecknoinits // global metrics setup
	Configure()
}

// Configure replaces the global manager with one built from opts on a fresh
// custom registry, which avoids the default Go collectors. Call it at startup,
// before handlers capture GetRegistry.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	m := NewManager(append(append([]Option(nil), opts...), WithPrometheusRegistry(registry))...)
	customRegistry.Store(registry)
	globalManager.Store(m)
}

func manager() *Manager { return globalManager.Load() }

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sportsday",
		subsystem:        "station",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.stateLoads = m.counterVec("state_loads_total", "Document loads by result (stored, default, migrated, recovered)", "result")
	m.stateSaves = m.counter("state_saves_total", "Total number of document saves")
	m.stateResets = m.counter("state_resets_total", "Total number of document resets")
	m.stateSaveLatency = m.histogram("state_save_latency_milliseconds", "Document save latency in milliseconds")
	m.stateBytes = m.gauge("state_bytes", "Size of the last persisted document in bytes")

	m.notificationsPublished = m.counter("notifications_published_total", "Change notifications fanned out")
	m.notificationsDropped = m.counter("notifications_dropped_total", "Change notifications dropped for slow subscribers")
	m.subscribers = m.gauge("subscribers", "Current number of change notification subscribers")
	m.wsConnections = m.gauge("websocket_connections", "Current number of live view websocket connections")

	m.syncPulls = m.counterVec("sync_pulls_total", "Remote pulls by outcome", "outcome")
	m.syncPushes = m.counterVec("sync_pushes_total", "Remote pushes by outcome", "outcome")
	m.syncState = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "sync_state",
		Help: "Remote sync state machine (1 for the current state)", ConstLabels: m.constLabels,
	}, []string{"state"})
	m.syncLatency = m.histogramVec("sync_latency_milliseconds", "Remote sync round trip latency", "op")
	m.mergedLaneRecords = m.counterVec("merged_lane_records_total", "Lane result records resolved during push merge", "winner")
	m.pushQueueDepth = m.gauge("push_queue_depth", "Pending push jobs")
	m.pushQueueDropped = m.counter("push_queue_coalesced_total", "Push requests coalesced into an already pending push")
	m.relayWrites = m.counterVec("relay_writes_total", "Relay room writes by outcome", "outcome")

	m.heatsBuilt = m.counter("heats_built_total", "Heats produced by the heat builder")
	m.resultsEntered = m.counterVec("results_entered_total", "Lane results entered by status", "status")
	m.rankingLatency = m.histogramVec("ranking_latency_milliseconds", "Leaderboard computation latency", "board")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.errorsByType = m.counterVec("errors_total", "Errors by component and type", "component", "type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Current number of goroutines")

	for _, s := range SyncStates {
		m.syncState.WithLabelValues(s).Set(0)
	}
	m.syncState.WithLabelValues("disabled").Set(1)
}

// RecordStateLoad counts a document load by result.
func RecordStateLoad(result string) { manager().stateLoads.WithLabelValues(result).Inc() }

// RecordStateSave counts a save and observes its latency and size.
func RecordStateSave(latencyMs float64, size int) {
	manager().stateSaves.Inc()
	manager().stateSaveLatency.Observe(latencyMs)
	manager().stateBytes.Set(float64(size))
}

// RecordStateReset counts a reset.
func RecordStateReset() { manager().stateResets.Inc() }

// RecordNotificationPublished counts a fanned-out notification.
func RecordNotificationPublished() { manager().notificationsPublished.Inc() }

// RecordNotificationDropped counts a notification a subscriber could not accept.
func RecordNotificationDropped() { manager().notificationsDropped.Inc() }

// UpdateSubscribers sets the subscriber gauge.
func UpdateSubscribers(n int) { manager().subscribers.Set(float64(n)) }

// UpdateWebsocketConnections sets the websocket connection gauge.
func UpdateWebsocketConnections(n int) { manager().wsConnections.Set(float64(n)) }

// RecordSyncPull counts a pull by outcome.
func RecordSyncPull(outcome string) { manager().syncPulls.WithLabelValues(outcome).Inc() }

// RecordSyncPush counts a push by outcome.
func RecordSyncPush(outcome string) { manager().syncPushes.WithLabelValues(outcome).Inc() }

// RecordSyncLatency observes a remote round trip.
func RecordSyncLatency(op string, latencyMs float64) {
	manager().syncLatency.WithLabelValues(op).Observe(latencyMs)
}

// SetSyncState marks state as the current sync state.
func SetSyncState(state string) error {
	known := false
	for _, s := range SyncStates {
		if s == state {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownSyncState, state)
	}
	for _, s := range SyncStates {
		v := 0.0
		if s == state {
			v = 1
		}
		manager().syncState.WithLabelValues(s).Set(v)
	}
	return nil
}

// RecordMergedLaneRecords counts lane records won by local or remote during a merge.
func RecordMergedLaneRecords(winner string, n int) {
	manager().mergedLaneRecords.WithLabelValues(winner).Add(float64(n))
}

// UpdatePushQueueDepth sets the pending push gauge.
func UpdatePushQueueDepth(n int) { manager().pushQueueDepth.Set(float64(n)) }

// RecordPushCoalesced counts a push request absorbed by a pending one.
func RecordPushCoalesced() { manager().pushQueueDropped.Inc() }

// RecordRelayWrite counts a relay room write by outcome.
func RecordRelayWrite(outcome string) { manager().relayWrites.WithLabelValues(outcome).Inc() }

// RecordHeatsBuilt counts built heats.
func RecordHeatsBuilt(n int) { manager().heatsBuilt.Add(float64(n)) }

// RecordResultEntered counts a lane result entry.
func RecordResultEntered(status string) { manager().resultsEntered.WithLabelValues(status).Inc() }

// RecordRankingLatency observes a leaderboard computation.
func RecordRankingLatency(board string, latencyMs float64) {
	manager().rankingLatency.WithLabelValues(board).Observe(latencyMs)
}

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	manager().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	manager().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordError counts an error by component and type.
func RecordError(component, errorType string) {
	manager().errorsByType.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) { manager().systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) { manager().systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry.Load()
}
