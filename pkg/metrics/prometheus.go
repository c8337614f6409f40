// Package metrics provides Prometheus metrics for the motion-duel service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  *prometheus.Registry

	// Match lifecycle
	matchesCreated  prometheus.Counter
	matchesRejected prometheus.Counter
	matchesFinished *prometheus.CounterVec
	roundsSettled   prometheus.Counter

	// Settlement side effects
	pointsCredited    prometheus.Counter
	victoriesCredited prometheus.Counter
	bandsUnlinked     prometheus.Counter
	settlementErrors  prometheus.Counter

	// Collaborator health
	telemetryReads   prometheus.Counter
	telemetryErrors  prometheus.Counter
	telemetryLatency prometheus.Histogram
	captureCommands  *prometheus.CounterVec
	captureFailures  *prometheus.CounterVec

	// Display + freeplay
	displayClients    prometheus.Gauge
	freeplaySessions  prometheus.Counter

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager()
}

// NewManager creates a metrics manager with its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "motionduel",
		subsystem: "game",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initialize()
	return m
}

func (m *Manager) initialize() {
	factory := promauto.With(m.registry)

	m.matchesCreated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "matches_created_total",
		Help: "Number of matches created.",
	})
	m.matchesRejected = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "matches_rejected_total",
		Help: "Match creations rejected because one was already in progress.",
	})
	m.matchesFinished = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "matches_finished_total",
		Help: "Number of matches settled, labeled by outcome.",
	}, []string{"winner"})
	m.roundsSettled = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "rounds_settled_total",
		Help: "Number of rounds closed out with a final score.",
	})

	m.pointsCredited = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "points_credited_total",
		Help: "Total points credited to the ledger.",
	})
	m.victoriesCredited = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "victories_credited_total",
		Help: "Victories credited to winners.",
	})
	m.bandsUnlinked = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "bands_unlinked_total",
		Help: "Wristbands released at settlement.",
	})
	m.settlementErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "settlement_errors_total",
		Help: "Best-effort settlement steps that failed.",
	})

	m.telemetryReads = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "telemetry_reads_total",
		Help: "Score readouts requested from the wristband API.",
	})
	m.telemetryErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "telemetry_errors_total",
		Help: "Failed score readouts.",
	})
	m.telemetryLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "telemetry_latency_ms",
		Help:    "Latency of score readouts in milliseconds.",
		Buckets: m.buckets,
	})
	m.captureCommands = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "capture_commands_total",
		Help: "Capture start/stop commands sent to wristbands.",
	}, []string{"action"})
	m.captureFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "capture_failures_total",
		Help: "Capture commands that failed, labeled by action.",
	}, []string{"action"})

	m.displayClients = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "display_clients",
		Help: "Connected display websocket clients.",
	})
	m.freeplaySessions = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "freeplay_sessions_total",
		Help: "Ad-hoc capture sessions started.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint and status.",
	}, []string{"endpoint", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds by endpoint.",
		Buckets: m.buckets,
	}, []string{"endpoint"})
}

// Handler returns the HTTP handler exposing this manager's registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package-level helpers against the global manager.

func Handler() http.Handler { return globalManager.Handler() }

func RecordMatchCreated()  { globalManager.matchesCreated.Inc() }
func RecordMatchRejected() { globalManager.matchesRejected.Inc() }
func RecordMatchFinished(winner string) {
	globalManager.matchesFinished.WithLabelValues(winner).Inc()
}
func RecordRoundSettled() { globalManager.roundsSettled.Inc() }

func AddPointsCredited(amount int) {
	if amount >= 0 {
		globalManager.pointsCredited.Add(float64(amount))
	}
}
func RecordVictoryCredited() { globalManager.victoriesCredited.Inc() }
func RecordBandUnlinked()    { globalManager.bandsUnlinked.Inc() }
func RecordSettlementError() { globalManager.settlementErrors.Inc() }

func RecordTelemetryRead()                  { globalManager.telemetryReads.Inc() }
func RecordTelemetryError()                 { globalManager.telemetryErrors.Inc() }
func ObserveTelemetryLatency(ms float64)    { globalManager.telemetryLatency.Observe(ms) }
func RecordCaptureCommand(action string)    { globalManager.captureCommands.WithLabelValues(action).Inc() }
func RecordCaptureFailure(action string)    { globalManager.captureFailures.WithLabelValues(action).Inc() }

func IncDisplayClients()      { globalManager.displayClients.Inc() }
func DecDisplayClients()      { globalManager.displayClients.Dec() }
func RecordFreeplaySession()  { globalManager.freeplaySessions.Inc() }

func RecordHTTPRequest(endpoint, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, status).Inc()
}
func ObserveHTTPDuration(endpoint string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint).Observe(ms)
}
