package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Sync listener metrics
	EventsApplied *prometheus.CounterVec
	EventsDropped *prometheus.CounterVec

	// Reconciler metrics
	ReconcileRuns        prometheus.Counter
	ReconcileDuration    prometheus.Histogram
	ReconcileCorrections *prometheus.CounterVec

	// Workspace metrics
	WorkspaceSwitches prometheus.Counter
	TabsMaterialized  prometheus.Counter
	TabsSkipped       prometheus.Counter

	// Snapshot metrics
	SnapshotsCreated  *prometheus.CounterVec
	SnapshotsPruned   prometheus.Counter
	SnapshotsRestored *prometheus.CounterVec

	// Bridge metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector with its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabvault_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tabvault_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		EventsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabvault_sync_events_applied_total",
				Help: "Browser lifecycle events applied to the store",
			},
			[]string{"event"},
		),
		EventsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabvault_sync_events_dropped_total",
				Help: "Browser lifecycle events dropped (missing row, dashboard)",
			},
			[]string{"event", "reason"},
		),

		ReconcileRuns: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tabvault_reconcile_runs_total",
				Help: "Completed reconciliation passes",
			},
		),
		ReconcileDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tabvault_reconcile_duration_seconds",
				Help:    "Reconciliation pass duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .5, 1, 5},
			},
		),
		ReconcileCorrections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabvault_reconcile_corrections_total",
				Help: "Drift corrections by kind",
			},
			[]string{"kind"},
		),

		WorkspaceSwitches: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tabvault_workspace_switches_total",
				Help: "Completed workspace activations",
			},
		),
		TabsMaterialized: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tabvault_tabs_materialized_total",
				Help: "Tabs recreated during workspace switches and restores",
			},
		),
		TabsSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tabvault_tabs_skipped_total",
				Help: "Tabs skipped after per-item creation failures",
			},
		),

		SnapshotsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabvault_snapshots_created_total",
				Help: "Snapshots created, by reason",
			},
			[]string{"reason"},
		),
		SnapshotsPruned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tabvault_snapshots_pruned_total",
				Help: "Snapshots deleted by retention",
			},
		),
		SnapshotsRestored: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabvault_snapshots_restored_total",
				Help: "Snapshots restored, by mode",
			},
			[]string{"mode"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tabvault_ws_connections",
				Help: "Connected extension hosts",
			},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tabvault_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}
}

// Registry exposes the instance registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	if m == nil {
		return
	}
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
