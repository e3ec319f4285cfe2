package monitoring

// Nil-safe increment helpers so domain packages can run without a collector
// wired (tests, tools).

// EventApplied records one applied lifecycle event.
func (m *Metrics) EventApplied(event string) {
	if m == nil {
		return
	}
	m.EventsApplied.WithLabelValues(event).Inc()
}

// EventDropped records one dropped lifecycle event.
func (m *Metrics) EventDropped(event, reason string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(event, reason).Inc()
}

// ReconcileRun records one completed pass and its duration in seconds.
func (m *Metrics) ReconcileRun(seconds float64) {
	if m == nil {
		return
	}
	m.ReconcileRuns.Inc()
	m.ReconcileDuration.Observe(seconds)
}

// Correction records reconciler drift corrections by kind.
func (m *Metrics) Correction(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.ReconcileCorrections.WithLabelValues(kind).Add(float64(n))
}

// WorkspaceSwitched records one completed activation.
func (m *Metrics) WorkspaceSwitched() {
	if m == nil {
		return
	}
	m.WorkspaceSwitches.Inc()
}

// TabMaterialized records one recreated tab.
func (m *Metrics) TabMaterialized() {
	if m == nil {
		return
	}
	m.TabsMaterialized.Inc()
}

// TabSkipped records one skipped tab.
func (m *Metrics) TabSkipped() {
	if m == nil {
		return
	}
	m.TabsSkipped.Inc()
}

// SnapshotCreated records one snapshot by reason.
func (m *Metrics) SnapshotCreated(reason string) {
	if m == nil {
		return
	}
	m.SnapshotsCreated.WithLabelValues(reason).Inc()
}

// SnapshotPruned records snapshots removed by retention.
func (m *Metrics) SnapshotPruned(n int) {
	if m == nil || n == 0 {
		return
	}
	m.SnapshotsPruned.Add(float64(n))
}

// SnapshotRestored records one restore by mode.
func (m *Metrics) SnapshotRestored(mode string) {
	if m == nil {
		return
	}
	m.SnapshotsRestored.WithLabelValues(mode).Inc()
}

// BridgeConnected adjusts the connection gauge.
func (m *Metrics) BridgeConnected(delta float64) {
	if m == nil {
		return
	}
	m.WSConnections.Add(delta)
}
