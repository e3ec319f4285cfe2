package monitoring

import "testing"

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	// Domain code runs without a collector in tests and tools; every helper
	// must tolerate the nil receiver.
	m.EventApplied("tab-created")
	m.EventDropped("tab-created", "dashboard")
	m.ReconcileRun(0.1)
	m.Correction("updated", 3)
	m.WorkspaceSwitched()
	m.TabMaterialized()
	m.TabSkipped()
	m.SnapshotCreated("manual")
	m.SnapshotPruned(2)
	m.SnapshotRestored("append")
	m.BridgeConnected(1)
}

func TestIndependentRegistries(t *testing.T) {
	// Two instances must not collide on collector registration.
	a := NewMetrics()
	b := NewMetrics()

	if a.Registry() == b.Registry() {
		t.Fatal("instances should own separate registries")
	}

	a.EventApplied("tab-created")
	b.EventApplied("tab-created")

	families, err := a.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) == 0 {
		t.Error("registry should expose collectors")
	}
}
