package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != "8090" {
		t.Errorf("port = %s, want 8090", cfg.Server.Port)
	}
	if cfg.Sync.ReconcileInterval != 5*time.Minute {
		t.Errorf("reconcile interval = %v, want 5m", cfg.Sync.ReconcileInterval)
	}
	if cfg.Snapshot.RetainCount != 50 {
		t.Errorf("retain count = %d, want 50", cfg.Snapshot.RetainCount)
	}
	if cfg.Archive.MaxAge != 720*time.Hour {
		t.Errorf("archive max age = %v, want 720h", cfg.Archive.MaxAge)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("RECONCILE_INTERVAL", "30s")
	t.Setenv("SNAPSHOT_RETAIN_COUNT", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("port = %s, want 9999", cfg.Server.Port)
	}
	if cfg.Sync.ReconcileInterval != 30*time.Second {
		t.Errorf("reconcile interval = %v, want 30s", cfg.Sync.ReconcileInterval)
	}
	if cfg.Snapshot.RetainCount != 5 {
		t.Errorf("retain count = %d, want 5", cfg.Snapshot.RetainCount)
	}
}
