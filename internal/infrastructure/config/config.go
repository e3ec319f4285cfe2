package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all engine configuration.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Sync     SyncConfig
	Snapshot SnapshotConfig
	Archive  ArchiveConfig
	Logging  LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// StoreConfig holds local store configuration.
type StoreConfig struct {
	Path string `envconfig:"STORE_PATH" default:"tabvault.db"`
}

// SyncConfig holds sync and reconciliation configuration.
type SyncConfig struct {
	// ReconcileInterval is the period of the drift-correcting full resync.
	ReconcileInterval time.Duration `envconfig:"RECONCILE_INTERVAL" default:"5m"`
	// DashboardURLPrefix marks tabs belonging to the engine's own dashboard
	// surface; they are never mirrored.
	DashboardURLPrefix string `envconfig:"DASHBOARD_URL_PREFIX" default:"chrome-extension://"`
}

// SnapshotConfig holds snapshot gating and retention configuration.
type SnapshotConfig struct {
	// Interval is the minimum time between interval snapshots of one workspace.
	Interval time.Duration `envconfig:"SNAPSHOT_INTERVAL" default:"5m"`
	// RetainCount keeps the newest N snapshots per workspace.
	RetainCount int `envconfig:"SNAPSHOT_RETAIN_COUNT" default:"50"`
	// MaxAge deletes snapshots older than this horizon; 0 means unlimited.
	MaxAge time.Duration `envconfig:"SNAPSHOT_MAX_AGE" default:"0"`
}

// ArchiveConfig holds archived-row pruning configuration.
type ArchiveConfig struct {
	PruneInterval time.Duration `envconfig:"ARCHIVE_PRUNE_INTERVAL" default:"24h"`
	// MaxAge deletes archived tab/group rows not touched for this long;
	// 0 means unlimited.
	MaxAge time.Duration `envconfig:"ARCHIVE_MAX_AGE" default:"720h"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8090",
			Host: "0.0.0.0",
		},
		Store: StoreConfig{
			Path: "tabvault.db",
		},
		Sync: SyncConfig{
			ReconcileInterval:  5 * time.Minute,
			DashboardURLPrefix: "chrome-extension://",
		},
		Snapshot: SnapshotConfig{
			Interval:    5 * time.Minute,
			RetainCount: 50,
			MaxAge:      0,
		},
		Archive: ArchiveConfig{
			PruneInterval: 24 * time.Hour,
			MaxAge:        720 * time.Hour,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
