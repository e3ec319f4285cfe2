package types

import "time"

// SnapshotReason records what triggered a snapshot.
type SnapshotReason string

const (
	ReasonManual   SnapshotReason = "manual"
	ReasonInterval SnapshotReason = "interval"
)

// RestoreMode selects how a snapshot is applied.
type RestoreMode string

const (
	// RestoreAppend opens every snapshot tab as a background tab in the
	// current foreground window. Non-destructive, no group reconstruction.
	RestoreAppend RestoreMode = "append"
	// RestoreReplace closes current tabs and rebuilds the snapshot's
	// window/group structure.
	RestoreReplace RestoreMode = "replace"
)

// WorkspaceSnapshot is an immutable checkpoint of one workspace's active
// tab/group set. Child rows reference stable ids and snapshot-local window
// indices only, so a snapshot stays valid after the browser's identifiers
// are reused or invalidated.
type WorkspaceSnapshot struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	WorkspaceID int64          `gorm:"index" json:"workspace_id"`
	CreatedAt   time.Time      `gorm:"type:datetime;index" json:"created_at"`
	Reason      SnapshotReason `gorm:"not null" json:"reason"`
}

// SnapshotTab is a frozen tab row. WindowIndex is 0-based and snapshot-local,
// not the live window id.
type SnapshotTab struct {
	ID            int64   `gorm:"primaryKey;autoIncrement" json:"-"`
	SnapshotID    string  `gorm:"index;not null" json:"snapshot_id"`
	WindowIndex   int     `json:"window_index"`
	Index         int     `gorm:"column:tab_index" json:"index"`
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	Pinned        bool    `gorm:"not null;default:false" json:"pinned"`
	GroupStableID *string `json:"group_stable_id,omitempty"`
}

// SnapshotTabGroup is a frozen group row.
type SnapshotTabGroup struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	SnapshotID  string `gorm:"index;not null" json:"snapshot_id"`
	StableID    string `gorm:"not null" json:"stable_id"`
	WindowIndex int    `json:"window_index"`
	Title       string `json:"title"`
	Color       string `json:"color"`
	Collapsed   bool   `gorm:"not null;default:false" json:"collapsed"`
}
