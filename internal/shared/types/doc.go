// Package types provides shared data structures for the tabvault engine.
//
// This package defines the persisted entity set and the closed command
// union used across all engine components.
//
// Entities:
//   - Workspace, WorkspaceGroup: user-defined tab collections and folders
//   - Tab, TabGroup: mirrored browser tabs and groups (active or archived)
//   - WorkspaceSnapshot, SnapshotTab, SnapshotTabGroup: immutable checkpoints
//
// Commands:
//   - Command: sealed union of presentation-layer requests
//   - Result: standard success/failure envelope returned by every command
//
// Identity rules:
//   - External ids (Tab.ExtID, TabGroup.ExtID) are volatile; the browser
//     reuses and invalidates them. They are never used as long-lived keys.
//   - Stable ids (tab_*, grp_* ULIDs) are minted once and never change;
//     group membership and snapshot linkage reference stable ids only.
package types
