package types

import "time"

// UnassignedWorkspaceID is the synthetic workspace that owns tabs the user
// never assigned anywhere. It is seeded at store open and never deleted.
const UnassignedWorkspaceID int64 = -1

// Workspace is a named, user-switchable collection of tabs and groups.
// Exactly one workspace is active at a time; the unassigned pseudo-workspace
// is exempt from that invariant.
type Workspace struct {
	ID               int64      `gorm:"primaryKey" json:"id"`
	Name             string     `gorm:"not null" json:"name"`
	GroupID          *int64     `gorm:"index" json:"group_id,omitempty"`
	Active           bool       `gorm:"not null;default:false;index" json:"active"`
	CreatedAt        time.Time  `gorm:"type:datetime" json:"created_at"`
	LastOpened       *time.Time `gorm:"type:datetime" json:"last_opened,omitempty"`
	ResourceGroupIDs []string   `gorm:"serializer:json" json:"resource_group_ids"`
}

// WorkspaceGroup is an optional folder for workspaces.
type WorkspaceGroup struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"not null" json:"name"`
	Collapsed bool   `gorm:"not null;default:false" json:"collapsed"`
}
