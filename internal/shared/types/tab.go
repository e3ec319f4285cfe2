package types

import "time"

// Status discriminates live rows from rows retained for restoration.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Tab is a mirrored browser tab. StableID is the primary key; the external
// id is volatile (archived rows keep the external id they last had, which
// the browser may reuse for an unrelated live tab).
type Tab struct {
	StableID      string    `gorm:"primaryKey" json:"stable_id"`
	ExtID         int64     `gorm:"column:ext_id;index" json:"id"`
	WindowID      int64     `gorm:"index" json:"window_id"`
	WorkspaceID   int64     `gorm:"index" json:"workspace_id"`
	Index         int       `gorm:"column:tab_index" json:"index"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Pinned        bool      `gorm:"not null;default:false" json:"pinned"`
	GroupID       *int64    `json:"group_id,omitempty"`
	GroupStableID *string   `gorm:"index" json:"group_stable_id,omitempty"`
	TabStatus     Status    `gorm:"not null;default:active;index" json:"tab_status"`
	CreatedAt     time.Time `gorm:"type:datetime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"type:datetime" json:"updated_at"`
}

// TableName keeps the historical table name; the table holds both active
// and archived rows, discriminated by tab_status.
func (Tab) TableName() string { return "active_tabs" }

// TabGroup is a mirrored browser tab group.
type TabGroup struct {
	StableID    string    `gorm:"primaryKey" json:"stable_id"`
	ExtID       int64     `gorm:"column:ext_id;index" json:"id"`
	WindowID    int64     `gorm:"index" json:"window_id"`
	WorkspaceID int64     `gorm:"index" json:"workspace_id"`
	Title       string    `json:"title"`
	Color       string    `json:"color"`
	Collapsed   bool      `gorm:"not null;default:false" json:"collapsed"`
	GroupStatus Status    `gorm:"not null;default:active;index" json:"group_status"`
	CreatedAt   time.Time `gorm:"type:datetime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"type:datetime" json:"updated_at"`
}

func (TabGroup) TableName() string { return "tab_groups" }
