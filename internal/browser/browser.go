package browser

import (
	"context"
	"errors"
	"strings"
)

// ErrNotConnected is returned when no extension host is attached.
var ErrNotConnected = errors.New("browser: extension host not connected")

// NoGroup is the browser's sentinel for "tab belongs to no group".
const NoGroup int64 = -1

// Tab is a live tab as the browser reports it. Its ID is volatile: the
// browser may reassign it on cross-window moves and always on recreation.
type Tab struct {
	ID       int64  `json:"id"`
	WindowID int64  `json:"window_id"`
	Index    int    `json:"index"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Pinned   bool   `json:"pinned"`
	GroupID  int64  `json:"group_id"` // NoGroup when ungrouped
}

// Group is a live tab group as the browser reports it.
type Group struct {
	ID        int64  `json:"id"`
	WindowID  int64  `json:"window_id"`
	Title     string `json:"title"`
	Color     string `json:"color"`
	Collapsed bool   `json:"collapsed"`
}

// CreateTab describes a tab to open.
type CreateTab struct {
	WindowID int64  `json:"window_id"`
	URL      string `json:"url"`
	Pinned   bool   `json:"pinned"`
	Active   bool   `json:"active"` // foreground vs background
}

// GroupUpdate carries the mutable group attributes.
type GroupUpdate struct {
	Title     string `json:"title"`
	Color     string `json:"color"`
	Collapsed bool   `json:"collapsed"`
}

// Controller drives the browser. Every call is a suspension point: it blocks
// on the extension host and may fail per-item (the tab or window can vanish
// between the engine's decision and the browser executing it).
type Controller interface {
	// QueryTabs returns every open tab across all windows.
	QueryTabs(ctx context.Context) ([]Tab, error)
	// QueryGroups returns every tab group across all windows.
	QueryGroups(ctx context.Context) ([]Group, error)
	// CreateWindow opens an empty window and returns its id.
	CreateWindow(ctx context.Context) (int64, error)
	// CurrentWindow returns the focused window's id.
	CurrentWindow(ctx context.Context) (int64, error)
	// DashboardWindow returns the window hosting the dashboard surface,
	// if one exists.
	DashboardWindow(ctx context.Context) (int64, bool, error)
	// CreateTabIn opens a tab and returns the browser's view of it.
	CreateTabIn(ctx context.Context, opts CreateTab) (Tab, error)
	// CloseTab closes a tab by external id.
	CloseTab(ctx context.Context, tabID int64) error
	// MoveTab places a tab at index within a window.
	MoveTab(ctx context.Context, tabID, windowID int64, index int) error
	// GroupTabs groups tabs within one window, returning the new group id.
	GroupTabs(ctx context.Context, windowID int64, tabIDs []int64) (int64, error)
	// UngroupTabs removes tabs from whatever groups they are in.
	UngroupTabs(ctx context.Context, tabIDs []int64) error
	// UpdateGroup applies title/color/collapsed to a group.
	UpdateGroup(ctx context.Context, groupID int64, upd GroupUpdate) error
}

// Bookmarker is the external resource-bookmarking collaborator. It is
// best-effort and outside the consistency protocol.
type Bookmarker interface {
	// SaveTabGroup persists a titled set of URLs and returns the id of the
	// created resource group.
	SaveTabGroup(ctx context.Context, title string, urls []string) (string, error)
}

// IsDashboardURL reports whether a URL belongs to the engine's own dashboard
// surface, which is never mirrored as a business entity.
func IsDashboardURL(url, dashboardPrefix string) bool {
	return dashboardPrefix != "" && strings.HasPrefix(url, dashboardPrefix)
}
