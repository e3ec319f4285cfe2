package snapshot

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tabvault/tabvault/internal/browser"
	"github.com/tabvault/tabvault/internal/infrastructure/logging"
	"github.com/tabvault/tabvault/internal/infrastructure/monitoring"
	"github.com/tabvault/tabvault/internal/shared/id"
	"github.com/tabvault/tabvault/internal/shared/types"
	"github.com/tabvault/tabvault/internal/store"
)

var (
	// ErrSnapshotNotFound is returned when the snapshot does not exist.
	ErrSnapshotNotFound = errors.New("snapshot: not found")
	// ErrNothingToSnapshot is returned when the workspace has no active rows.
	ErrNothingToSnapshot = errors.New("snapshot: workspace has no active tabs")
	// ErrWorkspaceMismatch is returned when restoring a snapshot of a
	// workspace that is not currently active. Cross-workspace restore would
	// corrupt the target's live state.
	ErrWorkspaceMismatch = errors.New("snapshot: snapshot belongs to a different workspace")
)

// ActiveWorkspace is the injected read accessor for the active workspace.
type ActiveWorkspace interface {
	ActiveWorkspaceID() (int64, error)
}

// Config tunes gating and retention.
type Config struct {
	// Interval is the minimum time between interval snapshots.
	Interval time.Duration
	// RetainCount keeps the newest N snapshots per workspace; <= 0 keeps all.
	RetainCount int
	// MaxAge deletes snapshots older than the horizon; 0 keeps all.
	MaxAge time.Duration
}

// Manager creates, prunes and restores workspace snapshots.
type Manager struct {
	store           *store.Store
	browser         browser.Controller
	active          ActiveWorkspace
	cfg             Config
	dashboardPrefix string
	log             *logging.Logger
	metrics         *monitoring.Metrics
}

// NewManager creates a snapshot manager.
func NewManager(st *store.Store, ctrl browser.Controller, active ActiveWorkspace, cfg Config, dashboardPrefix string, log *logging.Logger) *Manager {
	return &Manager{
		store:           st,
		browser:         ctrl,
		active:          active,
		cfg:             cfg,
		dashboardPrefix: dashboardPrefix,
		log:             log,
	}
}

// WithMetrics adds metrics tracking to the manager.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Create captures the workspace's active tab/group set in one transaction.
// Returns ErrNothingToSnapshot when the workspace has no active tabs outside
// the dashboard surface.
func (m *Manager) Create(wsID int64, reason types.SnapshotReason) (*types.WorkspaceSnapshot, error) {
	tabs, err := m.store.ActiveTabsByWorkspace(wsID)
	if err != nil {
		return nil, err
	}
	live := tabs[:0:0]
	for _, t := range tabs {
		if !browser.IsDashboardURL(t.URL, m.dashboardPrefix) {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		return nil, ErrNothingToSnapshot
	}

	groups, err := m.store.ActiveGroupsByWorkspace(wsID)
	if err != nil {
		return nil, err
	}

	// Windows are addressed positionally: sorted distinct live window ids
	// map to 0..k-1, so the snapshot survives window id churn.
	windowIndex := windowIndexMap(live)

	header := &types.WorkspaceSnapshot{
		ID:          string(id.NewSnapshotID()),
		WorkspaceID: wsID,
		CreatedAt:   time.Now().UTC(),
		Reason:      reason,
	}

	snapTabs := make([]types.SnapshotTab, 0, len(live))
	for _, t := range live {
		snapTabs = append(snapTabs, types.SnapshotTab{
			SnapshotID:    header.ID,
			WindowIndex:   windowIndex[t.WindowID],
			Index:         t.Index,
			URL:           t.URL,
			Title:         t.Title,
			Pinned:        t.Pinned,
			GroupStableID: t.GroupStableID,
		})
	}

	snapGroups := make([]types.SnapshotTabGroup, 0, len(groups))
	for _, g := range groups {
		wi, ok := windowIndex[g.WindowID]
		if !ok {
			continue // group without live members in a snapshotted window
		}
		snapGroups = append(snapGroups, types.SnapshotTabGroup{
			SnapshotID:  header.ID,
			StableID:    g.StableID,
			WindowIndex: wi,
			Title:       g.Title,
			Color:       g.Color,
			Collapsed:   g.Collapsed,
		})
	}

	if err := m.store.InsertSnapshot(header, snapTabs, snapGroups); err != nil {
		return nil, err
	}

	m.metrics.SnapshotCreated(string(reason))
	m.log.Info("Snapshot created",
		zap.String("snapshot_id", header.ID),
		zap.Int64("workspace_id", wsID),
		zap.String("reason", string(reason)),
		zap.Int("tabs", len(snapTabs)),
		zap.Int("groups", len(snapGroups)),
	)
	return header, nil
}

// Tick is the change-gated interval checkpoint: it snapshots the active
// workspace only when the minimum interval has elapsed AND something changed
// since the last snapshot, then applies retention.
func (m *Manager) Tick(ctx context.Context) error {
	wsID, err := m.active.ActiveWorkspaceID()
	if err != nil {
		return err
	}

	lastAt, err := m.store.LatestSnapshotAt(wsID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if lastAt != nil {
		if now.Sub(*lastAt) < m.cfg.Interval {
			return nil
		}
		activity, err := m.store.LastActivityAt(wsID)
		if err != nil {
			return err
		}
		if !activity.After(*lastAt) {
			return nil // no activity since the last checkpoint
		}
	}

	if _, err := m.Create(wsID, types.ReasonInterval); err != nil {
		if errors.Is(err, ErrNothingToSnapshot) {
			return nil
		}
		return err
	}
	return m.Prune(wsID)
}

// Prune applies count and age retention to one workspace.
func (m *Manager) Prune(wsID int64) error {
	removed, err := m.store.PruneSnapshots(wsID, m.cfg.RetainCount, m.cfg.MaxAge, time.Now().UTC())
	if err != nil {
		return err
	}
	if removed > 0 {
		m.metrics.SnapshotPruned(removed)
		m.log.Info("Snapshots pruned",
			zap.Int64("workspace_id", wsID),
			zap.Int("removed", removed),
		)
	}
	return nil
}

// List returns a workspace's snapshot headers, newest first.
func (m *Manager) List(wsID int64) ([]types.WorkspaceSnapshot, error) {
	return m.store.SnapshotsByWorkspace(wsID)
}

// Delete removes a snapshot and its child rows.
func (m *Manager) Delete(snapshotID string) error {
	if err := m.store.DeleteSnapshot(snapshotID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSnapshotNotFound
		}
		return err
	}
	return nil
}

// Restore applies a snapshot in the requested mode. It refuses to restore a
// snapshot of a workspace that is not currently active.
func (m *Manager) Restore(ctx context.Context, snapshotID string, mode types.RestoreMode) error {
	header, err := m.store.SnapshotByID(snapshotID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSnapshotNotFound
		}
		return err
	}

	activeID, err := m.active.ActiveWorkspaceID()
	if err != nil {
		return err
	}
	if header.WorkspaceID != activeID {
		return ErrWorkspaceMismatch
	}

	tabs, groups, err := m.store.SnapshotChildren(snapshotID)
	if err != nil {
		return err
	}

	switch mode {
	case types.RestoreReplace:
		err = m.restoreReplace(ctx, tabs, groups)
	default:
		err = m.restoreAppend(ctx, tabs)
	}
	if err != nil {
		return err
	}

	m.metrics.SnapshotRestored(string(mode))
	m.log.Info("Snapshot restored",
		zap.String("snapshot_id", snapshotID),
		zap.String("mode", string(mode)),
		zap.Int("tabs", len(tabs)),
	)
	return nil
}

// restoreAppend opens every snapshot tab as a background tab in the current
// foreground window. No window or group structure is rebuilt.
func (m *Manager) restoreAppend(ctx context.Context, tabs []types.SnapshotTab) error {
	window, err := m.browser.CurrentWindow(ctx)
	if err != nil {
		return err
	}
	for _, t := range tabs {
		if _, err := m.browser.CreateTabIn(ctx, browser.CreateTab{
			WindowID: window,
			URL:      t.URL,
			Pinned:   t.Pinned,
		}); err != nil {
			m.metrics.TabSkipped()
			m.log.Warn("Failed to append snapshot tab",
				zap.String("url", t.URL), zap.Error(err))
			continue
		}
		m.metrics.TabMaterialized()
	}
	return nil
}

// restoreReplace closes the current non-dashboard tabs and rebuilds the
// snapshot's window and group structure, one window per stored window index.
// Window index 0 reuses the dashboard's own window when present, to avoid
// orphaning the UI.
func (m *Manager) restoreReplace(ctx context.Context, tabs []types.SnapshotTab, groups []types.SnapshotTabGroup) error {
	if err := m.closeForeignTabs(ctx); err != nil {
		return err
	}

	byWindow := make(map[int][]types.SnapshotTab)
	for _, t := range tabs {
		byWindow[t.WindowIndex] = append(byWindow[t.WindowIndex], t)
	}
	windowIndexes := make([]int, 0, len(byWindow))
	for wi := range byWindow {
		windowIndexes = append(windowIndexes, wi)
	}
	sort.Ints(windowIndexes)

	groupsByWindow := make(map[int][]types.SnapshotTabGroup)
	for _, g := range groups {
		groupsByWindow[g.WindowIndex] = append(groupsByWindow[g.WindowIndex], g)
	}

	dashboardWindow, hasDashboard, err := m.browser.DashboardWindow(ctx)
	if err != nil {
		return err
	}

	for _, wi := range windowIndexes {
		var windowID int64
		if wi == windowIndexes[0] && hasDashboard {
			windowID = dashboardWindow
		} else {
			windowID, err = m.browser.CreateWindow(ctx)
			if err != nil {
				m.log.Warn("Failed to create window during restore",
					zap.Int("window_index", wi), zap.Error(err))
				continue
			}
		}

		rows := byWindow[wi]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Index < rows[j].Index })

		members := make(map[string][]int64)
		for _, t := range rows {
			created, err := m.browser.CreateTabIn(ctx, browser.CreateTab{
				WindowID: windowID,
				URL:      t.URL,
				Pinned:   t.Pinned,
			})
			if err != nil {
				m.metrics.TabSkipped()
				m.log.Warn("Failed to restore snapshot tab",
					zap.String("url", t.URL), zap.Error(err))
				continue
			}
			m.metrics.TabMaterialized()
			if t.GroupStableID != nil {
				members[*t.GroupStableID] = append(members[*t.GroupStableID], created.ID)
			}
		}

		for _, g := range groupsByWindow[wi] {
			tabIDs := members[g.StableID]
			if len(tabIDs) == 0 {
				continue
			}
			newGroup, err := m.browser.GroupTabs(ctx, windowID, tabIDs)
			if err != nil {
				m.log.Warn("Failed to regroup snapshot tabs",
					zap.String("group_stable_id", g.StableID), zap.Error(err))
				continue
			}
			if err := m.browser.UpdateGroup(ctx, newGroup, browser.GroupUpdate{
				Title:     g.Title,
				Color:     g.Color,
				Collapsed: g.Collapsed,
			}); err != nil {
				m.log.Warn("Failed to style restored group",
					zap.String("group_stable_id", g.StableID), zap.Error(err))
			}
		}
	}
	return nil
}

func (m *Manager) closeForeignTabs(ctx context.Context) error {
	open, err := m.browser.QueryTabs(ctx)
	if err != nil {
		return err
	}
	for _, t := range open {
		if browser.IsDashboardURL(t.URL, m.dashboardPrefix) {
			continue
		}
		if err := m.browser.CloseTab(ctx, t.ID); err != nil {
			m.log.Warn("Failed to close tab during restore",
				zap.Int64("tab_id", t.ID), zap.Error(err))
		}
	}
	return nil
}

// windowIndexMap maps the distinct live window ids, sorted ascending, to
// snapshot-local indices 0..k-1.
func windowIndexMap(tabs []types.Tab) map[int64]int {
	var ids []int64
	seen := make(map[int64]bool)
	for _, t := range tabs {
		if !seen[t.WindowID] {
			seen[t.WindowID] = true
			ids = append(ids, t.WindowID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make(map[int64]int, len(ids))
	for i, w := range ids {
		out[w] = i
	}
	return out
}
