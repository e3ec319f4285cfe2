package workspace

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tabvault/tabvault/internal/browser"
	"github.com/tabvault/tabvault/internal/infrastructure/logging"
	"github.com/tabvault/tabvault/internal/infrastructure/monitoring"
	"github.com/tabvault/tabvault/internal/shared/types"
	"github.com/tabvault/tabvault/internal/store"
)

// ErrWorkspaceNotFound is returned when the target workspace does not exist.
var ErrWorkspaceNotFound = errors.New("workspace: not found")

// ErrGroupNotFound is returned when a tab group does not exist.
var ErrGroupNotFound = errors.New("workspace: group not found")

// ActivateOptions tunes a workspace switch.
type ActivateOptions struct {
	// SkipTabSwitching archives and flips flags without touching the
	// browser. Used when converting the unassigned pseudo-workspace or
	// bulk-creating a workspace from URLs, where no live tabs need
	// restoring.
	SkipTabSwitching bool
}

// Manager drives workspace lifecycle and activation.
type Manager struct {
	store           *store.Store
	browser         browser.Controller
	bookmarker      browser.Bookmarker
	dashboardPrefix string
	log             *logging.Logger
	metrics         *monitoring.Metrics
}

// NewManager creates a workspace manager.
func NewManager(st *store.Store, ctrl browser.Controller, dashboardPrefix string, log *logging.Logger) *Manager {
	return &Manager{
		store:           st,
		browser:         ctrl,
		dashboardPrefix: dashboardPrefix,
		log:             log,
	}
}

// WithMetrics adds metrics tracking to the manager.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// WithBookmarker adds the resource-bookmarking collaborator.
func (m *Manager) WithBookmarker(b browser.Bookmarker) *Manager {
	m.bookmarker = b
	return m
}

// Create inserts a new, inactive workspace.
func (m *Manager) Create(name string) (*types.Workspace, error) {
	ws := &types.Workspace{
		Name:             name,
		CreatedAt:        time.Now().UTC(),
		ResourceGroupIDs: []string{},
	}
	if err := m.store.CreateWorkspace(ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// List returns all workspaces.
func (m *Manager) List() ([]types.Workspace, error) {
	return m.store.ListWorkspaces()
}

// Rename updates a workspace's name.
func (m *Manager) Rename(id int64, name string) error {
	ws, err := m.store.GetWorkspace(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrWorkspaceNotFound
		}
		return err
	}
	ws.Name = name
	return m.store.UpdateWorkspace(ws)
}

// Delete removes a workspace. Its live tabs are re-attributed to the
// unassigned pseudo-workspace; archived rows go with the workspace.
func (m *Manager) Delete(id int64) error {
	return m.store.Tx(func(tx *store.Store) error {
		tabs, err := tx.ActiveTabsByWorkspace(id)
		if err != nil {
			return err
		}
		for i := range tabs {
			tabs[i].WorkspaceID = types.UnassignedWorkspaceID
			if err := tx.SaveTab(&tabs[i]); err != nil {
				return err
			}
		}
		groups, err := tx.ActiveGroupsByWorkspace(id)
		if err != nil {
			return err
		}
		for i := range groups {
			groups[i].WorkspaceID = types.UnassignedWorkspaceID
			if err := tx.SaveGroup(&groups[i]); err != nil {
				return err
			}
		}
		if err := tx.PurgeArchivedTabs(id); err != nil {
			return err
		}
		if err := tx.PurgeArchivedGroups(id); err != nil {
			return err
		}
		if err := tx.DeleteWorkspace(id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrWorkspaceNotFound
			}
			return err
		}
		return nil
	})
}

// Activate switches to the target workspace: archive the outgoing live rows,
// flip the single active flag, materialize the incoming workspace, purge the
// superseded archived rows.
func (m *Manager) Activate(ctx context.Context, id int64, opts ActivateOptions) error {
	if _, err := m.store.GetWorkspace(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrWorkspaceNotFound
		}
		return err
	}

	currentID, err := m.store.ActiveWorkspaceID()
	if err != nil {
		return err
	}
	if currentID == id {
		return nil
	}

	// Archive and flip in one transaction: the store never shows two live
	// workspaces or none with the flag.
	err = m.store.Tx(func(tx *store.Store) error {
		if err := tx.ArchiveWorkspaceTabs(currentID); err != nil {
			return err
		}
		if err := tx.ArchiveWorkspaceGroups(currentID); err != nil {
			return err
		}
		return tx.SetActiveWorkspace(id)
	})
	if err != nil {
		return err
	}

	if !opts.SkipTabSwitching {
		if err := m.closeForeignTabs(ctx); err != nil {
			return err
		}
		if err := m.materialize(ctx, id); err != nil {
			return err
		}
	} else {
		// No materialization: stored rows become the live view as-is.
		if err := m.unarchive(id); err != nil {
			return err
		}
	}

	// Leftover archived rows of the incoming workspace were a one-shot copy
	// of the prior external state and are superseded.
	err = m.store.Tx(func(tx *store.Store) error {
		if err := tx.PurgeArchivedTabs(id); err != nil {
			return err
		}
		return tx.PurgeArchivedGroups(id)
	})
	if err != nil {
		return err
	}

	m.metrics.WorkspaceSwitched()
	m.log.Info("Workspace activated",
		zap.Int64("workspace_id", id),
		zap.Int64("previous", currentID),
		zap.Bool("skip_tab_switching", opts.SkipTabSwitching),
	)
	return nil
}

// closeForeignTabs closes every external tab that is not part of the
// engine's own dashboard surface.
func (m *Manager) closeForeignTabs(ctx context.Context) error {
	tabs, err := m.browser.QueryTabs(ctx)
	if err != nil {
		return err
	}
	for _, t := range tabs {
		if browser.IsDashboardURL(t.URL, m.dashboardPrefix) {
			continue
		}
		if err := m.browser.CloseTab(ctx, t.ID); err != nil {
			m.log.Warn("Failed to close tab during switch",
				zap.Int64("tab_id", t.ID), zap.Error(err))
		}
	}
	return nil
}

// materialize recreates the workspace's stored windows, tabs and groups:
// one external window per distinct stored window id, tabs in stored index
// order, groups rebuilt from the old-id to new-id mapping collected during
// tab creation. Individual failures are skipped, not fatal.
func (m *Manager) materialize(ctx context.Context, wsID int64) error {
	tabs, err := m.store.ArchivedTabsByWorkspace(wsID)
	if err != nil {
		return err
	}
	groups, err := m.store.ArchivedGroupsByWorkspace(wsID)
	if err != nil {
		return err
	}

	byWindow := make(map[int64][]types.Tab)
	for _, t := range tabs {
		byWindow[t.WindowID] = append(byWindow[t.WindowID], t)
	}
	windowIDs := make([]int64, 0, len(byWindow))
	for w := range byWindow {
		windowIDs = append(windowIDs, w)
	}
	sort.Slice(windowIDs, func(i, j int) bool { return windowIDs[i] < windowIDs[j] })

	groupByStable := make(map[string]*types.TabGroup, len(groups))
	for i := range groups {
		groupByStable[groups[i].StableID] = &groups[i]
	}

	for _, oldWindow := range windowIDs {
		stored := byWindow[oldWindow]
		newWindow, err := m.browser.CreateWindow(ctx)
		if err != nil {
			m.log.Warn("Failed to create window during switch",
				zap.Int64("stored_window_id", oldWindow), zap.Error(err))
			continue
		}

		// Stable group id -> new external tab ids in this window.
		members := make(map[string][]int64)
		position := 0
		for i := range stored {
			row := stored[i]
			created, err := m.browser.CreateTabIn(ctx, browser.CreateTab{
				WindowID: newWindow,
				URL:      row.URL,
				Pinned:   row.Pinned,
			})
			if err != nil {
				m.metrics.TabSkipped()
				m.log.Warn("Failed to recreate tab during switch",
					zap.String("stable_id", row.StableID),
					zap.String("url", row.URL),
					zap.Error(err))
				continue
			}

			row.ExtID = created.ID
			row.WindowID = newWindow
			row.Index = position
			row.TabStatus = types.StatusActive
			position++
			if err := m.store.SaveTab(&row); err != nil {
				return err
			}
			m.metrics.TabMaterialized()

			if row.GroupStableID != nil {
				members[*row.GroupStableID] = append(members[*row.GroupStableID], created.ID)
			}
		}

		for stableID, tabIDs := range members {
			g, ok := groupByStable[stableID]
			if !ok {
				continue
			}
			newGroup, err := m.browser.GroupTabs(ctx, newWindow, tabIDs)
			if err != nil {
				m.log.Warn("Failed to regroup tabs during switch",
					zap.String("group_stable_id", stableID), zap.Error(err))
				continue
			}
			if err := m.browser.UpdateGroup(ctx, newGroup, browser.GroupUpdate{
				Title:     g.Title,
				Color:     g.Color,
				Collapsed: g.Collapsed,
			}); err != nil {
				m.log.Warn("Failed to style regrouped tabs",
					zap.String("group_stable_id", stableID), zap.Error(err))
			}

			g.ExtID = newGroup
			g.WindowID = newWindow
			g.GroupStatus = types.StatusActive
			if err := m.store.SaveGroup(g); err != nil {
				return err
			}
			// New external tabs need their volatile group id refreshed.
			gid := newGroup
			for _, tabID := range tabIDs {
				row, err := m.store.TabByExtID(tabID)
				if err != nil {
					continue
				}
				row.GroupID = &gid
				if err := m.store.SaveTab(row); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// unarchive flips a workspace's archived rows straight back to active,
// keeping their stored structure. Used when no browser materialization is
// wanted.
func (m *Manager) unarchive(wsID int64) error {
	return m.store.Tx(func(tx *store.Store) error {
		tabs, err := tx.ArchivedTabsByWorkspace(wsID)
		if err != nil {
			return err
		}
		for i := range tabs {
			tabs[i].TabStatus = types.StatusActive
			if err := tx.SaveTab(&tabs[i]); err != nil {
				return err
			}
		}
		groups, err := tx.ArchivedGroupsByWorkspace(wsID)
		if err != nil {
			return err
		}
		for i := range groups {
			groups[i].GroupStatus = types.StatusActive
			if err := tx.SaveGroup(&groups[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// SortTabs reorders a workspace's live tabs per window by the criterion,
// moving browser tabs and rewriting stored indices in one transaction.
func (m *Manager) SortTabs(ctx context.Context, wsID int64, by types.SortCriterion) error {
	tabs, err := m.store.ActiveTabsByWorkspace(wsID)
	if err != nil {
		return err
	}

	byWindow := make(map[int64][]types.Tab)
	for _, t := range tabs {
		byWindow[t.WindowID] = append(byWindow[t.WindowID], t)
	}

	for windowID, rows := range byWindow {
		sort.SliceStable(rows, func(i, j int) bool {
			switch by {
			case types.SortByTitle:
				return rows[i].Title < rows[j].Title
			default:
				return hostOf(rows[i].URL) < hostOf(rows[j].URL)
			}
		})

		for pos := range rows {
			if err := m.browser.MoveTab(ctx, rows[pos].ExtID, windowID, pos); err != nil {
				m.log.Warn("Failed to move tab during sort",
					zap.Int64("tab_id", rows[pos].ExtID), zap.Error(err))
			}
		}

		if err := m.store.Tx(func(tx *store.Store) error {
			for pos := range rows {
				rows[pos].Index = pos
				if err := tx.SaveTab(&rows[pos]); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// GroupTabs groups a workspace's live tabs per window, bucketed by URL host
// or by title. Buckets with a single tab stay ungrouped.
func (m *Manager) GroupTabs(ctx context.Context, wsID int64, by types.SortCriterion) error {
	tabs, err := m.store.ActiveTabsByWorkspace(wsID)
	if err != nil {
		return err
	}

	keyOf := func(t types.Tab) string {
		if by == types.SortByTitle {
			return t.Title
		}
		return hostOf(t.URL)
	}

	type bucket struct {
		windowID int64
		key      string
	}
	buckets := make(map[bucket][]types.Tab)
	for _, t := range tabs {
		if t.GroupStableID != nil {
			continue
		}
		b := bucket{t.WindowID, keyOf(t)}
		buckets[b] = append(buckets[b], t)
	}

	for b, rows := range buckets {
		if len(rows) < 2 || b.key == "" {
			continue
		}
		tabIDs := make([]int64, len(rows))
		for i := range rows {
			tabIDs[i] = rows[i].ExtID
		}
		if _, err := m.browser.GroupTabs(ctx, b.windowID, tabIDs); err != nil {
			m.log.Warn("Failed to group tabs",
				zap.String("key", b.key), zap.Error(err))
		}
		// The resulting group-created and tab-updated events flow back
		// through the sync listener.
	}
	return nil
}

// UngroupTabs dissolves every live group of the workspace.
func (m *Manager) UngroupTabs(ctx context.Context, wsID int64) error {
	tabs, err := m.store.ActiveTabsByWorkspace(wsID)
	if err != nil {
		return err
	}
	var grouped []int64
	for _, t := range tabs {
		if t.GroupStableID != nil {
			grouped = append(grouped, t.ExtID)
		}
	}
	if len(grouped) == 0 {
		return nil
	}
	return m.browser.UngroupTabs(ctx, grouped)
}

// ConvertGroupToResource hands a group's tab URLs to the bookmarking
// collaborator, records the created resource group on the owning workspace,
// and archives the group with its member tabs.
func (m *Manager) ConvertGroupToResource(ctx context.Context, groupStableID string) error {
	if m.bookmarker == nil {
		return fmt.Errorf("workspace: no bookmarker configured")
	}

	group, err := m.store.GroupByStableID(groupStableID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrGroupNotFound
		}
		return err
	}

	tabs, err := m.store.ActiveTabsByWorkspace(group.WorkspaceID)
	if err != nil {
		return err
	}
	var members []types.Tab
	var urls []string
	for _, t := range tabs {
		if t.GroupStableID != nil && *t.GroupStableID == groupStableID {
			members = append(members, t)
			urls = append(urls, t.URL)
		}
	}

	resourceID, err := m.bookmarker.SaveTabGroup(ctx, group.Title, urls)
	if err != nil {
		return err
	}

	err = m.store.Tx(func(tx *store.Store) error {
		if err := tx.AppendResourceGroupID(group.WorkspaceID, resourceID); err != nil {
			return err
		}
		for i := range members {
			members[i].TabStatus = types.StatusArchived
			if err := tx.SaveTab(&members[i]); err != nil {
				return err
			}
		}
		group.GroupStatus = types.StatusArchived
		return tx.SaveGroup(group)
	})
	if err != nil {
		return err
	}

	// The live tabs leave the browser; their removal events will find the
	// rows already archived and be ignored.
	for _, t := range members {
		if err := m.browser.CloseTab(ctx, t.ExtID); err != nil {
			m.log.Warn("Failed to close converted tab",
				zap.Int64("tab_id", t.ExtID), zap.Error(err))
		}
	}
	return nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
