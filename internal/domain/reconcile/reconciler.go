package reconcile

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tabvault/tabvault/internal/browser"
	"github.com/tabvault/tabvault/internal/infrastructure/logging"
	"github.com/tabvault/tabvault/internal/infrastructure/monitoring"
	"github.com/tabvault/tabvault/internal/shared/id"
	"github.com/tabvault/tabvault/internal/shared/types"
	"github.com/tabvault/tabvault/internal/store"
)

// ActiveWorkspace is the injected read accessor for the active workspace.
type ActiveWorkspace interface {
	ActiveWorkspaceID() (int64, error)
}

// Stats counts the mutations one pass performed. A pass after a clean pass
// reports all zeros.
type Stats struct {
	Updated    int `json:"updated"`
	URLMatched int `json:"url_matched"`
	Inserted   int `json:"inserted"`
	Deleted    int `json:"deleted"`
	Groups     int `json:"groups"`
}

// Empty reports whether the pass mutated nothing.
func (s Stats) Empty() bool {
	return s == Stats{}
}

// Reconciler performs the periodic full resync.
type Reconciler struct {
	store           *store.Store
	browser         browser.Controller
	active          ActiveWorkspace
	dashboardPrefix string
	log             *logging.Logger
	metrics         *monitoring.Metrics
}

// New creates a reconciler.
func New(st *store.Store, ctrl browser.Controller, active ActiveWorkspace, dashboardPrefix string, log *logging.Logger) *Reconciler {
	return &Reconciler{
		store:           st,
		browser:         ctrl,
		active:          active,
		dashboardPrefix: dashboardPrefix,
		log:             log,
	}
}

// WithMetrics adds metrics tracking to the reconciler.
func (r *Reconciler) WithMetrics(m *monitoring.Metrics) *Reconciler {
	r.metrics = m
	return r
}

// Run executes one full pass against the active workspace.
func (r *Reconciler) Run(ctx context.Context) (Stats, error) {
	start := time.Now()

	external, err := r.browser.QueryTabs(ctx)
	if err != nil {
		return Stats{}, err
	}
	externalGroups, err := r.browser.QueryGroups(ctx)
	if err != nil {
		return Stats{}, err
	}

	live := external[:0:0]
	for _, t := range external {
		if !browser.IsDashboardURL(t.URL, r.dashboardPrefix) {
			live = append(live, t)
		}
	}

	wsID, err := r.active.ActiveWorkspaceID()
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	err = r.store.Tx(func(tx *store.Store) error {
		s, err := r.reconcileGroups(tx, externalGroups, wsID)
		if err != nil {
			return err
		}
		stats.Groups = s

		return r.reconcileTabs(tx, live, wsID, &stats)
	})
	if err != nil {
		return Stats{}, err
	}

	r.metrics.ReconcileRun(time.Since(start).Seconds())
	r.metrics.Correction("updated", stats.Updated)
	r.metrics.Correction("url_matched", stats.URLMatched)
	r.metrics.Correction("inserted", stats.Inserted)
	r.metrics.Correction("deleted", stats.Deleted)
	r.metrics.Correction("groups", stats.Groups)

	if !stats.Empty() {
		r.log.Info("Reconcile pass corrected drift",
			zap.Int("updated", stats.Updated),
			zap.Int("url_matched", stats.URLMatched),
			zap.Int("inserted", stats.Inserted),
			zap.Int("deleted", stats.Deleted),
			zap.Int("groups", stats.Groups),
		)
	}
	return stats, nil
}

// reconcileTabs diffs the live tab list against the stored active rows.
func (r *Reconciler) reconcileTabs(tx *store.Store, external []browser.Tab, wsID int64, stats *Stats) error {
	stored, err := tx.ActiveTabsByWorkspace(wsID)
	if err != nil {
		return err
	}

	byExtID := make(map[int64]*types.Tab, len(stored))
	for i := range stored {
		byExtID[stored[i].ExtID] = &stored[i]
	}

	matched := make(map[string]bool, len(stored))
	var residue []browser.Tab

	// Primary match: external numeric id.
	for _, ext := range external {
		row, ok := byExtID[ext.ID]
		if !ok {
			residue = append(residue, ext)
			continue
		}
		matched[row.StableID] = true
		changed, err := r.adoptFields(tx, row, ext)
		if err != nil {
			return err
		}
		if changed {
			stats.Updated++
		}
	}

	// Secondary match: URL, over the residue only. External ids are reused
	// and invalidated on cross-window moves in some hosts; matching by id
	// alone would report those tabs closed. URL is a deliberate, lossy
	// tie-break: the first unmatched stored row with that URL wins.
	byURL := make(map[string][]*types.Tab)
	for i := range stored {
		row := &stored[i]
		if !matched[row.StableID] {
			byURL[row.URL] = append(byURL[row.URL], row)
		}
	}
	var unseen []browser.Tab
	for _, ext := range residue {
		rows := byURL[ext.URL]
		if len(rows) == 0 {
			unseen = append(unseen, ext)
			continue
		}
		row := rows[0]
		byURL[ext.URL] = rows[1:]
		matched[row.StableID] = true
		if _, err := r.adoptFields(tx, row, ext); err != nil {
			return err
		}
		stats.URLMatched++
	}

	// New external tabs: insert with fresh stable ids.
	for _, ext := range unseen {
		row := &types.Tab{
			StableID:    string(id.NewTabStableID()),
			ExtID:       ext.ID,
			WindowID:    ext.WindowID,
			WorkspaceID: wsID,
			Index:       ext.Index,
			URL:         ext.URL,
			Title:       ext.Title,
			Pinned:      ext.Pinned,
			TabStatus:   types.StatusActive,
		}
		if ext.GroupID != browser.NoGroup {
			gid := ext.GroupID
			row.GroupID = &gid
			if g, err := tx.GroupByExtID(gid); err == nil {
				row.GroupStableID = &g.StableID
			}
		}
		if err := tx.InsertTab(row); err != nil {
			return err
		}
		stats.Inserted++
	}

	// Stale stored rows: tabs closed while events were missed.
	for i := range stored {
		row := &stored[i]
		if matched[row.StableID] {
			continue
		}
		if err := tx.DeleteTab(row.StableID); err != nil {
			return err
		}
		stats.Deleted++
	}

	// Groups left without active members after the deletions.
	groups, err := tx.ActiveGroupsByWorkspace(wsID)
	if err != nil {
		return err
	}
	for i := range groups {
		n, err := tx.CountActiveGroupMembers(groups[i].StableID)
		if err != nil {
			return err
		}
		if n == 0 {
			if err := tx.DeleteGroup(groups[i].StableID); err != nil {
				return err
			}
			stats.Groups++
		}
	}
	return nil
}

// adoptFields overwrites the mirrored field set with the browser's values,
// preserving stableId, workspaceId, tabStatus and createdAt. Reports whether
// anything differed.
func (r *Reconciler) adoptFields(tx *store.Store, row *types.Tab, ext browser.Tab) (bool, error) {
	extGroup := groupPtr(ext.GroupID)
	if row.URL == ext.URL &&
		row.Title == ext.Title &&
		row.Pinned == ext.Pinned &&
		row.Index == ext.Index &&
		row.WindowID == ext.WindowID &&
		row.ExtID == ext.ID &&
		int64Equal(row.GroupID, extGroup) {
		return false, nil
	}

	row.ExtID = ext.ID
	row.URL = ext.URL
	row.Title = ext.Title
	row.Pinned = ext.Pinned
	row.Index = ext.Index
	row.WindowID = ext.WindowID
	row.GroupID = extGroup
	row.GroupStableID = nil
	if extGroup != nil {
		if g, err := tx.GroupByExtID(*extGroup); err == nil {
			row.GroupStableID = &g.StableID
		}
	}
	return true, tx.SaveTab(row)
}

// reconcileGroups mirrors the live group list: adopt changed fields on
// id-matched rows, insert unknown groups, and leave membership-driven
// deletion to the tab phase.
func (r *Reconciler) reconcileGroups(tx *store.Store, external []browser.Group, wsID int64) (int, error) {
	corrected := 0
	for _, ext := range external {
		row, err := tx.GroupByExtID(ext.ID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return corrected, err
			}
			g := &types.TabGroup{
				StableID:    string(id.NewGroupStableID()),
				ExtID:       ext.ID,
				WindowID:    ext.WindowID,
				WorkspaceID: wsID,
				Title:       ext.Title,
				Color:       ext.Color,
				Collapsed:   ext.Collapsed,
				GroupStatus: types.StatusActive,
			}
			if err := tx.InsertGroup(g); err != nil {
				return corrected, err
			}
			if err := tx.AdoptGroupRefs(ext.ID, g.StableID); err != nil {
				return corrected, err
			}
			corrected++
			continue
		}
		if row.Title == ext.Title && row.Color == ext.Color &&
			row.Collapsed == ext.Collapsed && row.WindowID == ext.WindowID {
			continue
		}
		row.Title = ext.Title
		row.Color = ext.Color
		row.Collapsed = ext.Collapsed
		row.WindowID = ext.WindowID
		if err := tx.SaveGroup(row); err != nil {
			return corrected, err
		}
		corrected++
	}
	return corrected, nil
}

func groupPtr(gid int64) *int64 {
	if gid == browser.NoGroup {
		return nil
	}
	return &gid
}

func int64Equal(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
