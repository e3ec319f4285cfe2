package sync

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tabvault/tabvault/internal/browser"
	"github.com/tabvault/tabvault/internal/infrastructure/logging"
	"github.com/tabvault/tabvault/internal/infrastructure/monitoring"
	"github.com/tabvault/tabvault/internal/shared/id"
	"github.com/tabvault/tabvault/internal/shared/types"
	"github.com/tabvault/tabvault/internal/store"
)

// ActiveWorkspace is the injected read accessor for the currently active
// workspace, so handlers are testable with a fixed value instead of a
// captured global.
type ActiveWorkspace interface {
	ActiveWorkspaceID() (int64, error)
}

// Listener applies browser lifecycle events to the store.
type Listener struct {
	store           *store.Store
	active          ActiveWorkspace
	dashboardPrefix string
	log             *logging.Logger
	metrics         *monitoring.Metrics
}

// NewListener creates a sync listener.
func NewListener(st *store.Store, active ActiveWorkspace, dashboardPrefix string, log *logging.Logger) *Listener {
	return &Listener{
		store:           st,
		active:          active,
		dashboardPrefix: dashboardPrefix,
		log:             log,
	}
}

// WithMetrics adds metrics tracking to the listener.
func (l *Listener) WithMetrics(m *monitoring.Metrics) *Listener {
	l.metrics = m
	return l
}

// Apply dispatches one event to its handler. The switch is exhaustive over
// the event union; store failures propagate, dropped events do not.
func (l *Listener) Apply(ev browser.Event) error {
	var err error
	switch e := ev.(type) {
	case browser.TabCreated:
		err = l.handleTabCreated(e.Tab)
	case browser.TabRemoved:
		err = l.handleTabRemoved(e.TabID)
	case browser.TabUpdated:
		err = l.handleTabUpdated(e.TabID, e.Changes)
	case browser.TabMoved:
		err = l.handleTabMoved(e.TabID, e.WindowID, e.FromIndex, e.ToIndex)
	case browser.TabDetached:
		err = l.handleTabDetached(e.TabID, e.OldWindowID, e.OldPosition)
	case browser.TabAttached:
		err = l.handleTabAttached(e.TabID, e.NewWindowID, e.NewPosition)
	case browser.GroupCreated:
		err = l.handleGroupCreated(e.Group)
	case browser.GroupUpdated:
		err = l.handleGroupUpdated(e.GroupID, e.Changes)
	case browser.GroupRemoved:
		err = l.handleGroupRemoved(e.GroupID)
	default:
		return fmt.Errorf("sync: unhandled event %T", ev)
	}
	if err == nil {
		l.metrics.EventApplied(browser.EventName(ev))
	}
	return err
}

// handleTabCreated shifts the target window's ordering open and inserts a
// fresh row attributed to the active workspace.
func (l *Listener) handleTabCreated(t browser.Tab) error {
	if browser.IsDashboardURL(t.URL, l.dashboardPrefix) {
		l.drop(browser.EventTabCreated, "dashboard")
		return nil
	}

	// Tabs the engine creates itself (workspace materialization, snapshot
	// restore) already have rows; their echoed create events are not new tabs.
	if _, err := l.store.TabByExtID(t.ID); err == nil {
		l.drop(browser.EventTabCreated, "duplicate")
		return nil
	}

	wsID, err := l.active.ActiveWorkspaceID()
	if err != nil {
		return err
	}

	return l.store.Tx(func(tx *store.Store) error {
		if err := tx.ShiftIndices(t.WindowID, t.Index, +1); err != nil {
			return err
		}

		row := &types.Tab{
			StableID:    string(id.NewTabStableID()),
			ExtID:       t.ID,
			WindowID:    t.WindowID,
			WorkspaceID: wsID,
			Index:       t.Index,
			URL:         t.URL,
			Title:       t.Title,
			Pinned:      t.Pinned,
			TabStatus:   types.StatusActive,
		}
		if t.GroupID != browser.NoGroup {
			row.GroupID = &t.GroupID
			if g, err := tx.GroupByExtID(t.GroupID); err == nil {
				row.GroupStableID = &g.StableID
			}
			// Group row may trail the tab event; the reconciler backfills.
		}
		return tx.InsertTab(row)
	})
}

// handleTabRemoved closes the window's ordering over the removed position
// and cleans up a group left empty. Rows already archived were removed as a
// side effect of archiving, not a live close, and are not matched here.
func (l *Listener) handleTabRemoved(tabID int64) error {
	row, err := l.store.TabByExtID(tabID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.drop(browser.EventTabRemoved, "missing")
			return nil
		}
		return err
	}

	return l.store.Tx(func(tx *store.Store) error {
		if err := tx.ShiftIndices(row.WindowID, row.Index+1, -1); err != nil {
			return err
		}
		if err := tx.DeleteTab(row.StableID); err != nil {
			return err
		}
		if row.GroupStableID != nil {
			return l.cleanupEmptyGroup(tx, *row.GroupStableID)
		}
		return nil
	})
}

// handleTabUpdated merges changed fields, preserving identity columns.
func (l *Listener) handleTabUpdated(tabID int64, ch browser.TabChanges) error {
	row, err := l.store.TabByExtID(tabID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.drop(browser.EventTabUpdated, "missing")
			return nil
		}
		return err
	}

	return l.store.Tx(func(tx *store.Store) error {
		prevGroup := row.GroupStableID

		if ch.URL != nil {
			row.URL = *ch.URL
		}
		if ch.Title != nil {
			row.Title = *ch.Title
		}
		if ch.Pinned != nil {
			row.Pinned = *ch.Pinned
		}
		if ch.GroupID != nil {
			if *ch.GroupID == browser.NoGroup {
				row.GroupID = nil
				row.GroupStableID = nil
			} else {
				gid := *ch.GroupID
				row.GroupID = &gid
				row.GroupStableID = nil
				if g, err := tx.GroupByExtID(gid); err == nil {
					row.GroupStableID = &g.StableID
				}
			}
		}

		if err := tx.SaveTab(row); err != nil {
			return err
		}

		// Leaving a group may leave it empty.
		if ch.GroupID != nil && prevGroup != nil &&
			(row.GroupStableID == nil || *row.GroupStableID != *prevGroup) {
			return l.cleanupEmptyGroup(tx, *prevGroup)
		}
		return nil
	})
}

// handleTabMoved closes the source range and opens the destination range in
// one transaction, so the window is never observed with fragmented indices
// between the two half-operations.
func (l *Listener) handleTabMoved(tabID, windowID int64, fromIndex, toIndex int) error {
	row, err := l.store.TabByExtID(tabID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.drop(browser.EventTabMoved, "missing")
			return nil
		}
		return err
	}

	return l.store.Tx(func(tx *store.Store) error {
		// Park the row outside the ordering so the range shifts cannot
		// double-count it.
		row.Index = -1
		if err := tx.SaveTab(row); err != nil {
			return err
		}
		if err := tx.ShiftIndices(windowID, fromIndex+1, -1); err != nil {
			return err
		}
		if err := tx.ShiftIndices(windowID, toIndex, +1); err != nil {
			return err
		}
		row.WindowID = windowID
		row.Index = toIndex
		return tx.SaveTab(row)
	})
}

// handleTabDetached removes the tab from its old window's ordering; the tab
// is in limbo until the matching attach arrives.
func (l *Listener) handleTabDetached(tabID, oldWindowID int64, oldPosition int) error {
	row, err := l.store.TabByExtID(tabID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.drop(browser.EventTabDetached, "missing")
			return nil
		}
		return err
	}

	return l.store.Tx(func(tx *store.Store) error {
		row.WindowID = -1
		row.Index = -1
		if err := tx.SaveTab(row); err != nil {
			return err
		}
		return tx.ShiftIndices(oldWindowID, oldPosition+1, -1)
	})
}

// handleTabAttached inserts the tab into its new window's ordering.
func (l *Listener) handleTabAttached(tabID, newWindowID int64, newPosition int) error {
	row, err := l.store.TabByExtID(tabID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.drop(browser.EventTabAttached, "missing")
			return nil
		}
		return err
	}

	return l.store.Tx(func(tx *store.Store) error {
		if err := tx.ShiftIndices(newWindowID, newPosition, +1); err != nil {
			return err
		}
		row.WindowID = newWindowID
		row.Index = newPosition
		return tx.SaveTab(row)
	})
}

// handleGroupCreated mirrors a new group under the active workspace and
// backfills stable references on any member tabs that arrived first.
func (l *Listener) handleGroupCreated(g browser.Group) error {
	if _, err := l.store.GroupByExtID(g.ID); err == nil {
		l.drop(browser.EventGroupCreated, "duplicate")
		return nil
	}

	wsID, err := l.active.ActiveWorkspaceID()
	if err != nil {
		return err
	}

	row := &types.TabGroup{
		StableID:    string(id.NewGroupStableID()),
		ExtID:       g.ID,
		WindowID:    g.WindowID,
		WorkspaceID: wsID,
		Title:       g.Title,
		Color:       g.Color,
		Collapsed:   g.Collapsed,
		GroupStatus: types.StatusActive,
	}

	return l.store.Tx(func(tx *store.Store) error {
		if err := tx.InsertGroup(row); err != nil {
			return err
		}
		return tx.AdoptGroupRefs(g.ID, row.StableID)
	})
}

// handleGroupUpdated merges changed group fields.
func (l *Listener) handleGroupUpdated(groupID int64, ch browser.GroupChanges) error {
	row, err := l.store.GroupByExtID(groupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.drop(browser.EventGroupUpdated, "missing")
			return nil
		}
		return err
	}

	if ch.Title != nil {
		row.Title = *ch.Title
	}
	if ch.Color != nil {
		row.Color = *ch.Color
	}
	if ch.Collapsed != nil {
		row.Collapsed = *ch.Collapsed
	}
	return l.store.SaveGroup(row)
}

// handleGroupRemoved deletes the group row and detaches any member tabs
// whose ungroup notifications were lost.
func (l *Listener) handleGroupRemoved(groupID int64) error {
	row, err := l.store.GroupByExtID(groupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.drop(browser.EventGroupRemoved, "missing")
			return nil
		}
		return err
	}

	return l.store.Tx(func(tx *store.Store) error {
		if err := tx.ClearGroupRefs(row.StableID); err != nil {
			return err
		}
		return tx.DeleteGroup(row.StableID)
	})
}

// cleanupEmptyGroup deletes a group row once its last active member is gone.
func (l *Listener) cleanupEmptyGroup(tx *store.Store, groupStableID string) error {
	n, err := tx.CountActiveGroupMembers(groupStableID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if err := tx.DeleteGroup(groupStableID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func (l *Listener) drop(event, reason string) {
	l.metrics.EventDropped(event, reason)
	l.log.Debug("Event dropped",
		zap.String("event", event),
		zap.String("reason", reason),
	)
}
