package store

import (
	"fmt"
	"time"

	"github.com/tabvault/tabvault/internal/shared/types"
)

// InsertTab inserts a mirrored tab row.
func (s *Store) InsertTab(t *types.Tab) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	if err := s.db.Create(t).Error; err != nil {
		return fmt.Errorf("failed to insert tab: %w", err)
	}
	return nil
}

// TabByExtID finds the active row mirroring a live external tab id.
// Archived rows are excluded: the browser may have reused their ids.
func (s *Store) TabByExtID(extID int64) (*types.Tab, error) {
	var t types.Tab
	err := s.db.Where("ext_id = ? AND tab_status = ?", extID, types.StatusActive).
		First(&t).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &t, nil
}

// TabByStableID finds a row by its permanent id, regardless of status.
func (s *Store) TabByStableID(stableID string) (*types.Tab, error) {
	var t types.Tab
	if err := s.db.First(&t, "stable_id = ?", stableID).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &t, nil
}

// SaveTab persists all fields of a tab row and bumps its updated time.
func (s *Store) SaveTab(t *types.Tab) error {
	t.UpdatedAt = time.Now().UTC()
	if err := s.db.Save(t).Error; err != nil {
		return fmt.Errorf("failed to save tab: %w", err)
	}
	return nil
}

// DeleteTab removes a row by stable id.
func (s *Store) DeleteTab(stableID string) error {
	res := s.db.Delete(&types.Tab{}, "stable_id = ?", stableID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete tab: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveTabsInWindow returns a window's live tabs in index order.
func (s *Store) ActiveTabsInWindow(windowID int64) ([]types.Tab, error) {
	var out []types.Tab
	err := s.db.Where("window_id = ? AND tab_status = ?", windowID, types.StatusActive).
		Order("tab_index ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list window tabs: %w", err)
	}
	return out, nil
}

// ActiveTabsByWorkspace returns a workspace's live tabs, windows interleaved,
// ordered by window then index.
func (s *Store) ActiveTabsByWorkspace(wsID int64) ([]types.Tab, error) {
	return s.tabsByWorkspace(wsID, types.StatusActive)
}

// ArchivedTabsByWorkspace returns a workspace's archived tabs in stored
// window/index order, for materialization.
func (s *Store) ArchivedTabsByWorkspace(wsID int64) ([]types.Tab, error) {
	return s.tabsByWorkspace(wsID, types.StatusArchived)
}

func (s *Store) tabsByWorkspace(wsID int64, status types.Status) ([]types.Tab, error) {
	var out []types.Tab
	err := s.db.Where("workspace_id = ? AND tab_status = ?", wsID, status).
		Order("window_id ASC, tab_index ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace tabs: %w", err)
	}
	return out, nil
}

// ArchiveWorkspaceTabs flips a workspace's live rows to archived. The rows
// persist verbatim; they are only hidden from the live view.
func (s *Store) ArchiveWorkspaceTabs(wsID int64) error {
	err := s.db.Model(&types.Tab{}).
		Where("workspace_id = ? AND tab_status = ?", wsID, types.StatusActive).
		Updates(map[string]interface{}{
			"tab_status": types.StatusArchived,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to archive workspace tabs: %w", err)
	}
	return nil
}

// PurgeArchivedTabs deletes whatever archived rows remain for a workspace.
// Called after materialization: leftovers were a one-shot copy of the prior
// external state and are superseded.
func (s *Store) PurgeArchivedTabs(wsID int64) error {
	err := s.db.Delete(&types.Tab{},
		"workspace_id = ? AND tab_status = ?", wsID, types.StatusArchived).Error
	if err != nil {
		return fmt.Errorf("failed to purge archived tabs: %w", err)
	}
	return nil
}

// PruneArchivedBefore deletes archived tab and group rows untouched since
// the cutoff. Returns the number of tab rows removed.
func (s *Store) PruneArchivedBefore(cutoff time.Time) (int64, error) {
	var removed int64
	err := s.Tx(func(tx *Store) error {
		res := tx.db.Delete(&types.Tab{},
			"tab_status = ? AND updated_at < ?", types.StatusArchived, cutoff)
		if res.Error != nil {
			return fmt.Errorf("failed to prune archived tabs: %w", res.Error)
		}
		removed = res.RowsAffected

		if err := tx.db.Delete(&types.TabGroup{},
			"group_status = ? AND updated_at < ?", types.StatusArchived, cutoff).Error; err != nil {
			return fmt.Errorf("failed to prune archived groups: %w", err)
		}
		return nil
	})
	return removed, err
}

// CountActiveGroupMembers counts live tabs referencing a group's stable id.
func (s *Store) CountActiveGroupMembers(groupStableID string) (int64, error) {
	var n int64
	err := s.db.Model(&types.Tab{}).
		Where("group_stable_id = ? AND tab_status = ?", groupStableID, types.StatusActive).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count group members: %w", err)
	}
	return n, nil
}

// AdoptGroupRefs backfills the stable group reference on live tabs that
// arrived carrying only the external group id (tab events can precede the
// group-created event).
func (s *Store) AdoptGroupRefs(groupExtID int64, groupStableID string) error {
	err := s.db.Model(&types.Tab{}).
		Where("group_id = ? AND tab_status = ? AND group_stable_id IS NULL",
			groupExtID, types.StatusActive).
		Updates(map[string]interface{}{
			"group_stable_id": groupStableID,
			"updated_at":      time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to adopt group refs: %w", err)
	}
	return nil
}

// ClearGroupRefs detaches every tab referencing a group's stable id.
func (s *Store) ClearGroupRefs(groupStableID string) error {
	err := s.db.Model(&types.Tab{}).
		Where("group_stable_id = ?", groupStableID).
		Updates(map[string]interface{}{
			"group_id":        nil,
			"group_stable_id": nil,
			"updated_at":      time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to clear group refs: %w", err)
	}
	return nil
}

// LastActivityAt returns the most recent updated time across a workspace's
// live tabs and groups; the zero time when the workspace has none.
func (s *Store) LastActivityAt(wsID int64) (time.Time, error) {
	var latest time.Time

	var tab types.Tab
	err := s.db.Where("workspace_id = ? AND tab_status = ?", wsID, types.StatusActive).
		Order("updated_at DESC").
		First(&tab).Error
	if err != nil && wrapNotFound(err) != ErrNotFound {
		return time.Time{}, fmt.Errorf("failed to read tab activity: %w", err)
	}
	if err == nil && tab.UpdatedAt.After(latest) {
		latest = tab.UpdatedAt
	}

	var group types.TabGroup
	err = s.db.Where("workspace_id = ? AND group_status = ?", wsID, types.StatusActive).
		Order("updated_at DESC").
		First(&group).Error
	if err != nil && wrapNotFound(err) != ErrNotFound {
		return time.Time{}, fmt.Errorf("failed to read group activity: %w", err)
	}
	if err == nil && group.UpdatedAt.After(latest) {
		latest = group.UpdatedAt
	}
	return latest, nil
}
