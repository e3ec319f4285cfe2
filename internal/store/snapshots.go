package store

import (
	"fmt"
	"time"

	"github.com/tabvault/tabvault/internal/shared/types"
)

// InsertSnapshot atomically writes a snapshot header with its child rows.
func (s *Store) InsertSnapshot(h *types.WorkspaceSnapshot, tabs []types.SnapshotTab, groups []types.SnapshotTabGroup) error {
	return s.Tx(func(tx *Store) error {
		if err := tx.db.Create(h).Error; err != nil {
			return fmt.Errorf("failed to insert snapshot header: %w", err)
		}
		if len(groups) > 0 {
			if err := tx.db.Create(&groups).Error; err != nil {
				return fmt.Errorf("failed to insert snapshot groups: %w", err)
			}
		}
		if len(tabs) > 0 {
			if err := tx.db.Create(&tabs).Error; err != nil {
				return fmt.Errorf("failed to insert snapshot tabs: %w", err)
			}
		}
		return nil
	})
}

// SnapshotByID retrieves a snapshot header.
func (s *Store) SnapshotByID(id string) (*types.WorkspaceSnapshot, error) {
	var h types.WorkspaceSnapshot
	if err := s.db.First(&h, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &h, nil
}

// SnapshotsByWorkspace returns a workspace's snapshot headers, newest first.
func (s *Store) SnapshotsByWorkspace(wsID int64) ([]types.WorkspaceSnapshot, error) {
	var out []types.WorkspaceSnapshot
	err := s.db.Where("workspace_id = ?", wsID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return out, nil
}

// SnapshotChildren returns a snapshot's frozen tab and group rows, tabs in
// window/index order.
func (s *Store) SnapshotChildren(id string) ([]types.SnapshotTab, []types.SnapshotTabGroup, error) {
	var tabs []types.SnapshotTab
	err := s.db.Where("snapshot_id = ?", id).
		Order("window_index ASC, tab_index ASC").
		Find(&tabs).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list snapshot tabs: %w", err)
	}

	var groups []types.SnapshotTabGroup
	err = s.db.Where("snapshot_id = ?", id).
		Order("window_index ASC").
		Find(&groups).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list snapshot groups: %w", err)
	}
	return tabs, groups, nil
}

// DeleteSnapshot removes a header and both child tables in one transaction,
// so no orphaned child rows survive.
func (s *Store) DeleteSnapshot(id string) error {
	return s.Tx(func(tx *Store) error {
		res := tx.db.Delete(&types.WorkspaceSnapshot{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete snapshot header: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.deleteSnapshotChildren([]string{id})
	})
}

// PruneSnapshots applies count-based and age-based retention to one
// workspace in a single transaction. keep <= 0 disables the count limit;
// a zero maxAge disables the age limit. Returns the number of snapshots
// removed.
func (s *Store) PruneSnapshots(wsID int64, keep int, maxAge time.Duration, now time.Time) (int, error) {
	var doomed []string
	err := s.Tx(func(tx *Store) error {
		headers, err := tx.SnapshotsByWorkspace(wsID)
		if err != nil {
			return err
		}

		seen := make(map[string]bool, len(headers))
		if keep > 0 {
			for _, h := range headers[min(keep, len(headers)):] {
				if !seen[h.ID] {
					seen[h.ID] = true
					doomed = append(doomed, h.ID)
				}
			}
		}
		if maxAge > 0 {
			cutoff := now.Add(-maxAge)
			for _, h := range headers {
				if h.CreatedAt.Before(cutoff) && !seen[h.ID] {
					seen[h.ID] = true
					doomed = append(doomed, h.ID)
				}
			}
		}
		if len(doomed) == 0 {
			return nil
		}

		if err := tx.db.Delete(&types.WorkspaceSnapshot{}, "id IN ?", doomed).Error; err != nil {
			return fmt.Errorf("failed to prune snapshot headers: %w", err)
		}
		return tx.deleteSnapshotChildren(doomed)
	})
	if err != nil {
		return 0, err
	}
	return len(doomed), nil
}

// LatestSnapshotAt returns the creation time of a workspace's newest
// snapshot, or nil when it has none.
func (s *Store) LatestSnapshotAt(wsID int64) (*time.Time, error) {
	var h types.WorkspaceSnapshot
	err := s.db.Where("workspace_id = ?", wsID).
		Order("created_at DESC").
		First(&h).Error
	if err != nil {
		if wrapNotFound(err) == ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read latest snapshot: %w", err)
	}
	t := h.CreatedAt
	return &t, nil
}

func (s *Store) deleteSnapshotChildren(ids []string) error {
	if err := s.db.Delete(&types.SnapshotTab{}, "snapshot_id IN ?", ids).Error; err != nil {
		return fmt.Errorf("failed to delete snapshot tabs: %w", err)
	}
	if err := s.db.Delete(&types.SnapshotTabGroup{}, "snapshot_id IN ?", ids).Error; err != nil {
		return fmt.Errorf("failed to delete snapshot groups: %w", err)
	}
	return nil
}
