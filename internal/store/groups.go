package store

import (
	"fmt"
	"time"

	"github.com/tabvault/tabvault/internal/shared/types"
)

// InsertGroup inserts a mirrored group row.
func (s *Store) InsertGroup(g *types.TabGroup) error {
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = now
	}
	if err := s.db.Create(g).Error; err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

// GroupByExtID finds the active row mirroring a live external group id.
func (s *Store) GroupByExtID(extID int64) (*types.TabGroup, error) {
	var g types.TabGroup
	err := s.db.Where("ext_id = ? AND group_status = ?", extID, types.StatusActive).
		First(&g).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &g, nil
}

// GroupByStableID finds a group row by its permanent id.
func (s *Store) GroupByStableID(stableID string) (*types.TabGroup, error) {
	var g types.TabGroup
	if err := s.db.First(&g, "stable_id = ?", stableID).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &g, nil
}

// SaveGroup persists all fields of a group row and bumps its updated time.
func (s *Store) SaveGroup(g *types.TabGroup) error {
	g.UpdatedAt = time.Now().UTC()
	if err := s.db.Save(g).Error; err != nil {
		return fmt.Errorf("failed to save group: %w", err)
	}
	return nil
}

// DeleteGroup removes a group row by stable id.
func (s *Store) DeleteGroup(stableID string) error {
	res := s.db.Delete(&types.TabGroup{}, "stable_id = ?", stableID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete group: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveGroupsByWorkspace returns a workspace's live groups.
func (s *Store) ActiveGroupsByWorkspace(wsID int64) ([]types.TabGroup, error) {
	return s.groupsByWorkspace(wsID, types.StatusActive)
}

// ArchivedGroupsByWorkspace returns a workspace's archived groups.
func (s *Store) ArchivedGroupsByWorkspace(wsID int64) ([]types.TabGroup, error) {
	return s.groupsByWorkspace(wsID, types.StatusArchived)
}

func (s *Store) groupsByWorkspace(wsID int64, status types.Status) ([]types.TabGroup, error) {
	var out []types.TabGroup
	err := s.db.Where("workspace_id = ? AND group_status = ?", wsID, status).
		Order("window_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace groups: %w", err)
	}
	return out, nil
}

// ArchiveWorkspaceGroups flips a workspace's live group rows to archived.
func (s *Store) ArchiveWorkspaceGroups(wsID int64) error {
	err := s.db.Model(&types.TabGroup{}).
		Where("workspace_id = ? AND group_status = ?", wsID, types.StatusActive).
		Updates(map[string]interface{}{
			"group_status": types.StatusArchived,
			"updated_at":   time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to archive workspace groups: %w", err)
	}
	return nil
}

// PurgeArchivedGroups deletes remaining archived group rows of a workspace.
func (s *Store) PurgeArchivedGroups(wsID int64) error {
	err := s.db.Delete(&types.TabGroup{},
		"workspace_id = ? AND group_status = ?", wsID, types.StatusArchived).Error
	if err != nil {
		return fmt.Errorf("failed to purge archived groups: %w", err)
	}
	return nil
}
