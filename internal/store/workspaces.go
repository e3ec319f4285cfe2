package store

import (
	"fmt"
	"time"

	"github.com/tabvault/tabvault/internal/shared/types"
)

// CreateWorkspace inserts a workspace row.
func (s *Store) CreateWorkspace(ws *types.Workspace) error {
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Create(ws).Error; err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

// GetWorkspace retrieves a workspace by id.
func (s *Store) GetWorkspace(id int64) (*types.Workspace, error) {
	var ws types.Workspace
	if err := s.db.First(&ws, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &ws, nil
}

// ListWorkspaces returns all workspaces, most recently opened first.
func (s *Store) ListWorkspaces() ([]types.Workspace, error) {
	var out []types.Workspace
	if err := s.db.Order("last_opened DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return out, nil
}

// UpdateWorkspace saves all fields of a workspace row.
func (s *Store) UpdateWorkspace(ws *types.Workspace) error {
	if err := s.db.Save(ws).Error; err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}
	return nil
}

// DeleteWorkspace removes a workspace row. The unassigned pseudo-workspace
// cannot be deleted.
func (s *Store) DeleteWorkspace(id int64) error {
	if id == types.UnassignedWorkspaceID {
		return fmt.Errorf("store: unassigned workspace cannot be deleted")
	}
	res := s.db.Delete(&types.Workspace{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete workspace: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveWorkspaceID returns the id of the single active workspace, or the
// unassigned pseudo-workspace when none is flagged.
func (s *Store) ActiveWorkspaceID() (int64, error) {
	var ws types.Workspace
	err := s.db.Where("active = ?", true).First(&ws).Error
	if err != nil {
		if wrapNotFound(err) == ErrNotFound {
			return types.UnassignedWorkspaceID, nil
		}
		return 0, fmt.Errorf("failed to read active workspace: %w", err)
	}
	return ws.ID, nil
}

// SetActiveWorkspace flips the single active flag to the target workspace
// and stamps its last-opened time. Run inside the switch transaction.
func (s *Store) SetActiveWorkspace(id int64) error {
	if err := s.db.Model(&types.Workspace{}).
		Where("active = ?", true).
		Update("active", false).Error; err != nil {
		return fmt.Errorf("failed to clear active flags: %w", err)
	}
	now := time.Now().UTC()
	res := s.db.Model(&types.Workspace{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"active": true, "last_opened": now})
	if res.Error != nil {
		return fmt.Errorf("failed to set active workspace: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendResourceGroupID records a bookmarking collaborator's resource group
// on the workspace.
func (s *Store) AppendResourceGroupID(wsID int64, resourceID string) error {
	ws, err := s.GetWorkspace(wsID)
	if err != nil {
		return err
	}
	ws.ResourceGroupIDs = append(ws.ResourceGroupIDs, resourceID)
	return s.UpdateWorkspace(ws)
}

// CreateWorkspaceGroup inserts a workspace folder.
func (s *Store) CreateWorkspaceGroup(g *types.WorkspaceGroup) error {
	if err := s.db.Create(g).Error; err != nil {
		return fmt.Errorf("failed to create workspace group: %w", err)
	}
	return nil
}

// ListWorkspaceGroups returns all workspace folders.
func (s *Store) ListWorkspaceGroups() ([]types.WorkspaceGroup, error) {
	var out []types.WorkspaceGroup
	if err := s.db.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list workspace groups: %w", err)
	}
	return out, nil
}

// UpdateWorkspaceGroup saves a workspace folder.
func (s *Store) UpdateWorkspaceGroup(g *types.WorkspaceGroup) error {
	if err := s.db.Save(g).Error; err != nil {
		return fmt.Errorf("failed to update workspace group: %w", err)
	}
	return nil
}

// DeleteWorkspaceGroup removes a workspace folder; member workspaces are
// detached, not deleted.
func (s *Store) DeleteWorkspaceGroup(id int64) error {
	return s.Tx(func(tx *Store) error {
		if err := tx.db.Model(&types.Workspace{}).
			Where("group_id = ?", id).
			Update("group_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach workspaces: %w", err)
		}
		if err := tx.db.Delete(&types.WorkspaceGroup{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete workspace group: %w", err)
		}
		return nil
	})
}
