package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tabvault/tabvault/internal/shared/id"
	"github.com/tabvault/tabvault/internal/shared/types"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mkTab(wsID, winID, extID int64, index int, url string) *types.Tab {
	return &types.Tab{
		StableID:    string(id.NewTabStableID()),
		ExtID:       extID,
		WindowID:    winID,
		WorkspaceID: wsID,
		Index:       index,
		URL:         url,
		TabStatus:   types.StatusActive,
	}
}

func TestOpenSeedsUnassigned(t *testing.T) {
	s := openTest(t)

	ws, err := s.GetWorkspace(types.UnassignedWorkspaceID)
	require.NoError(t, err)
	require.Equal(t, "Unassigned", ws.Name)
	require.True(t, ws.Active)

	active, err := s.ActiveWorkspaceID()
	require.NoError(t, err)
	require.Equal(t, types.UnassignedWorkspaceID, active)
}

func TestReopenKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	ws := &types.Workspace{Name: "work"}
	require.NoError(t, s.CreateWorkspace(ws))
	require.NoError(t, s.SetActiveWorkspace(ws.ID))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	active, err := s.ActiveWorkspaceID()
	require.NoError(t, err)
	require.Equal(t, ws.ID, active)

	// Reopening must not reactivate or duplicate the seed row.
	list, err := s.ListWorkspaces()
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestSetActiveWorkspaceIsExclusive(t *testing.T) {
	s := openTest(t)

	a := &types.Workspace{Name: "a"}
	b := &types.Workspace{Name: "b"}
	require.NoError(t, s.CreateWorkspace(a))
	require.NoError(t, s.CreateWorkspace(b))

	require.NoError(t, s.SetActiveWorkspace(a.ID))
	require.NoError(t, s.SetActiveWorkspace(b.ID))

	list, err := s.ListWorkspaces()
	require.NoError(t, err)

	activeCount := 0
	for _, ws := range list {
		if ws.Active {
			activeCount++
			require.Equal(t, b.ID, ws.ID)
			require.NotNil(t, ws.LastOpened)
		}
	}
	require.Equal(t, 1, activeCount)
}

func TestDeleteWorkspaceRefusesUnassigned(t *testing.T) {
	s := openTest(t)
	require.Error(t, s.DeleteWorkspace(types.UnassignedWorkspaceID))
}

func TestTxRollsBack(t *testing.T) {
	s := openTest(t)

	boom := errors.New("boom")
	err := s.Tx(func(tx *Store) error {
		if err := tx.InsertTab(mkTab(-1, 1, 10, 0, "https://a.test")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.TabByExtID(10)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestWorkspaceGroupDeleteDetachesMembers(t *testing.T) {
	s := openTest(t)

	g := &types.WorkspaceGroup{Name: "clients"}
	require.NoError(t, s.CreateWorkspaceGroup(g))

	ws := &types.Workspace{Name: "acme", GroupID: &g.ID}
	require.NoError(t, s.CreateWorkspace(ws))

	require.NoError(t, s.DeleteWorkspaceGroup(g.ID))

	got, err := s.GetWorkspace(ws.ID)
	require.NoError(t, err)
	require.Nil(t, got.GroupID)
}

func TestAppendResourceGroupID(t *testing.T) {
	s := openTest(t)

	ws := &types.Workspace{Name: "research"}
	require.NoError(t, s.CreateWorkspace(ws))

	require.NoError(t, s.AppendResourceGroupID(ws.ID, "res_1"))
	require.NoError(t, s.AppendResourceGroupID(ws.ID, "res_2"))

	got, err := s.GetWorkspace(ws.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"res_1", "res_2"}, got.ResourceGroupIDs)
}
