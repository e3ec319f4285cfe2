package workspace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tabvault/tabvault/internal/browser"
	"github.com/tabvault/tabvault/internal/browser/browsertest"
	"github.com/tabvault/tabvault/internal/infrastructure/logging"
	"github.com/tabvault/tabvault/internal/shared/id"
	"github.com/tabvault/tabvault/internal/shared/types"
	"github.com/tabvault/tabvault/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.Store, *browsertest.Fake) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	fake := browsertest.New()
	m := NewManager(st, fake, "chrome-extension://", logging.NewNop()).WithBookmarker(fake)
	return m, st, fake
}

func liveTab(t *testing.T, st *store.Store, fake *browsertest.Fake, wsID, winID int64, index int, url string) *types.Tab {
	t.Helper()
	ext := fake.OpenTab(winID, url, url)
	row := &types.Tab{
		StableID:    string(id.NewTabStableID()),
		ExtID:       ext.ID,
		WindowID:    winID,
		WorkspaceID: wsID,
		Index:       index,
		URL:         url,
		Title:       url,
		TabStatus:   types.StatusActive,
	}
	require.NoError(t, st.InsertTab(row))
	return row
}

func archivedTab(t *testing.T, st *store.Store, wsID, winID int64, index int, url string) *types.Tab {
	t.Helper()
	row := &types.Tab{
		StableID:    string(id.NewTabStableID()),
		ExtID:       int64(1000 + index),
		WindowID:    winID,
		WorkspaceID: wsID,
		Index:       index,
		URL:         url,
		Title:       url,
		TabStatus:   types.StatusArchived,
	}
	require.NoError(t, st.InsertTab(row))
	return row
}

func TestActivateUnknownWorkspace(t *testing.T) {
	m, _, _ := newTestManager(t)
	err := m.Activate(context.Background(), 404, ActivateOptions{})
	require.ErrorIs(t, err, ErrWorkspaceNotFound)
}

func TestActivateCurrentIsNoop(t *testing.T) {
	m, st, fake := newTestManager(t)

	liveTab(t, st, fake, types.UnassignedWorkspaceID, 1, 0, "https://a.test")
	require.NoError(t, m.Activate(context.Background(), types.UnassignedWorkspaceID, ActivateOptions{}))

	// Nothing archived, nothing closed.
	tabs, err := st.ActiveTabsByWorkspace(types.UnassignedWorkspaceID)
	require.NoError(t, err)
	require.Len(t, tabs, 1)
	require.Empty(t, fake.Closed)
}

func TestActivateArchivesOutgoingAndMaterializesIncoming(t *testing.T) {
	m, st, fake := newTestManager(t)

	incoming, err := m.Create("work")
	require.NoError(t, err)

	// Outgoing live state under the unassigned pseudo-workspace.
	out := liveTab(t, st, fake, types.UnassignedWorkspaceID, 1, 0, "https://old.test")

	// Incoming stored state: two windows, three tabs.
	archivedTab(t, st, incoming.ID, 10, 0, "https://a.test")
	archivedTab(t, st, incoming.ID, 10, 1, "https://b.test")
	archivedTab(t, st, incoming.ID, 20, 0, "https://c.test")

	require.NoError(t, m.Activate(context.Background(), incoming.ID, ActivateOptions{}))

	// Single active workspace.
	active, err := st.ActiveWorkspaceID()
	require.NoError(t, err)
	require.Equal(t, incoming.ID, active)

	// Outgoing row archived, its browser tab closed.
	gone, err := st.TabByStableID(out.StableID)
	require.NoError(t, err)
	require.Equal(t, types.StatusArchived, gone.TabStatus)
	require.Contains(t, fake.Closed, out.ExtID)

	// Incoming rows are live again with fresh external ids and contiguous
	// indices, windows preserved as two distinct windows.
	live, err := st.ActiveTabsByWorkspace(incoming.ID)
	require.NoError(t, err)
	require.Len(t, live, 3)

	windows := make(map[int64][]types.Tab)
	for _, row := range live {
		windows[row.WindowID] = append(windows[row.WindowID], row)
	}
	require.Len(t, windows, 2)
	for _, rows := range windows {
		for i, row := range rows {
			require.Equal(t, i, row.Index)
		}
	}

	// No archived leftovers for the incoming workspace.
	leftovers, err := st.ArchivedTabsByWorkspace(incoming.ID)
	require.NoError(t, err)
	require.Empty(t, leftovers)

	// The browser really holds the recreated tabs.
	var total int
	for _, winID := range fake.Windows() {
		total += len(fake.TabsInWindow(winID))
	}
	require.Equal(t, 3, total)
}

func TestActivatePreservesStableIDs(t *testing.T) {
	m, st, _ := newTestManager(t)

	incoming, err := m.Create("work")
	require.NoError(t, err)
	row := archivedTab(t, st, incoming.ID, 10, 0, "https://a.test")

	require.NoError(t, m.Activate(context.Background(), incoming.ID, ActivateOptions{}))

	got, err := st.TabByStableID(row.StableID)
	require.NoError(t, err)
	require.Equal(t, types.StatusActive, got.TabStatus)
	require.NotEqual(t, row.ExtID, got.ExtID)
}

func TestActivateRebuildsGroups(t *testing.T) {
	m, st, fake := newTestManager(t)

	incoming, err := m.Create("work")
	require.NoError(t, err)

	group := &types.TabGroup{
		StableID:    string(id.NewGroupStableID()),
		ExtID:       9,
		WindowID:    10,
		WorkspaceID: incoming.ID,
		Title:       "docs",
		Color:       "blue",
		GroupStatus: types.StatusArchived,
	}
	require.NoError(t, st.InsertGroup(group))

	a := archivedTab(t, st, incoming.ID, 10, 0, "https://a.test")
	b := archivedTab(t, st, incoming.ID, 10, 1, "https://b.test")
	for _, row := range []*types.Tab{a, b} {
		row.GroupStableID = &group.StableID
		require.NoError(t, st.SaveTab(row))
	}

	require.NoError(t, m.Activate(context.Background(), incoming.ID, ActivateOptions{}))

	got, err := st.GroupByStableID(group.StableID)
	require.NoError(t, err)
	require.Equal(t, types.StatusActive, got.GroupStatus)
	require.NotEqual(t, int64(9), got.ExtID)

	ext, ok := fake.Group(got.ExtID)
	require.True(t, ok)
	require.Equal(t, "docs", ext.Title)
	require.Equal(t, "blue", ext.Color)

	for _, row := range []*types.Tab{a, b} {
		member, err := st.TabByStableID(row.StableID)
		require.NoError(t, err)
		require.NotNil(t, member.GroupID)
		require.Equal(t, got.ExtID, *member.GroupID)
	}
}

func TestActivateSkipsFailedTabsAndKeepsContiguity(t *testing.T) {
	m, st, fake := newTestManager(t)

	incoming, err := m.Create("work")
	require.NoError(t, err)
	archivedTab(t, st, incoming.ID, 10, 0, "https://a.test")
	archivedTab(t, st, incoming.ID, 10, 1, "https://b.test")
	archivedTab(t, st, incoming.ID, 10, 2, "https://c.test")

	fake.CreateTabErr = browser.ErrNotConnected
	require.NoError(t, m.Activate(context.Background(), incoming.ID, ActivateOptions{}))

	// Every tab failed to materialize; the workspace is still active and the
	// failed copies were purged for the reconciler to repair from live state.
	active, err := st.ActiveWorkspaceID()
	require.NoError(t, err)
	require.Equal(t, incoming.ID, active)

	live, err := st.ActiveTabsByWorkspace(incoming.ID)
	require.NoError(t, err)
	require.Empty(t, live)
}

func TestActivateSkipTabSwitching(t *testing.T) {
	m, st, fake := newTestManager(t)

	incoming, err := m.Create("work")
	require.NoError(t, err)
	row := archivedTab(t, st, incoming.ID, 10, 0, "https://a.test")

	require.NoError(t, m.Activate(context.Background(), incoming.ID, ActivateOptions{SkipTabSwitching: true}))

	// Rows flipped in place: same external id, no browser calls.
	got, err := st.TabByStableID(row.StableID)
	require.NoError(t, err)
	require.Equal(t, types.StatusActive, got.TabStatus)
	require.Equal(t, row.ExtID, got.ExtID)
	require.Empty(t, fake.Closed)
	require.Empty(t, fake.TabsInWindow(10))
}

func TestDeleteReattributesLiveRows(t *testing.T) {
	m, st, fake := newTestManager(t)

	ws, err := m.Create("work")
	require.NoError(t, err)
	live := liveTab(t, st, fake, ws.ID, 1, 0, "https://a.test")
	archived := archivedTab(t, st, ws.ID, 1, 1, "https://b.test")

	require.NoError(t, m.Delete(ws.ID))

	_, err = st.GetWorkspace(ws.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := st.TabByStableID(live.StableID)
	require.NoError(t, err)
	require.Equal(t, types.UnassignedWorkspaceID, got.WorkspaceID)

	_, err = st.TabByStableID(archived.StableID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSortTabsByHost(t *testing.T) {
	m, st, fake := newTestManager(t)

	liveTab(t, st, fake, types.UnassignedWorkspaceID, 1, 0, "https://c.test/x")
	liveTab(t, st, fake, types.UnassignedWorkspaceID, 1, 1, "https://a.test/y")
	liveTab(t, st, fake, types.UnassignedWorkspaceID, 1, 2, "https://b.test/z")

	require.NoError(t, m.SortTabs(context.Background(), types.UnassignedWorkspaceID, types.SortByHost))

	rows, err := st.ActiveTabsInWindow(1)
	require.NoError(t, err)
	require.Equal(t, "https://a.test/y", rows[0].URL)
	require.Equal(t, "https://b.test/z", rows[1].URL)
	require.Equal(t, "https://c.test/x", rows[2].URL)
	for i, row := range rows {
		require.Equal(t, i, row.Index)
	}
	require.NotEmpty(t, fake.Moves)
}

func TestGroupTabsBucketsByHost(t *testing.T) {
	m, st, fake := newTestManager(t)

	liveTab(t, st, fake, types.UnassignedWorkspaceID, 1, 0, "https://a.test/1")
	liveTab(t, st, fake, types.UnassignedWorkspaceID, 1, 1, "https://a.test/2")
	solo := liveTab(t, st, fake, types.UnassignedWorkspaceID, 1, 2, "https://b.test/1")

	require.NoError(t, m.GroupTabs(context.Background(), types.UnassignedWorkspaceID, types.SortByHost))

	groups, err := fake.QueryGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)

	// The single-tab host stays ungrouped.
	tabs, err := fake.QueryTabs(context.Background())
	require.NoError(t, err)
	for _, ext := range tabs {
		if ext.ID == solo.ExtID {
			require.Equal(t, browser.NoGroup, ext.GroupID)
		} else {
			require.Equal(t, groups[0].ID, ext.GroupID)
		}
	}
}

func TestGroupTabsBucketsByTitle(t *testing.T) {
	m, st, fake := newTestManager(t)

	first := liveTab(t, st, fake, types.UnassignedWorkspaceID, 1, 0, "https://a.test/1")
	second := liveTab(t, st, fake, types.UnassignedWorkspaceID, 1, 1, "https://b.test/1")
	for _, row := range []*types.Tab{first, second} {
		row.Title = "docs"
		require.NoError(t, st.SaveTab(row))
	}

	require.NoError(t, m.GroupTabs(context.Background(), types.UnassignedWorkspaceID, types.SortByTitle))

	groups, err := fake.QueryGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
}

func TestConvertGroupToResource(t *testing.T) {
	m, st, fake := newTestManager(t)

	ws, err := m.Create("research")
	require.NoError(t, err)

	group := &types.TabGroup{
		StableID:    string(id.NewGroupStableID()),
		ExtID:       9,
		WindowID:    1,
		WorkspaceID: ws.ID,
		Title:       "papers",
		GroupStatus: types.StatusActive,
	}
	require.NoError(t, st.InsertGroup(group))

	a := liveTab(t, st, fake, ws.ID, 1, 0, "https://a.test")
	b := liveTab(t, st, fake, ws.ID, 1, 1, "https://b.test")
	for _, row := range []*types.Tab{a, b} {
		row.GroupStableID = &group.StableID
		require.NoError(t, st.SaveTab(row))
	}

	require.NoError(t, m.ConvertGroupToResource(context.Background(), group.StableID))

	// Bookmarked once with both URLs, in index order.
	require.Len(t, fake.Saved, 1)
	require.Equal(t, "papers", fake.Saved[0].Title)
	require.Equal(t, []string{"https://a.test", "https://b.test"}, fake.Saved[0].URLs)

	// Resource recorded on the workspace.
	got, err := st.GetWorkspace(ws.ID)
	require.NoError(t, err)
	require.Len(t, got.ResourceGroupIDs, 1)

	// Members archived and closed in the browser.
	for _, row := range []*types.Tab{a, b} {
		member, err := st.TabByStableID(row.StableID)
		require.NoError(t, err)
		require.Equal(t, types.StatusArchived, member.TabStatus)
		require.Contains(t, fake.Closed, row.ExtID)
	}

	gotGroup, err := st.GroupByStableID(group.StableID)
	require.NoError(t, err)
	require.Equal(t, types.StatusArchived, gotGroup.GroupStatus)
}

func TestConvertGroupUnknown(t *testing.T) {
	m, _, _ := newTestManager(t)
	err := m.ConvertGroupToResource(context.Background(), "grp_missing")
	require.ErrorIs(t, err, ErrGroupNotFound)
}
