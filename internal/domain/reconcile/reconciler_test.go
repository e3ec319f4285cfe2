package reconcile

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

type fixedActive struct{ id int64 }

func (f fixedActive) ActiveWorkspaceID() (int64, error) { return f.id, nil }

func newTestReconciler(t *testing.T, activeID int64) (*Reconciler, *store.Store, *browsertest.Fake) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	fake := browsertest.New()
	r := New(st, fake, fixedActive{activeID}, "chrome-extension://", logging.NewNop())
	return r, st, fake
}

func storeTab(wsID, winID, extID int64, index int, url string) *types.Tab {
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

func TestRunInsertsUnseenTabs(t *testing.T) {
	r, st, fake := newTestReconciler(t, -1)

	a := fake.OpenTab(1, "https://a.test", "a")
	b := fake.OpenTab(1, "https://b.test", "b")

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.Inserted)

	for _, ext := range []browser.Tab{a, b} {
		row, err := st.TabByExtID(ext.ID)
		require.NoError(t, err)
		require.Equal(t, ext.URL, row.URL)
		require.Equal(t, ext.Index, row.Index)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	r, _, fake := newTestReconciler(t, -1)

	fake.OpenTab(1, "https://a.test", "a")
	fake.OpenTab(2, "https://b.test", "b")

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	require.True(t, stats.Empty(), "second pass over unchanged state must be a no-op, got %+v", stats)
}

func TestRunCorrectsDriftedIndex(t *testing.T) {
	r, st, fake := newTestReconciler(t, -1)

	ext := fake.OpenTab(1, "https://a.test", "a")

	// Stored row drifted: wrong index, stale title.
	row := storeTab(-1, 1, ext.ID, 2, "https://a.test")
	row.Title = "old"
	require.NoError(t, st.InsertTab(row))

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Updated)

	got, err := st.TabByStableID(row.StableID)
	require.NoError(t, err)
	require.Equal(t, 0, got.Index)
	require.Equal(t, "a", got.Title)
}

func TestRunMatchesByURLAfterIDChurn(t *testing.T) {
	r, st, fake := newTestReconciler(t, -1)

	ext := fake.OpenTab(1, "https://a.test", "a")

	// Stored under an external id the browser no longer uses.
	row := storeTab(-1, 1, ext.ID+9000, 0, "https://a.test")
	require.NoError(t, st.InsertTab(row))

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.URLMatched)
	require.Zero(t, stats.Inserted)
	require.Zero(t, stats.Deleted)

	// Same stable id, adopted external id.
	got, err := st.TabByStableID(row.StableID)
	require.NoError(t, err)
	require.Equal(t, ext.ID, got.ExtID)
}

func TestRunDeletesStaleRows(t *testing.T) {
	r, st, _ := newTestReconciler(t, -1)

	row := storeTab(-1, 1, 10, 0, "https://gone.test")
	require.NoError(t, st.InsertTab(row))

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Deleted)

	_, err = st.TabByStableID(row.StableID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunSkipsDashboardTabs(t *testing.T) {
	r, st, fake := newTestReconciler(t, -1)

	dash := fake.OpenTab(1, "chrome-extension://abc/dashboard.html", "dashboard")

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.Inserted)

	_, err = st.TabByExtID(dash.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunLeavesOtherWorkspacesAlone(t *testing.T) {
	r, st, _ := newTestReconciler(t, -1)

	// Archived rows of an inactive workspace are not part of the live view.
	archived := storeTab(5, 1, 10, 0, "https://kept.test")
	archived.TabStatus = types.StatusArchived
	require.NoError(t, st.InsertTab(archived))

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.Deleted)

	_, err = st.TabByStableID(archived.StableID)
	require.NoError(t, err)
}

func TestRunMirrorsUnknownGroups(t *testing.T) {
	r, st, fake := newTestReconciler(t, -1)

	ext := fake.OpenTab(1, "https://a.test", "a")
	gid, err := fake.GroupTabs(context.Background(), 1, []int64{ext.ID})
	require.NoError(t, err)
	require.NoError(t, fake.UpdateGroup(context.Background(), gid, browser.GroupUpdate{Title: "docs", Color: "blue"}))

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Groups)
	require.Equal(t, 1, stats.Inserted)

	group, err := st.GroupByExtID(gid)
	require.NoError(t, err)
	require.Equal(t, "docs", group.Title)

	row, err := st.TabByExtID(ext.ID)
	require.NoError(t, err)
	require.NotNil(t, row.GroupStableID)
	require.Equal(t, group.StableID, *row.GroupStableID)
}

func TestRunCleansEmptiedGroups(t *testing.T) {
	r, st, _ := newTestReconciler(t, -1)

	group := &types.TabGroup{
		StableID:    string(id.NewGroupStableID()),
		ExtID:       9,
		WindowID:    1,
		WorkspaceID: -1,
		GroupStatus: types.StatusActive,
	}
	require.NoError(t, st.InsertGroup(group))

	member := storeTab(-1, 1, 10, 0, "https://gone.test")
	member.GroupStableID = &group.StableID
	require.NoError(t, st.InsertTab(member))

	// Both the member and the group vanished from the browser.
	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Deleted)
	require.Equal(t, 1, stats.Groups)

	_, err = st.GroupByStableID(group.StableID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
