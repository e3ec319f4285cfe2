// Package browsertest provides an in-memory browser for domain tests. It
// keeps per-window index contiguity the way a real browser does, so ordering
// assertions exercise the same arithmetic as production.
package browsertest

import (
	"context"
	"sort"
	"sync"

	"github.com/tabvault/tabvault/internal/browser"
)

// Move records one MoveTab call.
type Move struct {
	TabID    int64
	WindowID int64
	Index    int
}

// SavedGroup records one SaveTabGroup call.
type SavedGroup struct {
	Title string
	URLs  []string
}

// Fake is an in-memory browser.Controller and browser.Bookmarker.
type Fake struct {
	mu sync.Mutex

	nextTabID    int64
	nextWindowID int64
	nextGroupID  int64

	// CurrentWinID is returned by CurrentWindow; DashboardWinID by
	// DashboardWindow when non-zero.
	CurrentWinID   int64
	DashboardWinID int64

	tabs   map[int64]*browser.Tab
	groups map[int64]*browser.Group

	// Failure injection for per-item skip paths.
	CreateTabErr    error
	CreateWindowErr error

	Closed []int64
	Moves  []Move
	Saved  []SavedGroup
}

var (
	_ browser.Controller = (*Fake)(nil)
	_ browser.Bookmarker = (*Fake)(nil)
)

// New creates a fake with one open window.
func New() *Fake {
	return &Fake{
		nextTabID:    100,
		nextWindowID: 2,
		nextGroupID:  500,
		CurrentWinID: 1,
		tabs:         make(map[int64]*browser.Tab),
		groups:       make(map[int64]*browser.Group),
	}
}

// OpenTab seeds a tab at the end of a window and returns it, for test setup
// outside the Controller surface.
func (f *Fake) OpenTab(windowID int64, url, title string) browser.Tab {
	tab, err := f.CreateTabIn(context.Background(), browser.CreateTab{WindowID: windowID, URL: url})
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	f.tabs[tab.ID].Title = title
	tab.Title = title
	f.mu.Unlock()
	return tab
}

// TabsInWindow returns the window's tabs in index order.
func (f *Fake) TabsInWindow(windowID int64) []browser.Tab {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []browser.Tab
	for _, t := range f.tabs {
		if t.WindowID == windowID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Windows returns the distinct window ids holding tabs, ascending.
func (f *Fake) Windows() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[int64]bool)
	var out []int64
	for _, t := range f.tabs {
		if !seen[t.WindowID] {
			seen[t.WindowID] = true
			out = append(out, t.WindowID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Group returns a group by id.
func (f *Fake) Group(id int64) (browser.Group, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	if !ok {
		return browser.Group{}, false
	}
	return *g, true
}

func (f *Fake) QueryTabs(ctx context.Context) ([]browser.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]browser.Tab, 0, len(f.tabs))
	for _, t := range f.tabs {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WindowID != out[j].WindowID {
			return out[i].WindowID < out[j].WindowID
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

func (f *Fake) QueryGroups(ctx context.Context) ([]browser.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]browser.Group, 0, len(f.groups))
	for _, g := range f.groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) CreateWindow(ctx context.Context) (int64, error) {
	if f.CreateWindowErr != nil {
		return 0, f.CreateWindowErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextWindowID
	f.nextWindowID++
	return id, nil
}

func (f *Fake) CurrentWindow(ctx context.Context) (int64, error) {
	return f.CurrentWinID, nil
}

func (f *Fake) DashboardWindow(ctx context.Context) (int64, bool, error) {
	if f.DashboardWinID == 0 {
		return 0, false, nil
	}
	return f.DashboardWinID, true, nil
}

func (f *Fake) CreateTabIn(ctx context.Context, opts browser.CreateTab) (browser.Tab, error) {
	if f.CreateTabErr != nil {
		return browser.Tab{}, f.CreateTabErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &browser.Tab{
		ID:       f.nextTabID,
		WindowID: opts.WindowID,
		Index:    f.windowSize(opts.WindowID),
		URL:      opts.URL,
		Pinned:   opts.Pinned,
		GroupID:  browser.NoGroup,
	}
	f.nextTabID++
	f.tabs[t.ID] = t
	return *t, nil
}

func (f *Fake) CloseTab(ctx context.Context, tabID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tabs[tabID]
	if !ok {
		return nil
	}
	delete(f.tabs, tabID)
	f.Closed = append(f.Closed, tabID)
	for _, other := range f.tabs {
		if other.WindowID == t.WindowID && other.Index > t.Index {
			other.Index--
		}
	}
	return nil
}

func (f *Fake) MoveTab(ctx context.Context, tabID, windowID int64, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tabs[tabID]
	if !ok {
		return nil
	}
	f.Moves = append(f.Moves, Move{TabID: tabID, WindowID: windowID, Index: index})

	// Close the source slot, open the destination slot.
	for _, other := range f.tabs {
		if other.ID != tabID && other.WindowID == t.WindowID && other.Index > t.Index {
			other.Index--
		}
	}
	for _, other := range f.tabs {
		if other.ID != tabID && other.WindowID == windowID && other.Index >= index {
			other.Index++
		}
	}
	t.WindowID = windowID
	t.Index = index
	return nil
}

func (f *Fake) GroupTabs(ctx context.Context, windowID int64, tabIDs []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextGroupID
	f.nextGroupID++
	f.groups[id] = &browser.Group{ID: id, WindowID: windowID}
	for _, tabID := range tabIDs {
		if t, ok := f.tabs[tabID]; ok {
			t.GroupID = id
		}
	}
	return id, nil
}

func (f *Fake) UngroupTabs(ctx context.Context, tabIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, tabID := range tabIDs {
		if t, ok := f.tabs[tabID]; ok {
			t.GroupID = browser.NoGroup
		}
	}
	// Drop groups left without members.
	for id := range f.groups {
		if f.groupSize(id) == 0 {
			delete(f.groups, id)
		}
	}
	return nil
}

func (f *Fake) UpdateGroup(ctx context.Context, groupID int64, upd browser.GroupUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.groups[groupID]
	if !ok {
		return nil
	}
	g.Title = upd.Title
	g.Color = upd.Color
	g.Collapsed = upd.Collapsed
	return nil
}

func (f *Fake) SaveTabGroup(ctx context.Context, title string, urls []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Saved = append(f.Saved, SavedGroup{Title: title, URLs: urls})
	return "res_" + title, nil
}

func (f *Fake) windowSize(windowID int64) int {
	n := 0
	for _, t := range f.tabs {
		if t.WindowID == windowID {
			n++
		}
	}
	return n
}

func (f *Fake) groupSize(groupID int64) int {
	n := 0
	for _, t := range f.tabs {
		if t.GroupID == groupID {
			n++
		}
	}
	return n
}
