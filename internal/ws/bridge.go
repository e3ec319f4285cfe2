package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tabvault/tabvault/internal/browser"
	"github.com/tabvault/tabvault/internal/infrastructure/logging"
	"github.com/tabvault/tabvault/internal/infrastructure/monitoring"
	"github.com/tabvault/tabvault/internal/shared/id"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The extension host connects from its own origin.
		return true
	},
}

// callTimeout bounds a single browser round-trip when the caller's context
// carries no deadline of its own.
const callTimeout = 30 * time.Second

// EventSink receives decoded browser events in arrival order.
type EventSink interface {
	Apply(ev browser.Event) error
}

// envelope is the wire frame in both directions.
type envelope struct {
	Type   string          `json:"type"`
	ID     string          `json:"id,omitempty"`
	Event  string          `json:"event,omitempty"`
	Op     string          `json:"op,omitempty"`
	Params any             `json:"params,omitempty"`
	OK     bool            `json:"ok,omitempty"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type callResult struct {
	data json.RawMessage
	err  error
}

// Bridge multiplexes events and calls over one extension connection. It
// implements browser.Controller and browser.Bookmarker.
type Bridge struct {
	sink    EventSink
	log     *logging.Logger
	metrics *monitoring.Metrics

	connMu sync.Mutex
	conn   *websocket.Conn

	pendingMu sync.Mutex
	pending   map[string]chan callResult
}

var (
	_ browser.Controller = (*Bridge)(nil)
	_ browser.Bookmarker = (*Bridge)(nil)
)

// NewBridge creates a bridge that forwards events to sink.
func NewBridge(sink EventSink, log *logging.Logger) *Bridge {
	return &Bridge{
		sink:    sink,
		log:     log,
		pending: make(map[string]chan callResult),
	}
}

// WithMetrics adds metrics tracking to the bridge.
func (b *Bridge) WithMetrics(m *monitoring.Metrics) *Bridge {
	b.metrics = m
	return b
}

// HandleConnection upgrades the request and runs the read loop until the
// extension disconnects. A new connection replaces any existing one.
func (b *Bridge) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		b.log.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	b.attach(conn)
	b.metrics.BridgeConnected(+1)
	b.log.Info("Extension host connected", zap.String("conn_id", connID))

	defer func() {
		b.detach(conn)
		b.metrics.BridgeConnected(-1)
		conn.Close()
		b.log.Info("Extension host disconnected", zap.String("conn_id", connID))
	}()

	b.writeJSON(conn, envelope{Type: "system", Data: json.RawMessage(`"connected"`)})

	for {
		var msg envelope
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.log.Warn("WebSocket read error", zap.String("conn_id", connID), zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "event":
			b.handleEvent(msg)
		case "result":
			b.resolve(msg)
		case "ping":
			b.writeJSON(conn, envelope{Type: "pong"})
		default:
			b.log.Warn("Unknown message type",
				zap.String("conn_id", connID),
				zap.String("type", msg.Type),
			)
		}
	}
}

// handleEvent decodes and applies one event inline with the read loop, so
// events mutate the store strictly in the order the browser emitted them.
func (b *Bridge) handleEvent(msg envelope) {
	ev, err := browser.DecodeEvent(msg.Event, msg.Data)
	if err != nil {
		b.log.Warn("Undecodable event", zap.String("event", msg.Event), zap.Error(err))
		return
	}
	if err := b.sink.Apply(ev); err != nil {
		b.log.Error("Event apply failed", zap.String("event", msg.Event), zap.Error(err))
	}
}

func (b *Bridge) resolve(msg envelope) {
	b.pendingMu.Lock()
	ch, ok := b.pending[msg.ID]
	if ok {
		delete(b.pending, msg.ID)
	}
	b.pendingMu.Unlock()

	if !ok {
		b.log.Warn("Result for unknown request", zap.String("request_id", msg.ID))
		return
	}
	if !msg.OK {
		ch <- callResult{err: fmt.Errorf("ws: browser call failed: %s", msg.Error)}
		return
	}
	ch <- callResult{data: msg.Data}
}

func (b *Bridge) attach(conn *websocket.Conn) {
	b.connMu.Lock()
	old := b.conn
	b.conn = conn
	b.connMu.Unlock()

	if old != nil {
		old.Close()
	}
}

// detach clears the connection and fails every in-flight call; a replaced
// connection only fails calls if its successor has not already taken over.
func (b *Bridge) detach(conn *websocket.Conn) {
	b.connMu.Lock()
	if b.conn == conn {
		b.conn = nil
	}
	b.connMu.Unlock()

	b.pendingMu.Lock()
	pending := b.pending
	b.pending = make(map[string]chan callResult)
	b.pendingMu.Unlock()

	for _, ch := range pending {
		ch <- callResult{err: browser.ErrNotConnected}
	}
}

func (b *Bridge) writeJSON(conn *websocket.Conn, v any) error {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	return conn.WriteJSON(v)
}

// call performs one correlated round-trip and decodes the result into out
// (out may be nil for calls with no payload).
func (b *Bridge) call(ctx context.Context, op string, params, out any) error {
	b.connMu.Lock()
	conn := b.conn
	b.connMu.Unlock()
	if conn == nil {
		return browser.ErrNotConnected
	}

	reqID := string(id.NewRequestID())
	ch := make(chan callResult, 1)

	b.pendingMu.Lock()
	b.pending[reqID] = ch
	b.pendingMu.Unlock()

	if err := b.writeJSON(conn, envelope{Type: "call", ID: reqID, Op: op, Params: params}); err != nil {
		b.pendingMu.Lock()
		delete(b.pending, reqID)
		b.pendingMu.Unlock()
		return fmt.Errorf("ws: write %s: %w", op, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, callTimeout)
		defer cancel()
	}

	select {
	case <-ctx.Done():
		b.pendingMu.Lock()
		delete(b.pending, reqID)
		b.pendingMu.Unlock()
		return fmt.Errorf("ws: %s: %w", op, ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return res.err
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(res.data, out); err != nil {
			return fmt.Errorf("ws: decode %s result: %w", op, err)
		}
		return nil
	}
}

// Browser call parameter/result shapes. Ops are namespaced verb phrases the
// extension host dispatches on.

type windowResult struct {
	WindowID int64 `json:"window_id"`
	Found    bool  `json:"found"`
}

type closeTabParams struct {
	TabID int64 `json:"tab_id"`
}

type moveTabParams struct {
	TabID    int64 `json:"tab_id"`
	WindowID int64 `json:"window_id"`
	Index    int   `json:"index"`
}

type groupTabsParams struct {
	WindowID int64   `json:"window_id"`
	TabIDs   []int64 `json:"tab_ids"`
}

type groupTabsResult struct {
	GroupID int64 `json:"group_id"`
}

type ungroupTabsParams struct {
	TabIDs []int64 `json:"tab_ids"`
}

type updateGroupParams struct {
	GroupID   int64  `json:"group_id"`
	Title     string `json:"title"`
	Color     string `json:"color"`
	Collapsed bool   `json:"collapsed"`
}

type saveTabGroupParams struct {
	Title string   `json:"title"`
	URLs  []string `json:"urls"`
}

type saveTabGroupResult struct {
	ResourceGroupID string `json:"resource_group_id"`
}

// QueryTabs returns every open tab across all windows.
func (b *Bridge) QueryTabs(ctx context.Context) ([]browser.Tab, error) {
	var out []browser.Tab
	if err := b.call(ctx, "tabs.query", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// QueryGroups returns every tab group across all windows.
func (b *Bridge) QueryGroups(ctx context.Context) ([]browser.Group, error) {
	var out []browser.Group
	if err := b.call(ctx, "groups.query", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateWindow opens an empty window.
func (b *Bridge) CreateWindow(ctx context.Context) (int64, error) {
	var out windowResult
	if err := b.call(ctx, "windows.create", nil, &out); err != nil {
		return 0, err
	}
	return out.WindowID, nil
}

// CurrentWindow returns the focused window's id.
func (b *Bridge) CurrentWindow(ctx context.Context) (int64, error) {
	var out windowResult
	if err := b.call(ctx, "windows.current", nil, &out); err != nil {
		return 0, err
	}
	return out.WindowID, nil
}

// DashboardWindow returns the window hosting the dashboard, if any.
func (b *Bridge) DashboardWindow(ctx context.Context) (int64, bool, error) {
	var out windowResult
	if err := b.call(ctx, "windows.dashboard", nil, &out); err != nil {
		return 0, false, err
	}
	return out.WindowID, out.Found, nil
}

// CreateTabIn opens a tab and returns the browser's view of it.
func (b *Bridge) CreateTabIn(ctx context.Context, opts browser.CreateTab) (browser.Tab, error) {
	var out browser.Tab
	if err := b.call(ctx, "tabs.create", opts, &out); err != nil {
		return browser.Tab{}, err
	}
	return out, nil
}

// CloseTab closes a tab by external id.
func (b *Bridge) CloseTab(ctx context.Context, tabID int64) error {
	return b.call(ctx, "tabs.close", closeTabParams{TabID: tabID}, nil)
}

// MoveTab places a tab at index within a window.
func (b *Bridge) MoveTab(ctx context.Context, tabID, windowID int64, index int) error {
	return b.call(ctx, "tabs.move", moveTabParams{TabID: tabID, WindowID: windowID, Index: index}, nil)
}

// GroupTabs groups tabs within one window.
func (b *Bridge) GroupTabs(ctx context.Context, windowID int64, tabIDs []int64) (int64, error) {
	var out groupTabsResult
	if err := b.call(ctx, "tabs.group", groupTabsParams{WindowID: windowID, TabIDs: tabIDs}, &out); err != nil {
		return 0, err
	}
	return out.GroupID, nil
}

// UngroupTabs removes tabs from their groups.
func (b *Bridge) UngroupTabs(ctx context.Context, tabIDs []int64) error {
	return b.call(ctx, "tabs.ungroup", ungroupTabsParams{TabIDs: tabIDs}, nil)
}

// UpdateGroup applies title/color/collapsed to a group.
func (b *Bridge) UpdateGroup(ctx context.Context, groupID int64, upd browser.GroupUpdate) error {
	return b.call(ctx, "groups.update", updateGroupParams{
		GroupID:   groupID,
		Title:     upd.Title,
		Color:     upd.Color,
		Collapsed: upd.Collapsed,
	}, nil)
}

// SaveTabGroup persists a titled set of URLs through the extension's
// bookmarking surface and returns the created resource group id.
func (b *Bridge) SaveTabGroup(ctx context.Context, title string, urls []string) (string, error) {
	var out saveTabGroupResult
	if err := b.call(ctx, "bookmarks.save_group", saveTabGroupParams{Title: title, URLs: urls}, &out); err != nil {
		return "", err
	}
	return out.ResourceGroupID, nil
}
