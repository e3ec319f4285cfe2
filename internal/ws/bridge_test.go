package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/tabvault/tabvault/internal/browser"
	"github.com/tabvault/tabvault/internal/infrastructure/logging"
)

type recordSink struct {
	events chan browser.Event
}

func (s *recordSink) Apply(ev browser.Event) error {
	s.events <- ev
	return nil
}

// dial spins up the bridge behind a test server and connects a fake extension
// host, consuming the welcome frame.
func dial(t *testing.T) (*Bridge, *websocket.Conn, *recordSink) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sink := &recordSink{events: make(chan browser.Event, 16)}
	b := NewBridge(sink, logging.NewNop())

	router := gin.New()
	router.GET("/stream", b.HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var welcome envelope
	require.NoError(t, conn.ReadJSON(&welcome))
	require.Equal(t, "system", welcome.Type)

	return b, conn, sink
}

func TestCallsFailWhenDisconnected(t *testing.T) {
	b := NewBridge(&recordSink{events: make(chan browser.Event, 1)}, logging.NewNop())

	_, err := b.QueryTabs(context.Background())
	require.ErrorIs(t, err, browser.ErrNotConnected)

	err = b.CloseTab(context.Background(), 1)
	require.ErrorIs(t, err, browser.ErrNotConnected)
}

func TestInboundEventReachesSink(t *testing.T) {
	_, conn, sink := dial(t)

	payload, err := json.Marshal(browser.TabCreated{Tab: browser.Tab{
		ID: 7, WindowID: 1, Index: 0, URL: "https://a.test", GroupID: browser.NoGroup,
	}})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(envelope{
		Type:  "event",
		Event: browser.EventTabCreated,
		Data:  payload,
	}))

	select {
	case ev := <-sink.events:
		created, ok := ev.(browser.TabCreated)
		require.True(t, ok, "got %T", ev)
		require.Equal(t, int64(7), created.Tab.ID)
		require.Equal(t, "https://a.test", created.Tab.URL)
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the sink")
	}
}

func TestCallRoundTrip(t *testing.T) {
	b, conn, _ := dial(t)

	// The fake extension host answers the next call it sees.
	go func() {
		var call envelope
		if err := conn.ReadJSON(&call); err != nil {
			return
		}
		data, _ := json.Marshal([]browser.Tab{
			{ID: 1, WindowID: 2, Index: 0, URL: "https://a.test", GroupID: browser.NoGroup},
		})
		conn.WriteJSON(envelope{Type: "result", ID: call.ID, OK: true, Data: data})
	}()

	tabs, err := b.QueryTabs(context.Background())
	require.NoError(t, err)
	require.Len(t, tabs, 1)
	require.Equal(t, int64(1), tabs[0].ID)
}

func TestCallCarriesOpAndParams(t *testing.T) {
	b, conn, _ := dial(t)

	calls := make(chan envelope, 1)
	go func() {
		var call envelope
		if err := conn.ReadJSON(&call); err != nil {
			return
		}
		calls <- call
		conn.WriteJSON(envelope{Type: "result", ID: call.ID, OK: true})
	}()

	require.NoError(t, b.CloseTab(context.Background(), 42))

	call := <-calls
	require.Equal(t, "call", call.Type)
	require.Equal(t, "tabs.close", call.Op)
	require.NotEmpty(t, call.ID)
}

func TestCallFailureSurfaces(t *testing.T) {
	b, conn, _ := dial(t)

	go func() {
		var call envelope
		if err := conn.ReadJSON(&call); err != nil {
			return
		}
		conn.WriteJSON(envelope{Type: "result", ID: call.ID, OK: false, Error: "no such window"})
	}()

	_, err := b.CreateWindow(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no such window")
}

func TestCallHonorsContext(t *testing.T) {
	b, _, _ := dial(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// No reply ever arrives.
	_, err := b.QueryTabs(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDisconnectFailsInflightCalls(t *testing.T) {
	b, conn, _ := dial(t)

	errs := make(chan error, 1)
	go func() {
		_, err := b.QueryTabs(context.Background())
		errs <- err
	}()

	// Give the call a moment to register, then drop the connection.
	time.Sleep(50 * time.Millisecond)
	conn.Close()

	select {
	case err := <-errs:
		require.ErrorIs(t, err, browser.ErrNotConnected)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight call never failed")
	}
}
