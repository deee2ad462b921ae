package notifier

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) *Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	ev := EventFromJsonBytes(data)
	require.NotNil(t, ev)
	return ev
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	srv := httptest.NewServer(hub)
	defer srv.Close()

	first := dialHub(t, srv)
	second := dialHub(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	ev := NewEvent(ShiftStarted, testWorkShift(), time.Now())
	require.NoError(t, hub.Publish(context.Background(), ev))

	assert.Equal(t, ev.ID, readEvent(t, first).ID)
	assert.Equal(t, ev.ID, readEvent(t, second).ID)

	first.Close()
	second.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubReplaysLatestEvent(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ev := NewEvent(ShiftCompleted, testWorkShift(), time.Now())
	require.NoError(t, hub.Publish(context.Background(), ev))

	late := dialHub(t, srv)
	assert.Equal(t, ev.ID, readEvent(t, late).ID)

	late.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubClose(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Zero(t, hub.ClientCount())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
