package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/hospital-appointment-booking/internal/logger"
)

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub([]string{"*"}, logger.Discard())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a, _, err := dial(t, srv, "")
	require.NoError(t, err)
	defer a.Close()
	b, _, err := dial(t, srv, "http://example.com")
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, EventConnected, readEvent(t, a).Type)
	assert.Equal(t, EventConnected, readEvent(t, b).Type)
	waitForClients(t, hub, 2)

	sent := hub.Broadcast(Event{Type: EventAppointmentComplete, Message: "Appointment Complete"})
	assert.Equal(t, 2, sent)

	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		assert.Equal(t, EventAppointmentComplete, ev.Type)
		assert.Equal(t, "Appointment Complete", ev.Message)
	}
}

func TestClosedClientIsRemoved(t *testing.T) {
	hub := NewHub([]string{"*"}, logger.Discard())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := dial(t, srv, "")
	require.NoError(t, err)
	readEvent(t, conn)
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)

	assert.Equal(t, 0, hub.Broadcast(Event{Type: EventAppointmentComplete}))
}

func TestOriginCheck(t *testing.T) {
	hub := NewHub([]string{"http://allowed.test"}, logger.Discard())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	_, resp, err := dial(t, srv, "http://evil.test")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, srv, "http://allowed.test")
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, EventConnected, readEvent(t, conn).Type)
}
