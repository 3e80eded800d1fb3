package remote

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wes321/dingcad/internal/buildinfo"
)

// fakeHost reports "loaded N bytes" for the last posted code.
type fakeHost struct {
	mu     sync.Mutex
	codes  []string
	status string
}

func (h *fakeHost) LoadSceneFromCode(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.codes = append(h.codes, code)
	h.status = "loaded " + code
}

func (h *fakeHost) StatusMessage() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status == "" {
		return "Ready"
	}
	return h.status
}

func (h *fakeHost) posted() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.codes...)
}

func newTestServer(t *testing.T) (*Server, *fakeHost, *httptest.Server) {
	t.Helper()
	host := &fakeHost{}
	s := New(host, Config{PollInterval: 10 * time.Millisecond})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, host, ts
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestPostSceneThenStatus(t *testing.T) {
	_, host, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ready", decode[statusResponse](t, resp).Status)

	resp, err = http.Post(ts.URL+"/scene", "application/javascript", strings.NewReader("cube"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "loaded cube", decode[statusResponse](t, resp).Status)
	assert.Equal(t, []string{"cube"}, host.posted())

	resp, err = http.Get(ts.URL + "/status")
	require.NoError(t, err)
	assert.Equal(t, "loaded cube", decode[statusResponse](t, resp).Status)
}

func TestPostEmptyScene(t *testing.T) {
	_, host, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/scene", "text/plain", strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No scene code provided", decode[errorResponse](t, resp).Error)
	assert.Empty(t, host.posted())
}

func TestVersion(t *testing.T) {
	v := buildinfo.Version
	t.Cleanup(func() { buildinfo.Version = v })
	buildinfo.Version = "v9.9.9"

	_, _, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/version")
	require.NoError(t, err)
	assert.Equal(t, "v9.9.9", decode[versionResponse](t, resp).Version)
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readStatus(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg statusResponse
	require.NoError(t, conn.ReadJSON(&msg))
	return msg.Status
}

func TestWebsocketLoadsAndPushesStatus(t *testing.T) {
	_, host, ts := newTestServer(t)
	conn := dialWS(t, ts)

	assert.Equal(t, "Ready", readStatus(t, conn))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("sphere")))
	assert.Equal(t, "loaded sphere", readStatus(t, conn))
	assert.Equal(t, []string{"sphere"}, host.posted())

	// Changes from other producers are pushed too.
	host.LoadSceneFromCode("torus")
	assert.Equal(t, "loaded torus", readStatus(t, conn))
}

func TestWebsocketClosedOnServerClose(t *testing.T) {
	s, _, ts := newTestServer(t)
	conn := dialWS(t, ts)
	assert.Equal(t, "Ready", readStatus(t, conn))

	s.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	s := New(&fakeHost{}, Config{Addr: addr})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/status")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunReportsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s := New(&fakeHost{}, Config{Addr: ln.Addr().String()})
	err = s.Run(context.Background())
	assert.Error(t, err)
}
