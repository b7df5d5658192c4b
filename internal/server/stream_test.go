package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimeshgurung/okrbuilder/internal/commit"
	"github.com/nimeshgurung/okrbuilder/internal/okr"
	"github.com/nimeshgurung/okrbuilder/internal/state"
)

func dialStream(t *testing.T, ts *testServer) (*websocket.Conn, func()) {
	t.Helper()

	httpSrv := httptest.NewServer(ts.server.Handler())
	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/api/stream"

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, func() {
		_ = conn.Close()
		httpSrv.Close()
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) StreamEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var event StreamEvent
	require.NoError(t, json.Unmarshal(raw, &event))
	return event
}

func TestStreamSendsInitialState(t *testing.T) {
	ts := newTestServer(t)
	conn, cleanup := dialStream(t, ts)
	defer cleanup()

	event := readEvent(t, conn)
	assert.Equal(t, EventState, event.Type)

	raw, err := json.Marshal(event.Payload)
	require.NoError(t, err)
	var got okr.SessionState
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "Q1 2026", got.CurrentQuarter)
}

func TestStreamBroadcastsMutations(t *testing.T) {
	ts := newTestServer(t)
	conn, cleanup := dialStream(t, ts)
	defer cleanup()

	readEvent(t, conn) // initial snapshot

	rec := ts.do(t, http.MethodPost, "/api/objectives", ObjectiveRequest{Summary: "Grow revenue"})
	require.Equal(t, http.StatusCreated, rec.Code)

	event := readEvent(t, conn)
	assert.Equal(t, EventState, event.Type)

	raw, err := json.Marshal(event.Payload)
	require.NoError(t, err)
	var got okr.SessionState
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got.Objectives, 1)
	assert.Equal(t, "Grow revenue", got.Objectives[0].Summary)
}

func TestStreamCommitPrompt(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/objectives", ObjectiveRequest{Summary: "Ship it"})
	objective := decodeData[okr.Objective](t, rec)

	conn, cleanup := dialStream(t, ts)
	defer cleanup()
	readEvent(t, conn) // initial snapshot

	rec = ts.do(t, http.MethodPost, "/api/objectives/"+objective.ID+"/commit/request", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	event := readEvent(t, conn)
	assert.Equal(t, EventCommitPrompt, event.Type)

	payload, ok := event.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, objective.ID, payload["objectiveId"])
}

func TestStreamOriginPolicy(t *testing.T) {
	t.Run("empty allowlist admits any origin", func(t *testing.T) {
		ts := newTestServer(t)
		httpSrv := httptest.NewServer(ts.server.Handler())
		defer httpSrv.Close()
		url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/api/stream"

		conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://anywhere.example"}})
		require.NoError(t, err)
		if resp != nil {
			_ = resp.Body.Close()
		}
		_ = conn.Close()
	})

	t.Run("configured allowlist rejects other origins", func(t *testing.T) {
		store := state.New(okr.SessionState{})
		srv := New(store, commit.New(store), Options{AllowedOrigins: []string{"http://localhost:3000"}})
		httpSrv := httptest.NewServer(srv.Handler())
		defer httpSrv.Close()
		url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/api/stream"

		_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
		require.Error(t, err)
		if resp != nil {
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			_ = resp.Body.Close()
		}

		conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:3000"}})
		require.NoError(t, err)
		if resp != nil {
			_ = resp.Body.Close()
		}
		_ = conn.Close()
	})
}

func TestHubTracksClients(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, 0, ts.server.hub.clientCount())

	conn, cleanup := dialStream(t, ts)
	readEvent(t, conn)
	assert.Equal(t, 1, ts.server.hub.clientCount())

	cleanup()
	// the read loop notices the close asynchronously
	require.Eventually(t, func() bool {
		return ts.server.hub.clientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
