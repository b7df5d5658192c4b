package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimeshgurung/okrbuilder/internal/agent/ports"
	"github.com/nimeshgurung/okrbuilder/internal/bridge"
	"github.com/nimeshgurung/okrbuilder/internal/chat"
	"github.com/nimeshgurung/okrbuilder/internal/commit"
	"github.com/nimeshgurung/okrbuilder/internal/llm"
	"github.com/nimeshgurung/okrbuilder/internal/notify"
	"github.com/nimeshgurung/okrbuilder/internal/okr"
	"github.com/nimeshgurung/okrbuilder/internal/state"
)

type testServer struct {
	server  *Server
	store   *state.Store
	commits *commit.Workflow
}

func newTestServer(t *testing.T, responses ...ports.CompletionResponse) *testServer {
	t.Helper()

	store := state.New(okr.SessionState{CurrentQuarter: "Q1 2026"})
	commits := commit.New(store)

	var chatService *chat.Service
	if len(responses) > 0 {
		notifier := notify.New(store)
		b := bridge.New(store, commits)
		registry, err := b.Registry()
		require.NoError(t, err)
		chatService, err = chat.NewService(llm.NewScriptedClient("scripted", responses...), registry, notifier, store)
		require.NoError(t, err)
	}

	srv := New(store, commits, Options{Chat: chatService})
	return &testServer{server: srv, store: store, commits: commits}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "expected success, got error: %s", envelope.Error)

	var out T
	require.NoError(t, json.Unmarshal(envelope.Data, &out))
	return out
}

type stubMetrics struct {
	chatTurns      []string
	objectivesLive int
}

func (m *stubMetrics) RecordChatTurn(status string)    { m.chatTurns = append(m.chatTurns, status) }
func (m *stubMetrics) ObjectiveCountChanged(delta int) { m.objectivesLive += delta }
func (m *stubMetrics) StreamClientConnected()          {}
func (m *stubMetrics) StreamClientDisconnected()       {}
func (m *stubMetrics) Handler() http.Handler           { return http.NotFoundHandler() }

func TestObjectiveGaugeFollowsStore(t *testing.T) {
	metrics := &stubMetrics{}
	store := state.New(okr.SessionState{CurrentQuarter: "Q1 2026"})
	srv := New(store, commit.New(store), Options{Metrics: metrics})
	ts := &testServer{server: srv, store: store}

	// REST create
	rec := ts.do(t, http.MethodPost, "/api/objectives", ObjectiveRequest{Summary: "a"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, metrics.objectivesLive)

	// a mutation outside the REST path moves the gauge too
	store.Replace(func(prev okr.SessionState) okr.SessionState {
		prev.Objectives, _ = okr.AddObjective(prev.Objectives, okr.Objective{Summary: "b"})
		prev.Objectives, _ = okr.AddObjective(prev.Objectives, okr.Objective{Summary: "c"})
		return prev
	})
	assert.Equal(t, 3, metrics.objectivesLive)

	// REST delete
	id := store.Get().Objectives[0].ID
	rec = ts.do(t, http.MethodDelete, "/api/objectives/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, metrics.objectivesLive)

	// key result updates do not move the objective gauge
	objID := store.Get().Objectives[0].ID
	rec = ts.do(t, http.MethodPost, "/api/objectives/"+objID+"/keyresults", KeyResultRequest{
		Summary: "metric", Progress: 1, Target: 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, metrics.objectivesLive)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	health := decodeData[HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.False(t, health.Timestamp.IsZero())
}

func TestObjectiveCRUD(t *testing.T) {
	ts := newTestServer(t)

	// create
	rec := ts.do(t, http.MethodPost, "/api/objectives", ObjectiveRequest{
		Summary: "Grow revenue",
		KeyResults: []KeyResultRequest{
			{Summary: "new customers", Progress: 25, Target: 100},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeData[okr.Objective](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, okr.StatusDraft, created.Status)
	assert.Equal(t, "Q1 2026", created.Quarter, "quarter defaults to the session's current quarter")
	assert.Equal(t, 25, created.Progress)

	// partial update: only progress of the key result
	rec = ts.do(t, http.MethodPut, "/api/objectives/"+created.ID, ObjectivePatchRequest{
		KeyResults: []KeyResultPatchRequest{
			{ID: created.KeyResults[0].ID, Progress: f64(100)},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeData[okr.Objective](t, rec)
	assert.Equal(t, "Grow revenue", updated.Summary)
	assert.Equal(t, 100, updated.Progress)
	assert.True(t, updated.KeyResults[0].IsCompleted)

	// list
	rec = ts.do(t, http.MethodGet, "/api/objectives", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[[]okr.Objective](t, rec)
	require.Len(t, list, 1)

	// delete
	rec = ts.do(t, http.MethodDelete, "/api/objectives/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, ts.store.Get().Objectives)

	// delete again: 404, state untouched
	rec = ts.do(t, http.MethodDelete, "/api/objectives/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateUnknownObjective(t *testing.T) {
	ts := newTestServer(t)
	before := ts.store.Get()

	rec := ts.do(t, http.MethodPut, "/api/objectives/obj-missing", ObjectivePatchRequest{
		Summary: strPtr("new"),
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, before, ts.store.Get())
}

func TestCreateObjectiveValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/objectives", map[string]any{"description": "no summary"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ts.store.Get().Objectives)
}

func TestKeyResultLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/objectives", ObjectiveRequest{Summary: "Quality"})
	objective := decodeData[okr.Objective](t, rec)

	// add
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/objectives/%s/keyresults", objective.ID), KeyResultRequest{
		Summary: "Reduce bugs",
		Target:  50,
		Units:   "bugs",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	kr := decodeData[okr.KeyResult](t, rec)
	assert.NotEmpty(t, kr.ID)

	// update
	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/objectives/%s/keyresults/%s", objective.ID, kr.ID), KeyResultPatchRequest{
		Progress: f64(50),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeData[okr.Objective](t, rec)
	assert.Equal(t, 100, updated.Progress)
	assert.True(t, updated.KeyResults[0].IsCompleted)

	// delete
	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/objectives/%s/keyresults/%s", objective.ID, kr.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	final := decodeData[okr.Objective](t, rec)
	assert.Empty(t, final.KeyResults)
	assert.Equal(t, 0, final.Progress)

	// unknown key result
	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/objectives/%s/keyresults/kr-missing", objective.ID), KeyResultPatchRequest{
		Progress: f64(1),
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommitFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/objectives", ObjectiveRequest{Summary: "Ship it"})
	objective := decodeData[okr.Objective](t, rec)

	// request
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/objectives/%s/commit/request", objective.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ts.commits.IsPending(objective.ID))
	assert.Equal(t, okr.StatusDraft, ts.store.Get().Objectives[0].Status)

	// cancel leaves the draft alone
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/objectives/%s/commit/cancel", objective.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, ts.commits.IsPending(objective.ID))
	assert.Equal(t, okr.StatusDraft, ts.store.Get().Objectives[0].Status)

	// request again and confirm
	ts.do(t, http.MethodPost, fmt.Sprintf("/api/objectives/%s/commit/request", objective.ID), nil)
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/objectives/%s/commit/confirm", objective.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	committed := decodeData[okr.Objective](t, rec)
	assert.Equal(t, okr.StatusCommitted, committed.Status)
	assert.Equal(t, okr.StatusCommitted, ts.store.Get().Objectives[0].Status)

	// unknown objective
	rec = ts.do(t, http.MethodPost, "/api/objectives/obj-missing/commit/request", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatEndpoint(t *testing.T) {
	ts := newTestServer(t,
		ports.CompletionResponse{
			StopReason: "tool_calls",
			ToolCalls: []ports.ToolCall{{
				ID:   "call-1",
				Name: "add_objective",
				Arguments: map[string]any{
					"objective": map[string]any{"summary": "Expand to Europe"},
				},
			}},
		},
		ports.CompletionResponse{Content: "Drafted it.", StopReason: "stop"},
	)

	rec := ts.do(t, http.MethodPost, "/api/chat/messages", ChatRequest{
		SessionID: "s1",
		Content:   "draft an expansion OKR",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	reply := decodeData[chat.Reply](t, rec)
	assert.Equal(t, "Drafted it.", reply.Content)
	assert.Equal(t, []string{"add_objective"}, reply.ToolsInvoked)

	// the agent's mutation landed in the same store the REST surface reads
	got := ts.store.Get()
	require.Len(t, got.Objectives, 1)
	assert.Equal(t, "Expand to Europe", got.Objectives[0].Summary)
}

func TestChatUnavailableWithoutService(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/chat/messages", ChatRequest{Content: "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSuggestionsEndpoint(t *testing.T) {
	ts := newTestServer(t, ports.CompletionResponse{Content: "unused"})

	ts.do(t, http.MethodPost, "/api/objectives", ObjectiveRequest{Summary: "Improve onboarding"})

	rec := ts.do(t, http.MethodGet, "/api/chat/suggestions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	suggestions := decodeData[SuggestionsResponse](t, rec)
	assert.Contains(t, suggestions.Instructions, "Improve onboarding")
}

func TestGetState(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeData[okr.SessionState](t, rec)
	assert.Equal(t, "Q1 2026", got.CurrentQuarter)
}

func TestUnsupportedContentType(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/objectives", bytes.NewReader([]byte("summary=x")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func strPtr(s string) *string { return &s }

func f64(v float64) *float64 { return &v }
