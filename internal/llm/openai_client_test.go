package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimeshgurung/okrbuilder/internal/agent/ports"
)

func TestOpenAIClientCompleteSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "test-model", payload["model"])
		assert.Equal(t, "auto", payload["tool_choice"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": "Added it for you.",
						"tool_calls": []any{
							map[string]any{
								"id":   "call-1",
								"type": "function",
								"function": map[string]any{
									"name":      "add_objective",
									"arguments": `{"objective":{"summary":"Grow revenue"}}`,
								},
							},
						},
					},
					"finish_reason": "tool_calls",
				},
			},
			"usage": map[string]any{
				"prompt_tokens":     3,
				"completion_tokens": 4,
				"total_tokens":      7,
			},
		})
	}))
	defer server.Close()

	client, err := NewOpenAIClient("test-model", Config{APIKey: "test-key", BaseURL: server.URL}, nil)
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), ports.CompletionRequest{
		Messages: []ports.Message{{Role: ports.RoleUser, Content: "add an objective"}},
		Tools:    []ports.ToolDefinition{{Name: "add_objective", Description: "adds"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Added it for you.", resp.Content)
	assert.Equal(t, "tool_calls", resp.StopReason)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "add_objective", resp.ToolCalls[0].Name)
	obj, ok := resp.ToolCalls[0].Arguments["objective"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Grow revenue", obj["summary"])
}

func TestOpenAIClientCompleteAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "invalid api key"},
		})
	}))
	defer server.Close()

	client, err := NewOpenAIClient("test-model", Config{APIKey: "bad", BaseURL: server.URL}, nil)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), ports.CompletionRequest{
		Messages: []ports.Message{{Role: ports.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestOpenAIClientCompleteNoChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	client, err := NewOpenAIClient("test-model", Config{BaseURL: server.URL}, nil)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), ports.CompletionRequest{
		Messages: []ports.Message{{Role: ports.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestOpenAIClientRawToolArgumentsPassThrough(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": "",
						"tool_calls": []any{
							map[string]any{
								"id":   "call-1",
								"type": "function",
								"function": map[string]any{
									"name":      "add_objective",
									"arguments": `{"objective": {"summary": "trailing",},}`,
								},
							},
						},
					},
					"finish_reason": "tool_calls",
				},
			},
		})
	}))
	defer server.Close()

	client, err := NewOpenAIClient("test-model", Config{BaseURL: server.URL}, nil)
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), ports.CompletionRequest{
		Messages: []ports.Message{{Role: ports.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	// malformed arguments survive as a raw string for downstream repair
	raw, ok := resp.ToolCalls[0].Arguments["objective"].(string)
	require.True(t, ok)
	assert.Contains(t, raw, "trailing")
}

func TestScriptedClientReplaysInOrder(t *testing.T) {
	t.Parallel()

	client := NewScriptedClient("scripted",
		ports.CompletionResponse{Content: "first"},
		ports.CompletionResponse{Content: "second"},
	)

	for _, want := range []string{"first", "second", "second"} {
		resp, err := client.Complete(context.Background(), ports.CompletionRequest{})
		require.NoError(t, err)
		assert.Equal(t, want, resp.Content)
	}
	assert.Len(t, client.Requests, 3)
}
