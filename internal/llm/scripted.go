package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/nimeshgurung/okrbuilder/internal/agent/ports"
)

// ScriptedClient replays a fixed sequence of completion responses. It exists
// for tests and for running the server without a provider key.
type ScriptedClient struct {
	mu        sync.Mutex
	model     string
	responses []ports.CompletionResponse
	next      int

	// Requests records every request received, in order.
	Requests []ports.CompletionRequest
}

// NewScriptedClient creates a client that returns the given responses in
// order. Once exhausted it keeps returning the final response.
func NewScriptedClient(model string, responses ...ports.CompletionResponse) *ScriptedClient {
	return &ScriptedClient{model: model, responses: responses}
}

func (s *ScriptedClient) Model() string { return s.model }

func (s *ScriptedClient) Complete(_ context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Requests = append(s.Requests, req)
	if len(s.responses) == 0 {
		return nil, fmt.Errorf("scripted client has no responses")
	}
	resp := s.responses[s.next]
	if s.next < len(s.responses)-1 {
		s.next++
	}
	return &resp, nil
}
