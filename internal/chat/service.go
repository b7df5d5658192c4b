// Package chat runs the conversational side of the OKR builder: it relays
// user messages to the completion provider together with the mutation tool
// schemas, executes the tool calls the model proposes, and feeds the results
// back until the model answers in plain text.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/nimeshgurung/okrbuilder/internal/agent/ports"
	"github.com/nimeshgurung/okrbuilder/internal/logging"
	"github.com/nimeshgurung/okrbuilder/internal/notify"
	"github.com/nimeshgurung/okrbuilder/internal/okr"
	"github.com/nimeshgurung/okrbuilder/internal/state"
)

// maxToolRounds caps the tool-call loop per user turn so a model stuck in a
// call cycle cannot spin forever.
const maxToolRounds = 8

// MetricsRecorder counts completion round trips and their token usage.
// Implementations must tolerate concurrent use; a nil recorder disables
// counting.
type MetricsRecorder interface {
	RecordLLMRequest(model string, status string, promptTokens, completionTokens int)
}

// Reply is the outcome of one user turn.
type Reply struct {
	Content      string           `json:"content"`
	ToolsInvoked []string         `json:"tools_invoked,omitempty"`
	Usage        ports.TokenUsage `json:"usage"`
}

// Service drives conversations against a single shared session state.
type Service struct {
	client   ports.LLMClient
	registry ports.ToolRegistry
	notifier *notify.Notifier
	store    *state.Store
	logger   logging.Logger
	metrics  MetricsRecorder
	sessions *sessionCache

	maxSessions int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMaxSessions bounds the number of concurrently retained conversations.
func WithMaxSessions(n int) Option {
	return func(s *Service) { s.maxSessions = n }
}

// WithMetrics sets the completion request recorder.
func WithMetrics(metrics MetricsRecorder) Option {
	return func(s *Service) { s.metrics = metrics }
}

// NewService wires the chat loop to its provider, tools and state sources.
func NewService(client ports.LLMClient, registry ports.ToolRegistry, notifier *notify.Notifier, store *state.Store, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}

	s := &Service{
		client:   client,
		registry: registry,
		notifier: notifier,
		store:    store,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	cache, err := newSessionCache(s.maxSessions)
	if err != nil {
		return nil, err
	}
	s.sessions = cache
	return s, nil
}

// HandleMessage runs one user turn: it assembles the conversation context,
// lets the model call mutation tools until it produces a plain reply, and
// returns that reply. Tool failures are reported to the model, not to the
// caller; the session state is never left half-updated.
func (s *Service) HandleMessage(ctx context.Context, sessionID, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("message text is empty")
	}
	if sessionID == "" {
		sessionID = "default"
	}

	sess := s.sessions.get(sessionID)
	userMsg := ports.Message{Role: ports.RoleUser, Content: text}
	sess.append(s.drainContext()...)
	sess.append(userMsg)

	reply := &Reply{}
	for round := 0; ; round++ {
		if round >= maxToolRounds {
			return nil, fmt.Errorf("tool call limit reached after %d rounds", maxToolRounds)
		}

		resp, err := s.client.Complete(ctx, ports.CompletionRequest{
			Messages: s.buildMessages(sess),
			Tools:    s.registry.List(),
		})
		if err != nil {
			s.recordRequest("error", ports.TokenUsage{})
			return nil, fmt.Errorf("completion: %w", err)
		}
		s.recordRequest("ok", resp.Usage)
		reply.Usage.PromptTokens += resp.Usage.PromptTokens
		reply.Usage.CompletionTokens += resp.Usage.CompletionTokens
		reply.Usage.TotalTokens += resp.Usage.TotalTokens

		if len(resp.ToolCalls) == 0 {
			sess.append(ports.Message{Role: ports.RoleAssistant, Content: resp.Content})
			reply.Content = resp.Content
			return reply, nil
		}

		sess.append(ports.Message{
			Role:      ports.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			call.SessionID = sessionID
			reply.ToolsInvoked = append(reply.ToolsInvoked, call.Name)
			sess.append(s.executeTool(ctx, call))
		}
		// a mutation just ran: pick up the fresh snapshot before the model
		// formulates its acknowledgment
		sess.append(s.drainContext()...)
	}
}

// Suggestions returns the follow-up suggestion instructions for the current
// session state.
func (s *Service) Suggestions() string {
	if s.store == nil {
		return SuggestionInstructions(okr.SessionState{})
	}
	return SuggestionInstructions(s.store.Get())
}

func (s *Service) buildMessages(sess *session) []ports.Message {
	history := sess.snapshot()
	msgs := make([]ports.Message, 0, len(history)+1)
	msgs = append(msgs, ports.Message{Role: ports.RoleSystem, Content: systemPrompt})
	msgs = append(msgs, history...)
	return msgs
}

func (s *Service) recordRequest(status string, usage ports.TokenUsage) {
	if s.metrics != nil {
		s.metrics.RecordLLMRequest(s.client.Model(), status, usage.PromptTokens, usage.CompletionTokens)
	}
}

func (s *Service) drainContext() []ports.Message {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.Drain()
}

func (s *Service) executeTool(ctx context.Context, call ports.ToolCall) ports.Message {
	result := s.runTool(ctx, call)
	return ports.Message{
		Role:       ports.RoleTool,
		Content:    result,
		ToolCallID: call.ID,
	}
}

func (s *Service) runTool(ctx context.Context, call ports.ToolCall) string {
	tool, err := s.registry.Get(call.Name)
	if err != nil {
		s.logger.Warn("model requested unknown tool %q", call.Name)
		return fmt.Sprintf("Error: tool %q does not exist.", call.Name)
	}

	result, err := tool.Execute(ctx, call)
	if err != nil {
		s.logger.Error("tool %s failed: %v", call.Name, err)
		return fmt.Sprintf("Error: %v", err)
	}
	if result.Error != nil {
		return fmt.Sprintf("Error: %s", result.Content)
	}
	return result.Content
}
