// Package bridge exposes the session state to the conversational agent as a
// set of mutation tools. Each tool validates the model's structured payload,
// applies it through the state store, and narrates the three phases of the
// mutation (in progress, complete, failed) back to both actors. A rejected
// payload never corrupts the session state.
package bridge

import (
	"github.com/nimeshgurung/okrbuilder/internal/agent/ports"
	"github.com/nimeshgurung/okrbuilder/internal/commit"
	"github.com/nimeshgurung/okrbuilder/internal/logging"
	"github.com/nimeshgurung/okrbuilder/internal/state"
)

// MetricsRecorder counts tool executions. Implementations must tolerate
// concurrent use; a nil recorder disables counting.
type MetricsRecorder interface {
	RecordToolExecution(tool string, outcome string)
}

// Bridge wires the mutation tools to the state store and commit workflow.
type Bridge struct {
	store    *state.Store
	commits  *commit.Workflow
	logger   logging.Logger
	narrator ports.NarrativeSink
	metrics  MetricsRecorder
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(logger logging.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// WithNarrator sets the sink receiving mutation narrative events.
func WithNarrator(sink ports.NarrativeSink) Option {
	return func(b *Bridge) { b.narrator = sink }
}

// WithMetrics sets the tool execution recorder.
func WithMetrics(metrics MetricsRecorder) Option {
	return func(b *Bridge) { b.metrics = metrics }
}

// New creates a bridge over the given store and commit workflow.
func New(store *state.Store, commits *commit.Workflow, opts ...Option) *Bridge {
	b := &Bridge{
		store:   store,
		commits: commits,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Tools returns the mutation tools exposed to the agent.
func (b *Bridge) Tools() []ports.ToolExecutor {
	return []ports.ToolExecutor{
		&addObjectiveTool{bridge: b},
		&updateObjectiveTool{bridge: b},
		&deleteObjectiveTool{bridge: b},
		&commitConfirmationTool{bridge: b},
	}
}

// Registry returns a registry pre-populated with the bridge's tools.
func (b *Bridge) Registry() (ports.ToolRegistry, error) {
	registry := NewRegistry()
	for _, tool := range b.Tools() {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (b *Bridge) narrate(event ports.NarrativeEvent) {
	if b.narrator != nil {
		b.narrator.OnNarrative(event)
	}
}

func (b *Bridge) record(tool, outcome string) {
	if b.metrics != nil {
		b.metrics.RecordToolExecution(tool, outcome)
	}
}

// fail rejects a single tool call without touching the session state. The
// validation error travels back to the model inside the ToolResult so the
// failure is narrated, never silently dropped.
func (b *Bridge) fail(call ports.ToolCall, tool, objectiveID string, err error) (*ports.ToolResult, error) {
	b.logger.Warn("%s rejected: %v", tool, err)
	b.record(tool, "rejected")
	b.narrate(ports.NarrativeEvent{
		Tool:        tool,
		Phase:       ports.PhaseFailed,
		Message:     err.Error(),
		ObjectiveID: objectiveID,
	})
	return &ports.ToolResult{CallID: call.ID, Content: err.Error(), Error: err}, nil
}
