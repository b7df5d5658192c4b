// Package ports defines the contracts between the chat loop, the LLM relay,
// and the mutation tools exposed to the conversational agent.
package ports

import "context"

// ToolExecutor executes a single tool call proposed by the model.
type ToolExecutor interface {
	// Execute runs the tool with the given arguments. Recoverable failures
	// (validation errors, unknown ids) are reported inside the ToolResult;
	// the error return is reserved for faults the caller cannot narrate.
	Execute(ctx context.Context, call ToolCall) (*ToolResult, error)

	// Definition returns the tool's schema for the LLM.
	Definition() ToolDefinition

	// Metadata returns tool metadata.
	Metadata() ToolMetadata
}

// ToolRegistry manages the tools available to the agent.
type ToolRegistry interface {
	Register(tool ToolExecutor) error
	Get(name string) (ToolExecutor, error)
	List() []ToolDefinition
}

// ToolCall represents a request to execute a tool.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	SessionID string         `json:"session_id,omitempty"`
}

// ToolResult is the execution result returned to the model. Content carries
// the acknowledgment narrative; Ack carries the structured acknowledgment
// value (the created or updated entity, or the deleted id).
type ToolResult struct {
	CallID   string         `json:"call_id"`
	Content  string         `json:"content"`
	Ack      any            `json:"ack,omitempty"`
	Error    error          `json:"-"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToolDefinition describes a tool for the LLM.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ToolMetadata contains tool information.
type ToolMetadata struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Mutating bool     `json:"mutating"`
}

// ParameterSchema defines tool parameters (JSON Schema format).
type ParameterSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property defines a single parameter.
type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
	Enum        []any               `json:"enum,omitempty"`
}

// Phase is the lifecycle stage of a mutation narrated back to both actors.
type Phase string

const (
	PhaseInProgress Phase = "in_progress"
	PhaseComplete   Phase = "complete"
	PhaseFailed     Phase = "failed"
)

// NarrativeEvent is a human-readable progress report emitted while a tool
// call is validated and applied, surfaced to the UI alongside the result.
type NarrativeEvent struct {
	Tool    string `json:"tool"`
	Phase   Phase  `json:"phase"`
	Message string `json:"message"`
	// ObjectiveID is set when the event concerns a single objective, so the
	// UI can address affordances (e.g. the commit confirmation) to it.
	ObjectiveID string `json:"objective_id,omitempty"`
}

// NarrativeSink receives narrative events. Implementations must be safe for
// use from the chat loop goroutine.
type NarrativeSink interface {
	OnNarrative(event NarrativeEvent)
}

// NarrativeFunc adapts a function to the NarrativeSink interface.
type NarrativeFunc func(event NarrativeEvent)

// OnNarrative implements NarrativeSink.
func (f NarrativeFunc) OnNarrative(event NarrativeEvent) {
	if f != nil {
		f(event)
	}
}
