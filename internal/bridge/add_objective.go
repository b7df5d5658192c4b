package bridge

import (
	"context"
	"fmt"

	"github.com/nimeshgurung/okrbuilder/internal/agent/ports"
	"github.com/nimeshgurung/okrbuilder/internal/okr"
)

// addObjectiveTool appends a new objective to the OKR list.
type addObjectiveTool struct {
	bridge *Bridge
}

func (t *addObjectiveTool) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	_ = ctx
	b := t.bridge

	var args addObjectiveArgs
	if err := decodeArgs(call.Arguments, &args); err != nil {
		return b.fail(call, "add_objective", "", err)
	}
	draft, err := args.Objective.toDraft()
	if err != nil {
		return b.fail(call, "add_objective", "", err)
	}

	b.narrate(ports.NarrativeEvent{
		Tool:    "add_objective",
		Phase:   ports.PhaseInProgress,
		Message: fmt.Sprintf("Adding objective %q...", draft.Summary),
	})

	var created okr.Objective
	b.store.Replace(func(prev okr.SessionState) okr.SessionState {
		if draft.Quarter == "" {
			draft.Quarter = prev.CurrentQuarter
		}
		prev.Objectives, created = okr.AddObjective(prev.Objectives, draft)
		return prev
	})

	b.logger.Info("Added objective %s (%q)", created.ID, created.Summary)
	b.record("add_objective", "applied")
	b.narrate(ports.NarrativeEvent{
		Tool:        "add_objective",
		Phase:       ports.PhaseComplete,
		Message:     fmt.Sprintf("Added objective %q.", created.Summary),
		ObjectiveID: created.ID,
	})

	return &ports.ToolResult{
		CallID:  call.ID,
		Content: fmt.Sprintf("Added objective %q with id %s and %d key results. Status: draft.", created.Summary, created.ID, len(created.KeyResults)),
		Ack:     created,
	}, nil
}

func (t *addObjectiveTool) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "add_objective",
		Description: "Add an objective to the OKR list.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"objective": objectiveProperty(),
			},
			Required: []string{"objective"},
		},
	}
}

func (t *addObjectiveTool) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name:     "add_objective",
		Version:  "1.0.0",
		Category: "okr",
		Tags:     []string{"okr", "mutation"},
		Mutating: true,
	}
}
