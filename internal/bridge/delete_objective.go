package bridge

import (
	"context"
	"fmt"

	"github.com/nimeshgurung/okrbuilder/internal/agent/ports"
	"github.com/nimeshgurung/okrbuilder/internal/okr"
)

// deleteObjectiveTool removes an objective and all of its key results.
// Deletion is immediate and irreversible within the session.
type deleteObjectiveTool struct {
	bridge *Bridge
}

func (t *deleteObjectiveTool) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	_ = ctx
	b := t.bridge

	var args objectiveIDArgs
	if err := decodeArgs(call.Arguments, &args); err != nil {
		return b.fail(call, "delete_objective", "", err)
	}

	b.narrate(ports.NarrativeEvent{
		Tool:        "delete_objective",
		Phase:       ports.PhaseInProgress,
		Message:     fmt.Sprintf("Deleting objective %s...", args.ObjectiveID),
		ObjectiveID: args.ObjectiveID,
	})

	_, err := b.store.Update(func(prev okr.SessionState) (okr.SessionState, error) {
		objectives, found := okr.DeleteObjective(prev.Objectives, args.ObjectiveID)
		if !found {
			return prev, fmt.Errorf("objective %s was not found; nothing was deleted", args.ObjectiveID)
		}
		prev.Objectives = objectives
		return prev, nil
	})
	if err != nil {
		return b.fail(call, "delete_objective", args.ObjectiveID, err)
	}

	b.logger.Info("Deleted objective %s", args.ObjectiveID)
	b.record("delete_objective", "applied")
	b.narrate(ports.NarrativeEvent{
		Tool:        "delete_objective",
		Phase:       ports.PhaseComplete,
		Message:     fmt.Sprintf("Objective with ID %s has been deleted.", args.ObjectiveID),
		ObjectiveID: args.ObjectiveID,
	})

	return &ports.ToolResult{
		CallID:  call.ID,
		Content: fmt.Sprintf("Objective %s has been deleted.", args.ObjectiveID),
		Ack:     args.ObjectiveID,
	}, nil
}

func (t *deleteObjectiveTool) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "delete_objective",
		Description: "Delete an objective from the OKR list.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"objectiveId": {
					Type:        "string",
					Description: "The ID of the objective to delete.",
				},
			},
			Required: []string{"objectiveId"},
		},
	}
}

func (t *deleteObjectiveTool) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name:     "delete_objective",
		Version:  "1.0.0",
		Category: "okr",
		Tags:     []string{"okr", "mutation"},
		Mutating: true,
	}
}
