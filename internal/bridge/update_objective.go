package bridge

import (
	"context"
	"fmt"

	"github.com/nimeshgurung/okrbuilder/internal/agent/ports"
	"github.com/nimeshgurung/okrbuilder/internal/okr"
)

// updateObjectiveTool merges a partial patch into an existing objective.
// Fields the payload omits retain their prior values.
type updateObjectiveTool struct {
	bridge *Bridge
}

func (t *updateObjectiveTool) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	_ = ctx
	b := t.bridge

	var args updateObjectiveArgs
	if err := decodeArgs(call.Arguments, &args); err != nil {
		return b.fail(call, "update_objective", "", err)
	}
	patch, err := args.Objective.toPatch()
	if err != nil {
		return b.fail(call, "update_objective", "", err)
	}

	b.narrate(ports.NarrativeEvent{
		Tool:        "update_objective",
		Phase:       ports.PhaseInProgress,
		Message:     "Updating objective...",
		ObjectiveID: patch.ID,
	})

	var updated okr.Objective
	_, err = b.store.Update(func(prev okr.SessionState) (okr.SessionState, error) {
		objectives, merged, found := okr.UpdateObjective(prev.Objectives, patch)
		if !found {
			return prev, fmt.Errorf("objective %s was not found; nothing was changed", patch.ID)
		}
		prev.Objectives = objectives
		updated = merged
		return prev, nil
	})
	if err != nil {
		return b.fail(call, "update_objective", patch.ID, err)
	}

	b.logger.Info("Updated objective %s (%q), progress %d%%", updated.ID, updated.Summary, updated.Progress)
	b.record("update_objective", "applied")
	b.narrate(ports.NarrativeEvent{
		Tool:        "update_objective",
		Phase:       ports.PhaseComplete,
		Message:     fmt.Sprintf("Updated objective %q.", updated.Summary),
		ObjectiveID: updated.ID,
	})

	return &ports.ToolResult{
		CallID:  call.ID,
		Content: fmt.Sprintf("Updated objective %q (%s). Progress is now %d%%.", updated.Summary, updated.ID, updated.Progress),
		Ack:     updated,
	}, nil
}

func (t *updateObjectiveTool) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "update_objective",
		Description: "Update an objective in the OKR list. Omitted fields keep their current values; a provided keyResults list is authoritative.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"objective": objectiveProperty(),
			},
			Required: []string{"objective"},
		},
	}
}

func (t *updateObjectiveTool) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name:     "update_objective",
		Version:  "1.0.0",
		Category: "okr",
		Tags:     []string{"okr", "mutation"},
		Mutating: true,
	}
}
