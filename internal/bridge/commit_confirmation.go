package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimeshgurung/okrbuilder/internal/agent/ports"
	"github.com/nimeshgurung/okrbuilder/internal/commit"
)

// commitConfirmationTool surfaces the confirm/cancel affordance for
// committing an objective. It never mutates the session state: the status
// transition only happens when the human confirms through the commit
// workflow.
type commitConfirmationTool struct {
	bridge *Bridge
}

func (t *commitConfirmationTool) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	_ = ctx
	b := t.bridge

	var args objectiveIDArgs
	if err := decodeArgs(call.Arguments, &args); err != nil {
		return b.fail(call, "request_commit_confirmation", "", err)
	}

	if err := b.commits.RequestCommit(args.ObjectiveID); err != nil {
		if errors.Is(err, commit.ErrNotFound) {
			err = fmt.Errorf("objective %s was not found; no confirmation shown", args.ObjectiveID)
		}
		return b.fail(call, "request_commit_confirmation", args.ObjectiveID, err)
	}

	b.record("request_commit_confirmation", "pending")
	b.narrate(ports.NarrativeEvent{
		Tool:        "request_commit_confirmation",
		Phase:       ports.PhaseComplete,
		Message:     fmt.Sprintf("Awaiting confirmation to commit objective %s.", args.ObjectiveID),
		ObjectiveID: args.ObjectiveID,
	})

	return &ports.ToolResult{
		CallID:  call.ID,
		Content: fmt.Sprintf("A confirmation dialog for objective %s is now shown to the user. The objective is NOT committed yet.", args.ObjectiveID),
		Ack:     args.ObjectiveID,
	}, nil
}

func (t *commitConfirmationTool) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name: "request_commit_confirmation",
		Description: `Display a confirmation dialog to commit an OKR.

IMPORTANT: this tool does NOT commit the OKR. It only shows a confirmation
dialog to the user. To determine whether an OKR was actually committed, check
the objective's status in the state snapshot: only when it reads 'committed'
may you report the commit as done.`,
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"objectiveId": {
					Type:        "string",
					Description: "The ID of the objective to potentially commit.",
				},
			},
			Required: []string{"objectiveId"},
		},
	}
}

func (t *commitConfirmationTool) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name:     "request_commit_confirmation",
		Version:  "1.0.0",
		Category: "okr",
		Tags:     []string{"okr", "confirmation"},
	}
}
