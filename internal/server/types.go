package server

import (
	"time"

	"github.com/nimeshgurung/okrbuilder/internal/okr"
)

// APIResponse is the envelope for every JSON endpoint.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse reports server liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

// ObjectiveRequest is the manual-path payload for creating an objective.
type ObjectiveRequest struct {
	Summary     string             `json:"summary" binding:"required"`
	Description string             `json:"description"`
	Quarter     string             `json:"quarter"`
	KeyResults  []KeyResultRequest `json:"keyResults"`
}

// KeyResultRequest is the manual-path payload for creating a key result.
type KeyResultRequest struct {
	Summary  string  `json:"summary" binding:"required"`
	Progress float64 `json:"progress"`
	Target   float64 `json:"target"`
	Units    string  `json:"units"`
}

// ObjectivePatchRequest carries a partial objective update. Absent fields
// leave the stored values untouched.
type ObjectivePatchRequest struct {
	Summary     *string                 `json:"summary"`
	Description *string                 `json:"description"`
	Quarter     *string                 `json:"quarter"`
	KeyResults  []KeyResultPatchRequest `json:"keyResults"`
}

// KeyResultPatchRequest carries a partial key result update.
type KeyResultPatchRequest struct {
	ID       string   `json:"id"`
	Summary  *string  `json:"summary"`
	Progress *float64 `json:"progress"`
	Target   *float64 `json:"target"`
	Units    *string  `json:"units"`
}

// ChatRequest is one user message to the conversational agent.
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Content   string `json:"content" binding:"required"`
}

// SuggestionsResponse carries the follow-up suggestion instructions.
type SuggestionsResponse struct {
	Instructions string `json:"instructions"`
}

func (r ObjectiveRequest) toDraft() okr.Objective {
	draft := okr.Objective{
		Summary:     r.Summary,
		Description: r.Description,
		Quarter:     r.Quarter,
	}
	for _, kr := range r.KeyResults {
		draft.KeyResults = append(draft.KeyResults, okr.KeyResult{
			Summary:  kr.Summary,
			Progress: kr.Progress,
			Target:   kr.Target,
			Units:    kr.Units,
		})
	}
	return draft
}

func (r ObjectivePatchRequest) toPatch(id string) okr.ObjectivePatch {
	patch := okr.ObjectivePatch{
		ID:          id,
		Summary:     r.Summary,
		Description: r.Description,
		Quarter:     r.Quarter,
	}
	if r.KeyResults != nil {
		patch.KeyResults = make([]okr.KeyResultPatch, 0, len(r.KeyResults))
		for _, kr := range r.KeyResults {
			patch.KeyResults = append(patch.KeyResults, okr.KeyResultPatch{
				ID:       kr.ID,
				Summary:  kr.Summary,
				Progress: kr.Progress,
				Target:   kr.Target,
				Units:    kr.Units,
			})
		}
	}
	return patch
}

func (r KeyResultPatchRequest) toPatch(id string) okr.KeyResultPatch {
	return okr.KeyResultPatch{
		ID:       id,
		Summary:  r.Summary,
		Progress: r.Progress,
		Target:   r.Target,
		Units:    r.Units,
	}
}
