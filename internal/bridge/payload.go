package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kaptinlin/jsonrepair"

	"github.com/nimeshgurung/okrbuilder/internal/okr"
)

// Payload schema note: the canonical field names are summary/units. Older
// agent revisions emit title (objective summary), description (key result
// summary) and unit; those aliases are folded into the canonical fields at
// decode time, with the canonical name winning when both are present. The
// canonical shape is never stored with alias names.

var validate = validator.New()

// KeyResultPayload is the wire shape of one key result in a mutation payload.
// Pointer fields distinguish omitted values from explicit zeroes, which is
// what gives updates their partial-patch semantics.
type KeyResultPayload struct {
	ID          string   `json:"id,omitempty"`
	Summary     *string  `json:"summary,omitempty"`
	Description *string  `json:"description,omitempty"` // legacy alias for summary
	Progress    *float64 `json:"progress,omitempty"`
	Target      *float64 `json:"target,omitempty"`
	Units       *string  `json:"units,omitempty"`
	Unit        *string  `json:"unit,omitempty"` // legacy alias for units
}

// ObjectivePayload is the wire shape of an objective in a mutation payload.
type ObjectivePayload struct {
	ID          string              `json:"id,omitempty"`
	Summary     *string             `json:"summary,omitempty"`
	Title       *string             `json:"title,omitempty"` // legacy alias for summary
	Description *string             `json:"description,omitempty"`
	Quarter     *string             `json:"quarter,omitempty"`
	KeyResults  *[]KeyResultPayload `json:"keyResults,omitempty"`
}

type addObjectiveArgs struct {
	Objective *ObjectivePayload `json:"objective" validate:"required"`
}

type updateObjectiveArgs struct {
	Objective *ObjectivePayload `json:"objective" validate:"required"`
}

type objectiveIDArgs struct {
	ObjectiveID string `json:"objectiveId" validate:"required"`
}

func (p *KeyResultPayload) canonicalize() {
	if p.Summary == nil && p.Description != nil {
		p.Summary = p.Description
	}
	p.Description = nil
	if p.Units == nil && p.Unit != nil {
		p.Units = p.Unit
	}
	p.Unit = nil
}

func (p *ObjectivePayload) canonicalize() {
	if p.Summary == nil && p.Title != nil {
		p.Summary = p.Title
	}
	p.Title = nil
	if p.KeyResults != nil {
		krs := *p.KeyResults
		for i := range krs {
			krs[i].canonicalize()
		}
	}
}

// toDraft converts the payload into a new-objective draft. The summary is
// required; everything else defaults.
func (p *ObjectivePayload) toDraft() (okr.Objective, error) {
	p.canonicalize()
	if p.Summary == nil || strings.TrimSpace(*p.Summary) == "" {
		return okr.Objective{}, fmt.Errorf("objective summary is required")
	}

	draft := okr.Objective{Summary: strings.TrimSpace(*p.Summary)}
	if p.Description != nil {
		draft.Description = *p.Description
	}
	if p.Quarter != nil {
		draft.Quarter = *p.Quarter
	}
	if p.KeyResults != nil {
		for _, kr := range *p.KeyResults {
			draft.KeyResults = append(draft.KeyResults, kr.toDraft())
		}
	}
	return draft, nil
}

func (p KeyResultPayload) toDraft() okr.KeyResult {
	kr := okr.KeyResult{ID: p.ID}
	if p.Summary != nil {
		kr.Summary = *p.Summary
	}
	if p.Progress != nil {
		kr.Progress = *p.Progress
	}
	if p.Target != nil {
		kr.Target = *p.Target
	}
	if p.Units != nil {
		kr.Units = *p.Units
	}
	return kr
}

// toPatch converts the payload into a partial objective patch. The id is
// required for updates.
func (p *ObjectivePayload) toPatch() (okr.ObjectivePatch, error) {
	p.canonicalize()
	if strings.TrimSpace(p.ID) == "" {
		return okr.ObjectivePatch{}, fmt.Errorf("objective id is required for updates")
	}

	patch := okr.ObjectivePatch{
		ID:          strings.TrimSpace(p.ID),
		Summary:     p.Summary,
		Description: p.Description,
		Quarter:     p.Quarter,
	}
	if p.KeyResults != nil {
		patches := make([]okr.KeyResultPatch, 0, len(*p.KeyResults))
		for _, kr := range *p.KeyResults {
			patches = append(patches, okr.KeyResultPatch{
				ID:       kr.ID,
				Summary:  kr.Summary,
				Progress: kr.Progress,
				Target:   kr.Target,
				Units:    kr.Units,
			})
		}
		patch.KeyResults = patches
	}
	return patch, nil
}

// decodeArgs maps a tool call's arguments onto dst and validates required
// fields. Top-level values that arrive as JSON-encoded strings (a common
// model failure mode) are repaired and re-parsed before decoding.
func decodeArgs(args map[string]any, dst any) error {
	normalized := normalizeArguments(args)

	raw, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// normalizeArguments converts string-encoded object and array values into
// their structured form, repairing sloppy JSON when necessary.
func normalizeArguments(args map[string]any) map[string]any {
	normalized := make(map[string]any, len(args))
	for key, value := range args {
		str, ok := value.(string)
		if !ok || !looksLikeJSON(str) {
			normalized[key] = value
			continue
		}

		var parsed any
		if err := json.Unmarshal([]byte(str), &parsed); err == nil {
			normalized[key] = parsed
			continue
		}
		if repaired, err := jsonrepair.JSONRepair(str); err == nil {
			if err := json.Unmarshal([]byte(repaired), &parsed); err == nil {
				normalized[key] = parsed
				continue
			}
		}
		normalized[key] = value
	}
	return normalized
}

func looksLikeJSON(s string) bool {
	trimmed := strings.TrimSpace(s)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}
