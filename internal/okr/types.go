// Package okr defines the OKR domain model shared by the manual UI path and
// the conversational agent: objectives, key results, derived progress, and the
// pure mutation operations applied to a session's objective collection.
//
// Canonical field names are summary/units/isCompleted; the legacy title/unit
// aliases that appear in older agent payloads are canonicalized at the bridge
// boundary, never stored.
package okr

import "time"

// Status is the lifecycle state of an objective. The only transition is
// draft -> committed, and only through the commit workflow.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusCommitted Status = "committed"
)

// KeyResult is a quantitative metric measuring progress toward an objective.
type KeyResult struct {
	ID       string  `json:"id"`
	Summary  string  `json:"summary"`
	Progress float64 `json:"progress"`
	Target   float64 `json:"target"`
	Units    string  `json:"units,omitempty"`
	// IsCompleted is derived: progress >= target. Recomputed on every
	// mutation, caller-supplied values are overwritten.
	IsCompleted bool `json:"isCompleted"`
}

// Objective is a qualitative goal owning zero or more key results.
type Objective struct {
	ID          string      `json:"id"`
	Summary     string      `json:"summary"`
	Description string      `json:"description,omitempty"`
	Quarter     string      `json:"quarter,omitempty"`
	KeyResults  []KeyResult `json:"keyResults"`
	// Progress is derived: the rounded mean of the key results' clamped
	// completion percentages. Never set directly by callers.
	Progress int    `json:"progress"`
	Status   Status `json:"status"`
}

// SessionState is the single shared document both actors mutate. It is only
// ever replaced wholesale; readers always observe a fully formed snapshot.
type SessionState struct {
	Objectives     []Objective `json:"objectives"`
	CurrentQuarter string      `json:"currentQuarter,omitempty"`
	LastUpdated    time.Time   `json:"lastUpdated"`
}

// Clone returns a deep copy of the key result.
func (kr KeyResult) Clone() KeyResult {
	return kr
}

// Clone returns a deep copy of the objective, including its key results.
func (o Objective) Clone() Objective {
	clone := o
	if o.KeyResults != nil {
		clone.KeyResults = make([]KeyResult, len(o.KeyResults))
		copy(clone.KeyResults, o.KeyResults)
	}
	return clone
}

// Clone returns a deep copy of the session state.
func (s SessionState) Clone() SessionState {
	clone := s
	if s.Objectives != nil {
		clone.Objectives = make([]Objective, len(s.Objectives))
		for i, obj := range s.Objectives {
			clone.Objectives[i] = obj.Clone()
		}
	}
	return clone
}

// Find returns the objective with the given id, or false when absent.
func (s SessionState) Find(id string) (Objective, bool) {
	for _, obj := range s.Objectives {
		if obj.ID == id {
			return obj.Clone(), true
		}
	}
	return Objective{}, false
}
