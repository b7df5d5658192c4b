package okr

// Mutation operations over an objective collection. Every operation is pure:
// inputs are never modified, the returned collection is a fresh copy, and
// derived fields are recomputed before returning. Not-found conditions are
// reported through the boolean return so callers can distinguish them from
// success instead of silently swallowing them.

// KeyResultPatch is a partial update for one key result. Nil fields retain
// their prior values.
type KeyResultPatch struct {
	ID       string
	Summary  *string
	Progress *float64
	Target   *float64
	Units    *string
}

// ObjectivePatch is a partial update for one objective. Nil fields retain
// their prior values. A non-nil KeyResults slice is authoritative: entries are
// merged into existing key results by id, entries with unknown or empty ids
// are added, and existing key results absent from the slice are removed.
type ObjectivePatch struct {
	ID          string
	Summary     *string
	Description *string
	Quarter     *string
	KeyResults  []KeyResultPatch
}

// AddObjective appends a new objective built from the draft. The draft's id is
// ignored: a fresh unique id is always assigned, as are ids for any key
// results that lack one or that repeat an id already taken by an earlier key
// result in the draft. Status starts as draft.
func AddObjective(objectives []Objective, draft Objective) ([]Objective, Objective) {
	obj := draft.Clone()
	obj.ID = NewObjectiveID()
	obj.Status = StatusDraft
	if obj.KeyResults == nil {
		obj.KeyResults = []KeyResult{}
	}
	seen := make(map[string]struct{}, len(obj.KeyResults))
	for i := range obj.KeyResults {
		id := obj.KeyResults[i].ID
		if _, taken := seen[id]; id == "" || taken {
			id = NewKeyResultID()
			obj.KeyResults[i].ID = id
		}
		seen[id] = struct{}{}
	}
	obj = Recompute(obj)

	next := cloneAll(objectives)
	next = append(next, obj)
	return next, obj.Clone()
}

// UpdateObjective merges the patch into the objective with the matching id.
// The third return is false when no objective has that id, in which case the
// collection is returned unchanged.
func UpdateObjective(objectives []Objective, patch ObjectivePatch) ([]Objective, Objective, bool) {
	next := cloneAll(objectives)
	for i, obj := range next {
		if obj.ID != patch.ID {
			continue
		}
		merged := applyObjectivePatch(obj, patch)
		next[i] = merged
		return next, merged.Clone(), true
	}
	return next, Objective{}, false
}

// DeleteObjective removes the objective with the given id along with all of
// its key results. The boolean return is false when the id is absent.
func DeleteObjective(objectives []Objective, id string) ([]Objective, bool) {
	next := make([]Objective, 0, len(objectives))
	found := false
	for _, obj := range objectives {
		if obj.ID == id {
			found = true
			continue
		}
		next = append(next, obj.Clone())
	}
	return next, found
}

// CommitObjective transitions the objective's status to committed. Committing
// an already committed objective is a no-op that still reports found=true;
// there is no transition back to draft.
func CommitObjective(objectives []Objective, id string) ([]Objective, bool) {
	next := cloneAll(objectives)
	for i, obj := range next {
		if obj.ID == id {
			next[i].Status = StatusCommitted
			return next, true
		}
	}
	return next, false
}

// AddKeyResult appends a new key result to the objective and recomputes its
// derived progress. The draft's id is ignored in favor of a fresh one.
func AddKeyResult(obj Objective, draft KeyResult) (Objective, KeyResult) {
	next := obj.Clone()
	kr := draft.Clone()
	kr.ID = NewKeyResultID()
	next.KeyResults = append(next.KeyResults, kr)
	next = Recompute(next)
	return next, next.KeyResults[len(next.KeyResults)-1]
}

// UpdateKeyResult merges the patch into the matching key result and recomputes
// the objective's derived progress. Returns found=false when the id is absent.
func UpdateKeyResult(obj Objective, patch KeyResultPatch) (Objective, bool) {
	next := obj.Clone()
	for i, kr := range next.KeyResults {
		if kr.ID != patch.ID {
			continue
		}
		next.KeyResults[i] = applyKeyResultPatch(kr, patch)
		return Recompute(next), true
	}
	return next, false
}

// DeleteKeyResult removes the matching key result and recomputes the
// objective's derived progress. Returns found=false when the id is absent.
func DeleteKeyResult(obj Objective, id string) (Objective, bool) {
	next := obj.Clone()
	kept := make([]KeyResult, 0, len(next.KeyResults))
	found := false
	for _, kr := range next.KeyResults {
		if kr.ID == id {
			found = true
			continue
		}
		kept = append(kept, kr)
	}
	next.KeyResults = kept
	return Recompute(next), found
}

func applyObjectivePatch(obj Objective, patch ObjectivePatch) Objective {
	next := obj.Clone()
	if patch.Summary != nil {
		next.Summary = *patch.Summary
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.Quarter != nil {
		next.Quarter = *patch.Quarter
	}
	if patch.KeyResults != nil {
		next.KeyResults = reconcileKeyResults(next.KeyResults, patch.KeyResults)
	}
	return Recompute(next)
}

// reconcileKeyResults treats the patch list as the authoritative set of key
// results while preserving prior values for fields a patch entry omits. Ids
// stay unique within the objective: a patch entry repeating an id already
// consumed by an earlier entry becomes a new key result with a fresh id.
func reconcileKeyResults(existing []KeyResult, patches []KeyResultPatch) []KeyResult {
	byID := make(map[string]KeyResult, len(existing))
	for _, kr := range existing {
		byID[kr.ID] = kr
	}

	seen := make(map[string]struct{}, len(patches))
	next := make([]KeyResult, 0, len(patches))
	for _, patch := range patches {
		id := patch.ID
		_, taken := seen[id]
		if prior, ok := byID[id]; ok && !taken {
			seen[id] = struct{}{}
			next = append(next, applyKeyResultPatch(prior, patch))
			continue
		}
		if id == "" || taken {
			id = NewKeyResultID()
		}
		seen[id] = struct{}{}
		next = append(next, applyKeyResultPatch(KeyResult{ID: id}, patch))
	}
	return next
}

func applyKeyResultPatch(kr KeyResult, patch KeyResultPatch) KeyResult {
	if patch.Summary != nil {
		kr.Summary = *patch.Summary
	}
	if patch.Progress != nil {
		kr.Progress = *patch.Progress
	}
	if patch.Target != nil {
		kr.Target = *patch.Target
	}
	if patch.Units != nil {
		kr.Units = *patch.Units
	}
	return kr
}

func cloneAll(objectives []Objective) []Objective {
	next := make([]Objective, len(objectives))
	for i, obj := range objectives {
		next[i] = obj.Clone()
	}
	return next
}
