package okr

import "math"

// PercentComplete returns the key result's completion percentage, clamped to
// [0, 100]. A non-positive target resolves to 0 rather than dividing by zero.
func PercentComplete(kr KeyResult) float64 {
	if kr.Target <= 0 {
		return 0
	}
	ratio := kr.Progress / kr.Target
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return ratio * 100
}

// ComputeObjectiveProgress returns the rounded mean of the key results'
// completion percentages, or 0 for an empty list. Never returns NaN.
func ComputeObjectiveProgress(keyResults []KeyResult) int {
	if len(keyResults) == 0 {
		return 0
	}
	var sum float64
	for _, kr := range keyResults {
		sum += PercentComplete(kr)
	}
	return int(math.Round(sum / float64(len(keyResults))))
}

// Recompute refreshes every derived field on the objective: each key result's
// IsCompleted flag and the objective's aggregate progress. Mutation operations
// call this before returning, so derived fields are always consistent with the
// underlying key result data.
func Recompute(obj Objective) Objective {
	obj = obj.Clone()
	for i := range obj.KeyResults {
		kr := obj.KeyResults[i]
		obj.KeyResults[i].IsCompleted = kr.Progress >= kr.Target
	}
	obj.Progress = ComputeObjectiveProgress(obj.KeyResults)
	return obj
}
