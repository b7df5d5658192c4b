package chat

import (
	"encoding/json"
	"fmt"

	"github.com/nimeshgurung/okrbuilder/internal/okr"
)

// systemPrompt frames the agent as an OKR strategist. The drafting rules
// matter: the agent must produce a complete draft immediately instead of
// interviewing the user, and must call the mutation tools so the shared
// session state stays current.
const systemPrompt = `You are an expert OKR strategist. Your goal is to help users draft Objectives and Key Results (OKRs).
When a user asks you to generate an OKR, immediately create a complete, specific, and ambitious draft based on their request.
Do not ask for more details or clarifying questions. Make reasonable assumptions to generate a full OKR, including one clear Objective and at least four measurable Key Results.
After every creation, update, or deletion of an Objective or Key Result, you MUST call the matching tool so the shared OKR state reflects the change. Never describe a change without applying it through a tool.
New objectives always start as drafts. Never commit an objective yourself: when the user wants to commit, call request_commit_confirmation and let them decide.
Present your draft as a starting point for collaboration. Encourage the user to give feedback and refine the OKR until they are satisfied.`

// SuggestionInstructions renders the prompt used to generate follow-up
// suggestions for the user, carrying the current objectives (commit status
// stripped, it is UI-only context).
func SuggestionInstructions(s okr.SessionState) string {
	type keyResultView struct {
		ID          string  `json:"id"`
		Summary     string  `json:"summary"`
		Progress    float64 `json:"progress"`
		Target      float64 `json:"target"`
		Units       string  `json:"units,omitempty"`
		IsCompleted bool    `json:"isCompleted"`
	}
	type objectiveView struct {
		ID          string          `json:"id"`
		Summary     string          `json:"summary"`
		Description string          `json:"description,omitempty"`
		Quarter     string          `json:"quarter,omitempty"`
		KeyResults  []keyResultView `json:"keyResults"`
		Progress    int             `json:"progress"`
	}

	views := make([]objectiveView, 0, len(s.Objectives))
	for _, o := range s.Objectives {
		view := objectiveView{
			ID:          o.ID,
			Summary:     o.Summary,
			Description: o.Description,
			Quarter:     o.Quarter,
			Progress:    o.Progress,
			KeyResults:  make([]keyResultView, 0, len(o.KeyResults)),
		}
		for _, kr := range o.KeyResults {
			view.KeyResults = append(view.KeyResults, keyResultView(kr))
		}
		views = append(views, view)
	}

	rendered, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		rendered = []byte("[]")
	}

	return fmt.Sprintf(`I'm here to help you refine and enhance your Key Results. Looking at your objectives, I can suggest:
1. Additional specific, measurable key results that align with each objective
2. Ways to improve existing key result descriptions to be more actionable and measurable
3. Adjustments to make your key results more ambitious yet achievable
4. Better metrics and units to track progress effectively

Remember, great key results should be quantifiable and time-bound. Let me help you strengthen them.

After any modification to Key Results, update the OKR state to reflect the changes and keep the user informed in a clear, friendly way. Here is the current OKR state:
%s`, rendered)
}
