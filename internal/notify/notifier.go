// Package notify keeps the conversational agent's view of the session state
// current. It subscribes to the state store and turns every successful
// mutation into a fresh JSON snapshot, queued as a system-origin context
// message for the next model turn. The snapshot present at startup is the
// baseline and produces no message; only changes after that do.
package notify

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/nimeshgurung/okrbuilder/internal/agent/ports"
	"github.com/nimeshgurung/okrbuilder/internal/logging"
	"github.com/nimeshgurung/okrbuilder/internal/okr"
	tokenutil "github.com/nimeshgurung/okrbuilder/internal/shared/token"
	"github.com/nimeshgurung/okrbuilder/internal/state"
)

const snapshotPreamble = "The OKR session state has changed. Current state (JSON):"

// snapshotTokenBudget bounds the snapshot message so a very large session
// cannot crowd the conversation out of the model's context window.
const snapshotTokenBudget = 4096

// Notifier queues state-snapshot context messages for the agent. Only the
// latest snapshot is kept: a newer snapshot supersedes any queued one.
type Notifier struct {
	mu      sync.Mutex
	logger  logging.Logger
	pending *ports.Message
	last    string

	differ *diffmatchpatch.DiffMatchPatch
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets the notifier logger.
func WithLogger(logger logging.Logger) Option {
	return func(n *Notifier) { n.logger = logger }
}

// New creates a notifier subscribed to the store. The store's current state
// becomes the diff baseline without emitting a message.
func New(store *state.Store, opts ...Option) *Notifier {
	n := &Notifier{
		logger: logging.Nop(),
		differ: diffmatchpatch.New(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.last = renderSnapshot(store.Get())
	store.Subscribe(n.onChange)
	return n
}

func (n *Notifier) onChange(next okr.SessionState) {
	rendered := renderSnapshot(next)

	n.mu.Lock()
	defer n.mu.Unlock()
	if rendered == n.last {
		return
	}

	n.logChange(n.last, rendered)
	n.last = rendered
	n.pending = &ports.Message{
		Role:       ports.RoleSystem,
		Content:    snapshotPreamble + "\n" + tokenutil.Truncate(rendered, snapshotTokenBudget),
		NoFollowUp: true,
	}
}

// Drain returns the queued snapshot message, if any, and clears the queue.
// Callers pass the result to the model as conversation context before the
// next user turn.
func (n *Notifier) Drain() []ports.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pending == nil {
		return nil
	}
	msg := *n.pending
	n.pending = nil
	return []ports.Message{msg}
}

// HasPending reports whether a snapshot is queued for the next turn.
func (n *Notifier) HasPending() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pending != nil
}

// logChange logs a compact diff between the previous and next snapshot plus
// the token cost of shipping the new one.
func (n *Notifier) logChange(prev, next string) {
	diffs := n.differ.DiffMain(prev, next, false)
	diffs = n.differ.DiffCleanupSemantic(diffs)

	var summary strings.Builder
	for _, d := range diffs {
		text := strings.TrimSpace(d.Text)
		if text == "" {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			fmt.Fprintf(&summary, "+%s ", compact(text))
		case diffmatchpatch.DiffDelete:
			fmt.Fprintf(&summary, "-%s ", compact(text))
		}
	}
	n.logger.Debug("state snapshot queued (%d tokens): %s",
		tokenutil.Count(next), strings.TrimSpace(summary.String()))
}

func compact(s string) string {
	const limit = 120
	collapsed := strings.Join(strings.Fields(s), " ")
	if len(collapsed) > limit {
		return collapsed[:limit] + "..."
	}
	return collapsed
}

func renderSnapshot(s okr.SessionState) string {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(raw)
}
