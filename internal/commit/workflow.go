// Package commit implements the two-phase confirm/cancel gate that finalizes
// an objective's draft status. The pending-confirmation flag is presentation
// state: it lives here, never inside the session state, and does not survive
// a restart.
package commit

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nimeshgurung/okrbuilder/internal/logging"
	"github.com/nimeshgurung/okrbuilder/internal/okr"
	"github.com/nimeshgurung/okrbuilder/internal/state"
)

// ErrNotFound indicates the objective id does not exist in the session state.
var ErrNotFound = errors.New("objective not found")

// Workflow gates the one-way draft -> committed transition behind an explicit
// confirmation. RequestCommit only records a pending-confirmation flag; the
// status transition happens exclusively through Confirm.
type Workflow struct {
	store   *state.Store
	logger  logging.Logger
	refresh func()

	mu      sync.Mutex
	pending map[string]bool
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger sets the workflow logger.
func WithLogger(logger logging.Logger) Option {
	return func(w *Workflow) { w.logger = logger }
}

// WithRefresh sets the callback fired when a pending confirmation is
// discarded, so the UI re-renders even though no data changed.
func WithRefresh(refresh func()) Option {
	return func(w *Workflow) { w.refresh = refresh }
}

// New creates a commit workflow backed by the given store.
func New(store *state.Store, opts ...Option) *Workflow {
	w := &Workflow{
		store:   store,
		logger:  logging.Nop(),
		pending: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RequestCommit marks the objective as awaiting confirmation. It never
// touches the session state. Requesting a commit for an unknown objective is
// a not-found error; requesting one for an already committed objective is
// accepted and resolves to a no-op on confirm.
func (w *Workflow) RequestCommit(objectiveID string) error {
	if _, ok := w.store.Get().Find(objectiveID); !ok {
		return fmt.Errorf("request commit for %s: %w", objectiveID, ErrNotFound)
	}

	w.mu.Lock()
	w.pending[objectiveID] = true
	w.mu.Unlock()

	w.logger.Info("Commit requested for objective %s, awaiting confirmation", objectiveID)
	return nil
}

// IsPending reports whether the objective is awaiting confirmation.
func (w *Workflow) IsPending(objectiveID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending[objectiveID]
}

// Confirm transitions the objective to committed and clears the pending flag.
// Confirming an already committed objective succeeds without touching the
// session state, so no subscriber sees a spurious change.
func (w *Workflow) Confirm(objectiveID string) (okr.Objective, error) {
	w.clearPending(objectiveID)

	if obj, ok := w.store.Get().Find(objectiveID); ok && obj.Status == okr.StatusCommitted {
		return obj, nil
	}

	snapshot, err := w.store.Update(func(prev okr.SessionState) (okr.SessionState, error) {
		objectives, found := okr.CommitObjective(prev.Objectives, objectiveID)
		if !found {
			return prev, fmt.Errorf("confirm commit for %s: %w", objectiveID, ErrNotFound)
		}
		prev.Objectives = objectives
		return prev, nil
	})
	if err != nil {
		return okr.Objective{}, err
	}

	committed, _ := snapshot.Find(objectiveID)
	w.logger.Info("Objective %s committed", objectiveID)
	return committed, nil
}

// Cancel discards the pending confirmation. The session state is unchanged,
// but the refresh callback still fires so the confirmation affordance
// disappears from the UI.
func (w *Workflow) Cancel(objectiveID string) {
	w.clearPending(objectiveID)
	w.logger.Info("Commit for objective %s cancelled", objectiveID)
	if w.refresh != nil {
		w.refresh()
	}
}

func (w *Workflow) clearPending(objectiveID string) {
	w.mu.Lock()
	delete(w.pending, objectiveID)
	w.mu.Unlock()
}
