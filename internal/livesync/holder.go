package livesync

import (
	"context"
	"errors"
	"sync"

	"github.com/2beens/bodylog/internal/entries"

	log "github.com/sirupsen/logrus"
)

var ErrNotFailed = errors.New("live sync is not in a failed state")

// Holder owns the active Synchronizer and swaps it for a fresh one on a manual
// retry after a fatal start failure. It forwards the Synchronizer surface to
// whichever instance is active.
type Holder struct {
	newSynchronizer func() *Synchronizer

	mu      sync.RWMutex
	current *Synchronizer
	// guards Retry against concurrent swaps
	retryMu sync.Mutex
}

func NewHolder(newSynchronizer func() *Synchronizer) *Holder {
	return &Holder{
		newSynchronizer: newSynchronizer,
		current:         newSynchronizer(),
	}
}

// Start starts the current synchronizer. The subscriptions are not bound to the
// cancellation of ctx; they end with Stop.
func (h *Holder) Start(ctx context.Context) error {
	return h.Current().Start(context.WithoutCancel(ctx))
}

// Retry replaces a failed synchronizer with a new, started one.
func (h *Holder) Retry(ctx context.Context) error {
	h.retryMu.Lock()
	defer h.retryMu.Unlock()

	old := h.Current()
	if !old.State().Fatal {
		return ErrNotFailed
	}

	log.Infoln("retrying live sync after a failed start")
	old.Stop()

	fresh := h.newSynchronizer()
	h.mu.Lock()
	h.current = fresh
	h.mu.Unlock()

	// wake anybody still waiting on the old instance
	old.mu.Lock()
	old.broadcastLocked()
	old.mu.Unlock()

	return fresh.Start(context.WithoutCancel(ctx))
}

func (h *Holder) Stop() {
	h.Current().Stop()
}

func (h *Holder) Current() *Synchronizer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

func (h *Holder) State() State {
	return h.Current().State()
}

func (h *Holder) Updated() <-chan struct{} {
	return h.Current().Updated()
}

func (h *Holder) AddWeight(ctx context.Context, entry entries.WeightEntry) (string, error) {
	return h.Current().AddWeight(ctx, entry)
}

func (h *Holder) AddExercise(ctx context.Context, entry entries.ExerciseEntry) (string, error) {
	return h.Current().AddExercise(ctx, entry)
}

func (h *Holder) AddJournal(ctx context.Context, entry entries.JournalEntry) (string, error) {
	return h.Current().AddJournal(ctx, entry)
}

func (h *Holder) Update(ctx context.Context, entry entries.Entry) error {
	return h.Current().Update(ctx, entry)
}

func (h *Holder) Delete(ctx context.Context, kind entries.Kind, id string) error {
	return h.Current().Delete(ctx, kind, id)
}
