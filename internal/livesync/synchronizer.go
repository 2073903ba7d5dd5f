package livesync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/2beens/bodylog/internal/entries"
	"github.com/2beens/bodylog/internal/store"
	"github.com/2beens/bodylog/internal/telemetry/metrics"
	"github.com/2beens/bodylog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var (
	ErrAlreadyStarted = errors.New("synchronizer already started")
	ErrUnknownEntry   = errors.New("unknown entry type")
)

// Synchronizer keeps the latest snapshot of every entry kind, fed by one live
// subscription per kind, and exposes the mutations on them.
//
// Snapshots are never patched locally: a mutation only reaches the state through
// the next store event.
type Synchronizer struct {
	weights   *entries.Repository[entries.WeightEntry]
	exercises *entries.Repository[entries.ExerciseEntry]
	journals  *entries.Repository[entries.JournalEntry]
	metrics   *metrics.Manager

	mu        sync.Mutex
	started   bool
	stopped   bool
	fatal     bool
	phases    map[entries.Kind]Phase
	delivered map[entries.Kind]bool
	weight    []entries.WeightEntry
	exercise  []entries.ExerciseEntry
	journal   []entries.JournalEntry
	errMsg    *string
	unsubs    []entries.Unsubscribe
	updated   chan struct{}
}

// New creates a synchronizer on top of the given store. metricsManager may be nil.
func New(s store.Store, metricsManager *metrics.Manager) *Synchronizer {
	phases := make(map[entries.Kind]Phase, len(entries.Kinds))
	for _, kind := range entries.Kinds {
		phases[kind] = PhaseUninitialized
	}

	return &Synchronizer{
		weights:   entries.NewWeightRepository(s),
		exercises: entries.NewExerciseRepository(s),
		journals:  entries.NewJournalRepository(s),
		metrics:   metricsManager,
		phases:    phases,
		delivered: make(map[entries.Kind]bool, len(entries.Kinds)),
		updated:   make(chan struct{}),
	}
}

// Start registers the three live subscriptions concurrently. When any registration
// fails, the ones that succeeded are unsubscribed, the synchronizer moves to the
// fatal error state, and the setup error is returned.
func (s *Synchronizer) Start(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "livesync.start")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	for _, kind := range entries.Kinds {
		s.phases[kind] = PhaseSubscribing
	}
	s.broadcastLocked()
	s.mu.Unlock()

	// subscriptions outlive the start call, so the group gets no derived context
	unsubs := make([]entries.Unsubscribe, 3)
	var g errgroup.Group
	g.Go(func() error {
		unsub, err := s.weights.SubscribeLive(ctx, receive(s, entries.KindWeight, &s.weight), s.listenFailed(entries.KindWeight))
		unsubs[0] = unsub
		return err
	})
	g.Go(func() error {
		unsub, err := s.exercises.SubscribeLive(ctx, receive(s, entries.KindExercise, &s.exercise), s.listenFailed(entries.KindExercise))
		unsubs[1] = unsub
		return err
	})
	g.Go(func() error {
		unsub, err := s.journals.SubscribeLive(ctx, receive(s, entries.KindJournal, &s.journal), s.listenFailed(entries.KindJournal))
		unsubs[2] = unsub
		return err
	})

	if err := g.Wait(); err != nil {
		log.Errorf("live sync start: %s", err)
		unsubscribeAll(unsubs)

		s.mu.Lock()
		s.fatal = true
		for _, kind := range entries.Kinds {
			s.phases[kind] = PhaseError
		}
		s.setErrorLocked(MsgLoadFailed)
		s.mu.Unlock()

		return err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		unsubscribeAll(unsubs)
		return nil
	}
	s.unsubs = unsubs
	s.mu.Unlock()

	log.Debugln("live sync started")
	return nil
}

// Stop releases every subscription exactly once. Snapshots arriving afterwards are dropped.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	unsubs := s.unsubs
	s.unsubs = nil
	for kind, phase := range s.phases {
		if phase != PhaseError {
			s.phases[kind] = PhaseUnsubscribed
		}
	}
	s.broadcastLocked()
	s.mu.Unlock()

	// outside the lock: an in-flight delivery may be waiting for it
	unsubscribeAll(unsubs)
	log.Debugln("live sync stopped")
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		Weight:   cloneList(s.weight),
		Exercise: cloneExercises(s.exercise),
		Journal:  cloneList(s.journal),
		Loading:  !s.fatal && !s.allDeliveredLocked(),
		Fatal:    s.fatal,
		Phases:   make(map[entries.Kind]Phase, len(s.phases)),
	}
	if s.errMsg != nil {
		msg := *s.errMsg
		state.Error = &msg
	}
	for kind, phase := range s.phases {
		state.Phases[kind] = phase
	}

	return state
}

// Updated returns a channel that is closed on the next state change.
func (s *Synchronizer) Updated() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated
}

func (s *Synchronizer) AddWeight(ctx context.Context, entry entries.WeightEntry) (string, error) {
	return add(ctx, s, s.weights, entry)
}

func (s *Synchronizer) AddExercise(ctx context.Context, entry entries.ExerciseEntry) (string, error) {
	return add(ctx, s, s.exercises, entry)
}

func (s *Synchronizer) AddJournal(ctx context.Context, entry entries.JournalEntry) (string, error) {
	return add(ctx, s, s.journals, entry)
}

// Update overwrites the entry with the same kind and id in the store.
func (s *Synchronizer) Update(ctx context.Context, entry entries.Entry) (err error) {
	if entry == nil {
		return ErrUnknownEntry
	}

	kind := entry.EntryKind()
	ctx, span := tracing.GlobalTracer.Start(ctx, "livesync.update")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(
		attribute.String("kind", kind.String()),
		attribute.String("id", entry.EntryID()),
	)

	switch e := entry.(type) {
	case entries.WeightEntry:
		err = s.weights.Update(ctx, e.ID, e)
	case entries.ExerciseEntry:
		err = s.exercises.Update(ctx, e.ID, e)
	case entries.JournalEntry:
		err = s.journals.Update(ctx, e.ID, e)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEntry, entry)
	}

	if err != nil {
		s.mutationFailed(kind, entries.OpUpdate, fmt.Sprintf("Failed to update %s entry", kind), err)
		return err
	}

	s.mutationSucceeded()
	if s.metrics != nil {
		s.metrics.CounterEntriesUpdated.WithLabelValues(kind.String()).Inc()
	}
	return nil
}

func (s *Synchronizer) Delete(ctx context.Context, kind entries.Kind, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "livesync.delete")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(
		attribute.String("kind", kind.String()),
		attribute.String("id", id),
	)

	switch kind {
	case entries.KindWeight:
		err = s.weights.Remove(ctx, id)
	case entries.KindExercise:
		err = s.exercises.Remove(ctx, id)
	case entries.KindJournal:
		err = s.journals.Remove(ctx, id)
	default:
		return fmt.Errorf("%w: %q", entries.ErrUnknownKind, kind)
	}

	if err != nil {
		s.mutationFailed(kind, entries.OpRemove, fmt.Sprintf("Failed to delete %s entry", kind), err)
		return err
	}

	s.mutationSucceeded()
	if s.metrics != nil {
		s.metrics.CounterEntriesDeleted.WithLabelValues(kind.String()).Inc()
	}
	return nil
}

func add[T entries.Entry](
	ctx context.Context,
	s *Synchronizer,
	repo *entries.Repository[T],
	entry T,
) (_ string, err error) {
	kind := repo.Kind()
	ctx, span := tracing.GlobalTracer.Start(ctx, "livesync.add")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("kind", kind.String()))

	id, err := repo.Create(ctx, entry)
	if err != nil {
		s.mutationFailed(kind, entries.OpCreate, fmt.Sprintf("Failed to save %s entry", kind), err)
		return "", err
	}

	s.mutationSucceeded()
	if s.metrics != nil {
		s.metrics.CounterEntriesAdded.WithLabelValues(kind.String()).Inc()
	}
	return id, nil
}

// receive builds the snapshot callback of one kind. dst is only touched under s.mu.
func receive[T entries.Entry](s *Synchronizer, kind entries.Kind, dst *[]T) func([]T) {
	return func(records []T) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if !s.acceptsLocked(kind) {
			return
		}

		*dst = records
		s.phases[kind] = PhaseLive
		s.delivered[kind] = true
		s.broadcastLocked()

		if s.metrics != nil {
			s.metrics.CounterSnapshots.WithLabelValues(kind.String()).Inc()
			s.metrics.GaugeSnapshotSize.WithLabelValues(kind.String()).Set(float64(len(records)))
		}
	}
}

// listenFailed handles a listener lost after attach. The last snapshot stays in place.
func (s *Synchronizer) listenFailed(kind entries.Kind) func(error) {
	return func(err error) {
		log.Errorf("live updates for %s entries lost: %s", kind, err)

		s.mu.Lock()
		defer s.mu.Unlock()

		if !s.acceptsLocked(kind) {
			return
		}
		s.setErrorLocked(fmt.Sprintf("Lost live updates for %s entries", kind))
		if s.metrics != nil {
			s.metrics.CounterListenerFailures.WithLabelValues(kind.String()).Inc()
		}
	}
}

func (s *Synchronizer) mutationFailed(kind entries.Kind, op, msg string, err error) {
	log.Errorf("%s: %s", msg, err)

	s.mu.Lock()
	if !s.fatal {
		s.setErrorLocked(msg)
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.CounterPersistenceFailures.WithLabelValues(kind.String(), op).Inc()
	}
}

func (s *Synchronizer) mutationSucceeded() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fatal || s.errMsg == nil {
		return
	}
	s.errMsg = nil
	s.broadcastLocked()
}

func (s *Synchronizer) acceptsLocked(kind entries.Kind) bool {
	if s.stopped || s.fatal {
		return false
	}
	phase := s.phases[kind]
	return phase == PhaseSubscribing || phase == PhaseLive
}

func (s *Synchronizer) allDeliveredLocked() bool {
	for _, kind := range entries.Kinds {
		if !s.delivered[kind] {
			return false
		}
	}
	return true
}

func (s *Synchronizer) setErrorLocked(msg string) {
	s.errMsg = &msg
	s.broadcastLocked()
}

func (s *Synchronizer) broadcastLocked() {
	close(s.updated)
	s.updated = make(chan struct{})
}

func unsubscribeAll(unsubs []entries.Unsubscribe) {
	for _, unsub := range unsubs {
		if unsub != nil {
			unsub()
		}
	}
}

func cloneExercises(list []entries.ExerciseEntry) []entries.ExerciseEntry {
	cloned := cloneList(list)
	for i := range cloned {
		if cloned[i].Duration != nil {
			duration := *cloned[i].Duration
			cloned[i].Duration = &duration
		}
	}
	return cloned
}

func cloneList[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return slices.Clone(list)
}
