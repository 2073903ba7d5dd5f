package entries

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/2beens/bodylog/internal/store"
	"github.com/2beens/bodylog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=../store/store.go -destination=store_mocks_test.go -package=entries_test

// Unsubscribe detaches a live subscription. It is safe to call more than once, and
// once it returns no callback of the subscription is running or will run.
type Unsubscribe func()

// Repository reads and writes one kind of entry in its store collection.
type Repository[T Entry] struct {
	store store.Store
	codec Codec[T]
	now   func() time.Time
}

func NewRepository[T Entry](s store.Store, codec Codec[T]) *Repository[T] {
	return &Repository[T]{
		store: s,
		codec: codec,
		now:   time.Now,
	}
}

func NewWeightRepository(s store.Store) *Repository[WeightEntry] {
	return NewRepository[WeightEntry](s, WeightCodec{})
}

func NewExerciseRepository(s store.Store) *Repository[ExerciseEntry] {
	return NewRepository[ExerciseEntry](s, ExerciseCodec{})
}

func NewJournalRepository(s store.Store) *Repository[JournalEntry] {
	return NewRepository[JournalEntry](s, JournalCodec{})
}

func (r *Repository[T]) Kind() Kind {
	return r.codec.Kind()
}

// Create stores a new document and returns the id the store assigned to it.
// Any id set on the record is ignored.
func (r *Repository[T]) Create(ctx context.Context, record T) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.entries.create")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("kind", r.Kind().String()))

	data := r.codec.Encode(record)
	data[FieldCreatedAt] = r.now()

	id, err := r.store.Create(ctx, r.Kind().Collection(), data)
	if err != nil {
		return "", &PersistenceError{Op: OpCreate, Kind: r.Kind(), Err: err}
	}
	if id == "" {
		return "", &PersistenceError{Op: OpCreate, Kind: r.Kind(), Err: ErrEmptyID}
	}

	span.SetAttributes(attribute.String("id", id))
	return id, nil
}

// Update overwrites the editable fields of an existing document, keeping its id.
func (r *Repository[T]) Update(ctx context.Context, id string, record T) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.entries.update")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(
		attribute.String("kind", r.Kind().String()),
		attribute.String("id", id),
	)

	if id == "" {
		return &PersistenceError{Op: OpUpdate, Kind: r.Kind(), Err: ErrMissingID}
	}

	if err := r.store.Update(ctx, r.Kind().Collection(), id, r.codec.Encode(record)); err != nil {
		return &PersistenceError{Op: OpUpdate, Kind: r.Kind(), ID: id, Err: err}
	}

	return nil
}

func (r *Repository[T]) Remove(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.entries.remove")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(
		attribute.String("kind", r.Kind().String()),
		attribute.String("id", id),
	)

	if id == "" {
		return &PersistenceError{Op: OpRemove, Kind: r.Kind(), Err: ErrMissingID}
	}

	if err := r.store.Delete(ctx, r.Kind().Collection(), id); err != nil {
		return &PersistenceError{Op: OpRemove, Kind: r.Kind(), ID: id, Err: err}
	}

	return nil
}

// List reads the whole collection once, newest first.
func (r *Repository[T]) List(ctx context.Context) (_ []T, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.entries.list")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("kind", r.Kind().String()))

	docs, err := r.store.List(ctx, r.Kind().Collection(), FieldDate)
	if err != nil {
		return nil, &PersistenceError{Op: OpList, Kind: r.Kind(), Err: err}
	}

	records := r.decodeAll(docs)
	span.SetAttributes(attribute.Int("count", len(records)))
	return records, nil
}

// SubscribeLive attaches a live listener to the collection. onChange receives the full
// list, newest first, on attach and after every change. onError (may be nil) receives
// runtime listener failures, after which no more snapshots arrive.
func (r *Repository[T]) SubscribeLive(
	ctx context.Context,
	onChange func([]T),
	onError func(error),
) (Unsubscribe, error) {
	sub := &subscription{}

	stop, err := r.store.Listen(
		ctx,
		r.Kind().Collection(),
		FieldDate,
		func(docs []store.Document) {
			records := r.decodeAll(docs)
			sub.deliver(func() {
				onChange(records)
			})
		},
		func(listenErr error) {
			log.Errorf("live %s entries listener: %s", r.Kind(), listenErr)
			if onError == nil {
				return
			}
			sub.deliver(func() {
				onError(listenErr)
			})
		},
	)
	if err != nil {
		return nil, &SubscriptionSetupError{Kind: r.Kind(), Err: err}
	}

	sub.stop = stop
	return sub.unsubscribe, nil
}

func (r *Repository[T]) decodeAll(docs []store.Document) []T {
	records := make([]T, 0, len(docs))
	for _, doc := range docs {
		records = append(records, r.codec.Decode(doc.ID, doc.Data))
	}

	// store order is kept for equal dates
	slices.SortStableFunc(records, func(a, b T) int {
		return b.EntryDate().Compare(a.EntryDate())
	})

	return records
}

type subscription struct {
	mu      sync.Mutex
	revoked bool
	once    sync.Once
	stop    func()
}

func (s *subscription) deliver(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.revoked {
		return
	}
	fn()
}

func (s *subscription) unsubscribe() {
	s.once.Do(func() {
		// waits for an in-flight delivery to finish
		s.mu.Lock()
		s.revoked = true
		s.mu.Unlock()

		if s.stop != nil {
			s.stop()
		}
	})
}
