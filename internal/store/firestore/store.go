package firestore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/2beens/bodylog/internal/store"
	"github.com/2beens/bodylog/internal/telemetry/tracing"

	gcfirestore "cloud.google.com/go/firestore"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Store keeps entry documents in Cloud Firestore collections.
type Store struct {
	client *gcfirestore.Client
}

var _ store.Store = (*Store)(nil)

func NewStore(client *gcfirestore.Client) *Store {
	return &Store{
		client: client,
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Create(ctx context.Context, collection string, data map[string]any) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.firestore.create")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("collection", collection))

	ref, _, err := s.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("add document to %s: %w", collection, err)
	}

	return ref.ID, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, data map[string]any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.firestore.update")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.String("id", id),
	)

	fields := make([]string, 0, len(data))
	for field := range data {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	updates := make([]gcfirestore.Update, 0, len(fields))
	for _, field := range fields {
		updates = append(updates, gcfirestore.Update{
			FieldPath: gcfirestore.FieldPath{field},
			Value:     data[field],
		})
	}

	// Update fails with NotFound when the document does not exist
	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		return mapError(fmt.Sprintf("update %s/%s", collection, id), err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.firestore.delete")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.String("id", id),
	)

	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx, gcfirestore.Exists); err != nil {
		return mapError(fmt.Sprintf("delete %s/%s", collection, id), err)
	}

	return nil
}

func (s *Store) List(ctx context.Context, collection, orderBy string) (_ []store.Document, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.firestore.list")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("collection", collection))

	snaps, err := s.client.Collection(collection).
		OrderBy(orderBy, gcfirestore.Desc).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	return toDocuments(snaps), nil
}

func (s *Store) Listen(
	ctx context.Context,
	collection, orderBy string,
	onSnapshot store.SnapshotFunc,
	onError store.ErrorFunc,
) (func(), error) {
	if collection == "" {
		return nil, store.ErrMissingCollection
	}
	if onSnapshot == nil {
		return nil, store.ErrNilSnapshotFunc
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	listenCtx, cancel := context.WithCancel(ctx)
	it := s.client.Collection(collection).
		OrderBy(orderBy, gcfirestore.Desc).
		Snapshots(listenCtx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				if listenCtx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
					return
				}
				log.Errorf("firestore listener on %s failed: %s", collection, err)
				if onError != nil {
					onError(fmt.Errorf("listen %s: %w", collection, err))
				}
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				if listenCtx.Err() != nil {
					return
				}
				log.Errorf("firestore listener on %s, read snapshot: %s", collection, err)
				if onError != nil {
					onError(fmt.Errorf("read %s snapshot: %w", collection, err))
				}
				return
			}

			onSnapshot(toDocuments(docs))
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}

	return stop, nil
}

func toDocuments(snaps []*gcfirestore.DocumentSnapshot) []store.Document {
	docs := make([]store.Document, 0, len(snaps))
	for _, snap := range snaps {
		if snap == nil || !snap.Exists() {
			continue
		}
		docs = append(docs, store.Document{
			ID:   snap.Ref.ID,
			Data: snap.Data(),
		})
	}
	return docs
}

func mapError(op string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s: %w: %w", op, store.ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
