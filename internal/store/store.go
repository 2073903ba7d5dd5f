package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("document not found")

// Document is a single stored record: a store assigned id and its field map.
type Document struct {
	ID   string
	Data map[string]any
}

type SnapshotFunc func(docs []Document)

type ErrorFunc func(err error)

// Store is the document store boundary shared by all backends.
//
// Listen attaches a live listener to a collection. The initial snapshot is delivered
// after attach, followed by a full snapshot ordered by the orderBy field (descending)
// on every change. Setup failures are returned directly, runtime failures go to
// onError and end the delivery. The returned stop func is safe to call more than once
// and blocks until no more callbacks can run.
type Store interface {
	Create(ctx context.Context, collection string, data map[string]any) (string, error)
	Update(ctx context.Context, collection, id string, data map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection, orderBy string) ([]Document, error)
	Listen(
		ctx context.Context,
		collection, orderBy string,
		onSnapshot SnapshotFunc,
		onError ErrorFunc,
	) (func(), error)
}
