package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var (
	ErrMissingCollection = errors.New("collection name missing")
	ErrNilSnapshotFunc   = errors.New("snapshot callback missing")
)

// MemStore is an in-process document store with live listeners.
// Every listener gets its own delivery goroutine; when it falls behind, intermediate
// snapshots are skipped and only the latest one is delivered.
type MemStore struct {
	mu          sync.Mutex
	collections map[string]*memCollection
	seq         uint64
	newID       func() string
}

type memCollection struct {
	docs      map[string]*memDocument
	listeners map[*memListener]struct{}
}

type memDocument struct {
	id   string
	seq  uint64
	data map[string]any
}

func NewMemStore() *MemStore {
	return &MemStore{
		collections: make(map[string]*memCollection),
		newID:       uuid.NewString,
	}
}

func (s *MemStore) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if collection == "" {
		return "", ErrMissingCollection
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := s.newID()
	c := s.collectionLocked(collection)
	c.docs[id] = &memDocument{
		id:   id,
		seq:  s.seq,
		data: CopyData(data),
	}
	s.publishLocked(c)

	return id, nil
}

func (s *MemStore) Update(ctx context.Context, collection, id string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if collection == "" {
		return ErrMissingCollection
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collectionLocked(collection)
	doc, ok := c.docs[id]
	if !ok {
		return fmt.Errorf("update %s/%s: %w", collection, id, ErrNotFound)
	}
	for k, v := range data {
		doc.data[k] = copyValue(v)
	}
	s.publishLocked(c)

	return nil
}

func (s *MemStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if collection == "" {
		return ErrMissingCollection
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collectionLocked(collection)
	if _, ok := c.docs[id]; !ok {
		return fmt.Errorf("delete %s/%s: %w", collection, id, ErrNotFound)
	}
	delete(c.docs, id)
	s.publishLocked(c)

	return nil
}

func (s *MemStore) List(ctx context.Context, collection, orderBy string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if collection == "" {
		return nil, ErrMissingCollection
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collectionLocked(collection).snapshot(orderBy), nil
}

func (s *MemStore) Listen(
	ctx context.Context,
	collection, orderBy string,
	onSnapshot SnapshotFunc,
	onError ErrorFunc,
) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if collection == "" {
		return nil, ErrMissingCollection
	}
	if onSnapshot == nil {
		return nil, ErrNilSnapshotFunc
	}

	l := &memListener{
		orderBy:    orderBy,
		onSnapshot: onSnapshot,
		onError:    onError,
		wake:       make(chan struct{}, 1),
		quit:       make(chan struct{}),
		exited:     make(chan struct{}),
	}

	s.mu.Lock()
	c := s.collectionLocked(collection)
	c.listeners[l] = struct{}{}
	l.offer(c.snapshot(orderBy))
	s.mu.Unlock()

	go l.run(ctx)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(c.listeners, l)
			s.mu.Unlock()

			close(l.quit)
			<-l.exited
		})
	}

	return stop, nil
}

// BreakListeners detaches every live listener of the collection and reports err
// to each of them, the way a dropped backend connection would.
func (s *MemStore) BreakListeners(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return
	}
	for l := range c.listeners {
		l.fail(err)
		delete(c.listeners, l)
	}
}

func (s *MemStore) collectionLocked(name string) *memCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{
			docs:      make(map[string]*memDocument),
			listeners: make(map[*memListener]struct{}),
		}
		s.collections[name] = c
	}
	return c
}

func (s *MemStore) publishLocked(c *memCollection) {
	for l := range c.listeners {
		l.offer(c.snapshot(l.orderBy))
	}
}

func (c *memCollection) snapshot(orderBy string) []Document {
	ordered := make([]*memDocument, 0, len(c.docs))
	for _, doc := range c.docs {
		ordered = append(ordered, doc)
	}
	slices.SortFunc(ordered, func(a, b *memDocument) int {
		return cmp.Compare(a.seq, b.seq)
	})

	docs := make([]Document, 0, len(ordered))
	for _, doc := range ordered {
		docs = append(docs, Document{
			ID:   doc.id,
			Data: CopyData(doc.data),
		})
	}
	SortDocuments(docs, orderBy)

	return docs
}

type memListener struct {
	orderBy    string
	onSnapshot SnapshotFunc
	onError    ErrorFunc

	mu      sync.Mutex
	pending []Document
	ready   bool
	failErr error

	wake   chan struct{}
	quit   chan struct{}
	exited chan struct{}
}

func (l *memListener) offer(docs []Document) {
	l.mu.Lock()
	l.pending = docs
	l.ready = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *memListener) fail(err error) {
	l.mu.Lock()
	l.failErr = err
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *memListener) run(ctx context.Context) {
	defer close(l.exited)

	for {
		select {
		case <-l.quit:
			return
		case <-ctx.Done():
			return
		case <-l.wake:
		}

		select {
		case <-l.quit:
			return
		default:
		}

		l.mu.Lock()
		docs, ready, failErr := l.pending, l.ready, l.failErr
		l.pending = nil
		l.ready = false
		l.mu.Unlock()

		if failErr != nil {
			log.Debugf("mem store listener detached: %s", failErr)
			if l.onError != nil {
				l.onError(failErr)
			}
			return
		}
		if ready {
			l.onSnapshot(docs)
		}
	}
}
