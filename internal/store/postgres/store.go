package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/bodylog/internal/store"
	"github.com/2beens/bodylog/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// NotifyChannel carries the collection name of every committed write.
const NotifyChannel = "entry_document_changed"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entry_document
(
    collection VARCHAR     NOT NULL,
    id         VARCHAR     NOT NULL,
    seq        BIGSERIAL   NOT NULL,
    data       JSONB       NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS ix_entry_document_collection_seq ON entry_document (collection, seq);
`

// Store keeps entry documents as JSONB rows, one table for all collections.
// Live listeners are driven by LISTEN/NOTIFY.
type Store struct {
	db *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{
		db: db,
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create entry document table: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, collection string, data map[string]any) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.create")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("collection", collection))

	if collection == "" {
		return "", store.ErrMissingCollection
	}

	dataJson, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	id := uuid.NewString()
	err = s.inTxWithNotify(ctx, collection, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO entry_document (collection, id, data)
			VALUES ($1, $2, $3)`,
			collection, id, dataJson,
		)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}

	return id, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, data map[string]any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.update")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.String("id", id),
	)

	dataJson, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	return s.inTxWithNotify(ctx, collection, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE entry_document SET data = data || $3
			WHERE collection = $1 AND id = $2`,
			collection, id, dataJson,
		)
		if err != nil {
			return fmt.Errorf("update %s/%s: %w", collection, id, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("update %s/%s: %w", collection, id, store.ErrNotFound)
		}
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, collection, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.delete")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.String("id", id),
	)

	return s.inTxWithNotify(ctx, collection, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			DELETE FROM entry_document
			WHERE collection = $1 AND id = $2`,
			collection, id,
		)
		if err != nil {
			return fmt.Errorf("delete %s/%s: %w", collection, id, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("delete %s/%s: %w", collection, id, store.ErrNotFound)
		}
		return nil
	})
}

func (s *Store) List(ctx context.Context, collection, orderBy string) (_ []store.Document, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.list")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("collection", collection))

	rows, err := s.db.Query(ctx, `
		SELECT id, data FROM entry_document
		WHERE collection = $1
		ORDER BY seq`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", collection, err)
		}

		data, err := decodeData(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		docs = append(docs, store.Document{
			ID:   id,
			Data: data,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s rows: %w", collection, err)
	}

	store.SortDocuments(docs, orderBy)

	return docs, nil
}

// Listen holds one pooled connection for the lifetime of the listener. The collection
// is queried once after LISTEN is in place, and again on every notification for it.
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

	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen conn: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen on %s: %w", NotifyChannel, err)
	}

	listenCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	reportErr := func(err error) {
		log.Errorf("postgres listener on %s failed: %s", collection, err)
		if onError != nil {
			onError(err)
		}
	}

	deliver := func() bool {
		docs, err := s.List(listenCtx, collection, orderBy)
		if err != nil {
			if listenCtx.Err() == nil {
				reportErr(err)
			}
			return false
		}
		onSnapshot(docs)
		return true
	}

	go func() {
		defer close(done)
		defer releaseListenConn(conn)

		if !deliver() {
			return
		}

		for {
			notification, err := conn.Conn().WaitForNotification(listenCtx)
			if err != nil {
				if listenCtx.Err() == nil {
					reportErr(fmt.Errorf("wait for notification: %w", err))
				}
				return
			}
			if notification.Payload != collection {
				continue
			}
			if !deliver() {
				return
			}
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

func (s *Store) inTxWithNotify(ctx context.Context, collection string, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				log.Errorf("rollback tx: %s", rollbackErr)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, collection); err != nil {
		return fmt.Errorf("notify %s: %w", collection, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func releaseListenConn(conn *pgxpool.Conn) {
	// a canceled WaitForNotification closes the underlying connection,
	// the pool drops it on release
	if !conn.Conn().IsClosed() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := conn.Exec(ctx, "UNLISTEN "+NotifyChannel); err != nil {
			log.Warnf("unlisten %s: %s", NotifyChannel, err)
		}
		cancel()
	}
	conn.Release()
}

func decodeData(raw []byte) (map[string]any, error) {
	data := make(map[string]any)
	if len(raw) == 0 {
		return data, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&data); err != nil {
		return nil, err
	}

	return data, nil
}
