package internal

import (
	"context"
	"fmt"

	"github.com/2beens/bodylog/internal/config"
	"github.com/2beens/bodylog/internal/db"
	"github.com/2beens/bodylog/internal/firebase"
	"github.com/2beens/bodylog/internal/store"
	"github.com/2beens/bodylog/internal/store/firestore"
	"github.com/2beens/bodylog/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// EntryStore is the configured store backend plus what it holds open.
type EntryStore struct {
	Store store.Store
	// DBPool is set for the postgres backend only.
	DBPool *pgxpool.Pool

	close func()
}

func (es *EntryStore) Close() {
	if es.close != nil {
		es.close()
	}
}

// OpenEntryStore connects the store backend selected in the config.
func OpenEntryStore(ctx context.Context, cfg *config.Config) (*EntryStore, error) {
	switch cfg.StoreBackend {
	case config.StoreFirestore:
		client, err := firebase.NewFirestoreClient(ctx, firebase.Params{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsFile: cfg.FirebaseCredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("new firestore client: %w", err)
		}
		fsStore := firestore.NewStore(client)
		return &EntryStore{
			Store: fsStore,
			close: func() {
				if err := fsStore.Close(); err != nil {
					log.Errorf("close firestore client: %s", err)
				}
			},
		}, nil
	case config.StorePostgres:
		dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDB,
			DBUser:         cfg.PostgresUser,
			DBPassword:     cfg.PostgresPassword,
			TracingEnabled: cfg.HoneycombEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}
		if err := dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		}

		pgStore := postgres.NewStore(dbPool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			dbPool.Close()
			return nil, fmt.Errorf("ensure db schema: %w", err)
		}

		return &EntryStore{
			Store:  pgStore,
			DBPool: dbPool,
			close: func() {
				log.Debugln("closing db pool ...")
				dbPool.Close() // blocking operation
				log.Debugln("db pool closed")
			},
		}, nil
	case config.StoreMemory, "":
		log.Warnln("using the in-memory store, entries are lost on restart")
		return &EntryStore{Store: store.NewMemStore()}, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}
