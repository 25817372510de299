package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"communitycentre/internal/attendance"
	"communitycentre/internal/config"
)

// Backend is an opened attendance repository plus the handles behind it.
type Backend struct {
	Repo  attendance.Repository
	Kind  string
	db    *DB
	mongo *Mongo
}

// OpenBackend connects the repository selected by cfg.StoreBackend. Postgres
// migrations run when cfg.MigrateOnStart is set.
func OpenBackend(ctx context.Context, cfg config.App, log *zap.Logger) (*Backend, error) {
	switch cfg.StoreBackend {
	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		return &Backend{Repo: attendance.NewMemoryRepository(), Kind: cfg.StoreBackend}, nil

	case "mongo":
		m, err := NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		repo := attendance.NewMongoRepository(m.Database)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = m.Close(context.Background())
			return nil, err
		}
		log.Info("connected to mongo", zap.String("database", cfg.MongoDatabase))
		return &Backend{Repo: repo, Kind: cfg.StoreBackend, mongo: m}, nil

	case "postgres":
		db, err := NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.MigrateOnStart {
			ran, err := db.RunMigrations(ctx)
			if err != nil {
				_ = db.Close()
				return nil, err
			}
			if len(ran) > 0 {
				log.Info("applied migrations", zap.Strings("files", ran))
			}
		}
		log.Info("connected to postgres")
		return &Backend{Repo: attendance.NewPostgresRepository(db.Client), Kind: cfg.StoreBackend, db: db}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// Migrate applies Postgres migrations. Other backends have nothing to migrate.
func (b *Backend) Migrate(ctx context.Context) ([]string, error) {
	if b.db == nil {
		return nil, nil
	}
	return b.db.RunMigrations(ctx)
}

// Healthy reports whether the store answers.
func (b *Backend) Healthy(ctx context.Context) bool {
	switch {
	case b == nil:
		return false
	case b.db != nil:
		return b.db.Healthy(ctx)
	case b.mongo != nil:
		return b.mongo.Healthy(ctx)
	}
	return true
}

// Close releases connections.
func (b *Backend) Close(ctx context.Context) error {
	if b == nil {
		return nil
	}
	return errors.Join(b.db.Close(), b.mongo.Close(ctx))
}
