// Package store selects and opens the credential store named by STORE_DRIVER.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cozyapp/cozyapp-api/config"
	repo "github.com/cozyapp/cozyapp-api/internal/domain/repository"
	"github.com/cozyapp/cozyapp-api/internal/infrastructure/memory"
	"github.com/cozyapp/cozyapp-api/internal/infrastructure/mongodb"
	pginfra "github.com/cozyapp/cozyapp-api/internal/infrastructure/postgres"
)

// Opened is an initialised store plus the client behind it, if any.
type Opened struct {
	Repo  repo.UserRepository
	Mongo *mongo.Client
	PG    *pgxpool.Pool
}

// Close releases the underlying connections.
func (o *Opened) Close(ctx context.Context) {
	if o.Mongo != nil {
		_ = o.Mongo.Disconnect(ctx)
	}
	if o.PG != nil {
		o.PG.Close()
	}
}

func Open(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*Opened, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		r := mongodb.NewUserRepository(client.Database(cfg.MongoDBName))
		if err := mongodb.EnsureIndexes(ctx, r.Collection()); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		logger.WithField("db", cfg.MongoDBName).Info("using mongo credential store")
		return &Opened{Repo: r, Mongo: client}, nil

	case config.StorePostgres:
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("using postgres credential store")
		return &Opened{Repo: pginfra.NewUserRepository(pool), PG: pool}, nil

	case config.StoreMemory:
		logger.Warn("using in-memory credential store; data is lost on restart")
		return &Opened{Repo: memory.NewUserRepository()}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
