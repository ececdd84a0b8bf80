package repository

import (
	"context"
	"fmt"

	"finboard/pkg/config"
	"finboard/pkg/mongodb"
	"finboard/pkg/postgres"

	"go.uber.org/zap"
)

// Open connects the store selected by cfg.Store.Driver. The returned func
// releases the underlying connection.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (TransactionStore, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if cfg.Database.Migrate {
			if err := postgres.Migrate(&cfg.Database, logger); err != nil {
				return nil, nil, err
			}
		}
		pool, err := postgres.NewPool(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresTransactionStore(pool, logger), pool.Close, nil

	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, &cfg.Mongo, logger)
		if err != nil {
			return nil, nil, err
		}
		disconnect := func() { _ = client.Disconnect(context.Background()) }

		store := NewMongoTransactionStore(client.Database(cfg.Mongo.Database), logger)
		if err := store.EnsureIndexes(ctx); err != nil {
			disconnect()
			return nil, nil, err
		}
		return store, disconnect, nil

	case config.DriverMemory:
		logger.Warn("Using in-memory transaction store, data is lost on restart")
		return NewMemoryTransactionStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}
