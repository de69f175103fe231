package server

import (
	"context"
	"fmt"

	"todo-api/backend/internal/config"
	"todo-api/backend/internal/database"
	"todo-api/backend/internal/logging"
	"todo-api/backend/internal/repositories"
)

// CloseFunc releases the connections behind a store.
type CloseFunc func(ctx context.Context) error

// OpenStore connects to the backend selected by Database.Driver.
func OpenStore(ctx context.Context, cfg *config.Config) (repositories.TodoStore, CloseFunc, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		client, err := database.NewMongoClient(ctx, &database.MongoConfig{
			URI:            cfg.GetMongoURI(),
			Database:       cfg.Mongo.Database,
			Collection:     cfg.Mongo.Collection,
			MaxPoolSize:    uint64(cfg.Mongo.MaxPoolSize),
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		store := repositories.NewMongoTodoStore(client.Collection(), cfg.Database.QueryTimeout)
		return store, client.Close, nil

	case config.DriverPostgres, config.DriverSQLite:
		poolConfig := &database.PoolConfig{
			Driver:          cfg.Database.Driver,
			DSN:             cfg.GetDatabaseDSN(),
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			LogLevel:        logging.GormLogLevel(cfg.Server.Environment, cfg.Log.Level),
		}
		// sqlite serializes writers, and ":memory:" is per connection
		if cfg.Database.Driver == config.DriverSQLite {
			poolConfig.MaxOpenConns = 1
			poolConfig.MaxIdleConns = 1
			poolConfig.ConnMaxLifetime = 0
			poolConfig.ConnMaxIdleTime = 0
		}

		pool, err := database.NewDatabasePool(poolConfig)
		if err != nil {
			return nil, nil, err
		}
		store := repositories.NewGormTodoStore(pool.DB, cfg.Database.QueryTimeout)
		return store, func(context.Context) error { return pool.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
