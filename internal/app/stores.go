package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/taskhub/internal/database"
	_ "github.com/felixgeelhaar/taskhub/internal/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/taskhub/internal/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/taskhub/internal/records"
	"github.com/felixgeelhaar/taskhub/internal/store"
	"github.com/felixgeelhaar/taskhub/internal/store/memory"
	"github.com/felixgeelhaar/taskhub/internal/store/mongostore"
	"github.com/felixgeelhaar/taskhub/internal/store/sqlstore"
	"github.com/felixgeelhaar/taskhub/pkg/config"
)

// StoreDriver resolves the backend: STORE_DRIVER when set, otherwise
// detected from DATABASE_URL. An empty URL selects SQLite.
func StoreDriver(cfg *config.Config) (database.Driver, error) {
	if cfg.StoreDriver != "" && cfg.StoreDriver != "auto" {
		driver := database.Driver(cfg.StoreDriver)
		if !driver.IsValid() {
			return "", fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
		}
		return driver, nil
	}
	return database.DetectDriver(cfg.DatabaseURL), nil
}

// layout lists the fields each collection stores as dates and the fields
// that must be unique. Only the mongo backend uses it.
func layout() (timeFields, unique map[string][]string) {
	timeFields = map[string][]string{}
	unique = map[string][]string{}
	for _, s := range []records.Schema{records.NewUserSchema(nil), records.NewTaskSchema()} {
		timeFields[s.Collection()] = s.TimeFields()
		if fields := s.UniqueFields(); len(fields) > 0 {
			unique[s.Collection()] = fields
		}
	}
	return timeFields, unique
}

// openStore connects the configured backend.
func openStore(ctx context.Context, cfg *config.Config, driver database.Driver, logger *slog.Logger) (store.Store, error) {
	switch driver {
	case database.DriverMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		return memory.New(), nil

	case database.DriverSQLite, database.DriverPostgres:
		conn, err := database.NewConnection(ctx, database.Config{
			Driver:     driver,
			URL:        cfg.DatabaseURL,
			SQLitePath: cfg.SQLitePath,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
		}
		s, err := sqlstore.New(ctx, conn)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to prepare %s store: %w", driver, err)
		}
		logger.Info("connected to database", "driver", driver.String())
		return s, nil

	case database.DriverMongo:
		timeFields, unique := layout()
		s, err := mongostore.Connect(ctx, mongostore.Config{
			URI:            cfg.DatabaseURL,
			Database:       cfg.MongoDatabase,
			TimeFields:     timeFields,
			UniqueIndexes:  unique,
			ConnectTimeout: 10 * time.Second,
			Logger:         logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		logger.Info("connected to database", "driver", driver.String(), "database", cfg.MongoDatabase)
		return s, nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}
