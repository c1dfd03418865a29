package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/sushiloyalty/loyalty-backend/internal/config"
	"github.com/sushiloyalty/loyalty-backend/internal/repositories"
	"github.com/sushiloyalty/loyalty-backend/internal/repositories/gormsql"
	mongorepo "github.com/sushiloyalty/loyalty-backend/internal/repositories/mongodb"
	"github.com/sushiloyalty/loyalty-backend/pkg/mongodb"
	"golang.org/x/exp/slog"
	"gorm.io/gorm/logger"
)

// Store bundles the repositories of the configured storage driver
type Store struct {
	Profiles repositories.ProfileRepository
	Ledger   repositories.LoyaltyTransactionRepository
	Tx       repositories.TxRunner
	close    func(ctx context.Context) error
}

// Close releases the underlying connection
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// OpenStore connects to the storage named by cfg.Storage.Driver and prepares
// its schema (indexes for MongoDB, migrations for SQL).
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch driver := strings.ToLower(cfg.Storage.Driver); driver {
	case "mongodb":
		return openMongo(ctx, cfg)
	case "postgres", "sqlite":
		return openSQL(driver, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

func openMongo(ctx context.Context, cfg *config.Config) (*Store, error) {
	client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.ConnectTimeout, cfg.MongoDB.Transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	db := client.Database(cfg.MongoDB.Database)
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	if !cfg.MongoDB.Transactions {
		slog.Warn("MongoDB transactions are disabled; balance updates and ledger inserts are not committed together")
	}

	return &Store{
		Profiles: mongorepo.NewProfileRepository(db),
		Ledger:   mongorepo.NewLoyaltyTransactionRepository(db),
		Tx:       client,
		close:    client.Disconnect,
	}, nil
}

func openSQL(driver string, cfg *config.Config) (*Store, error) {
	level := logger.Warn
	if strings.EqualFold(cfg.LogLevel, "debug") {
		level = logger.Info
	}
	db, err := gormsql.Open(driver, cfg.SQL.DSN, level)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	return &Store{
		Profiles: gormsql.NewProfileRepository(db),
		Ledger:   gormsql.NewLoyaltyTransactionRepository(db),
		Tx:       gormsql.NewStore(db),
		close:    func(context.Context) error { return sqlDB.Close() },
	}, nil
}
