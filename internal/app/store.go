package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/config"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/repository"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/repository/memory"
	postgresrepo "github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/repository/postgres"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/repository/postgres/migrations"
	redisrepo "github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/repository/redis"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/database"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/health"
)

// Store is an opened snapshot store backend.
type Store struct {
	repository.SnapshotStore

	// Name is the backend name used for the readiness check.
	Name string
	// Pinger backs the readiness check.
	Pinger health.Pinger
	// Postgres is set for the postgres backend only.
	Postgres *postgresrepo.SnapshotStore
	// Pool is set for the postgres backend only.
	Pool *pgxpool.Pool

	rdb *redis.Client
}

// OpenStore connects the backend selected by CART_STORE. Postgres migrations
// are applied when migrate is true.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) (*Store, error) {
	switch cfg.Store {
	case config.StoreRedis:
		rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, err
		}
		store := redisrepo.NewSnapshotStore(rdb, cfg.CartTTLDuration())
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		return &Store{SnapshotStore: store, Name: "redis", Pinger: store, rdb: rdb}, nil

	case config.StorePostgres:
		pgCfg := cfg.Postgres()
		pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
				pool.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		store := postgresrepo.NewSnapshotStore(pool)
		logger.Info("connected to PostgreSQL",
			slog.String("host", pgCfg.Host),
			slog.String("db", pgCfg.DBName),
		)
		return &Store{SnapshotStore: store, Name: "postgres", Pinger: pool, Postgres: store, Pool: pool}, nil

	default:
		logger.Warn("using in-memory cart store; snapshots are lost on restart")
		store := memory.NewSnapshotStore()
		return &Store{SnapshotStore: store, Name: "memory", Pinger: store}, nil
	}
}

// Close releases the backend's connections.
func (s *Store) Close() error {
	if s.rdb != nil {
		return s.rdb.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
	return nil
}
