package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstate/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/cartstate/internal/health"
	"github.com/vladislavdragonenkov/cartstate/internal/storage/memory"
	"github.com/vladislavdragonenkov/cartstate/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/cartstate/internal/storage/redis"
	"github.com/vladislavdragonenkov/cartstate/internal/storage/sqlite"
)

type runtimeDependencies struct {
	kv             domain.KVStore
	storageChecker healthcheck.Checker
	closeFn        func() error
}

// initRuntimeDependencies открывает выбранное KV-хранилище снапшотов.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	if driver == "" {
		driver = StorageDriverMemory
	}
	logger = logger.WithField("storage_driver", driver)

	switch driver {
	case StorageDriverMemory:
		kv := memory.NewKVStore()
		return runtimeDependencies{
			kv:             kv,
			storageChecker: healthcheck.NewPingChecker("storage", kv),
		}, nil

	case StorageDriverSQLite:
		kv, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("init sqlite storage: %w", err)
		}
		logger.WithField("path", cfg.SQLitePath).Info("sqlite storage initialized")
		return runtimeDependencies{
			kv:             kv,
			storageChecker: healthcheck.NewPingChecker("storage", kv),
			closeFn:        kv.Close,
		}, nil

	case StorageDriverPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return runtimeDependencies{}, errors.New("postgres dsn is required for postgres storage driver")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("init postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return runtimeDependencies{}, fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		logger.Info("postgres storage initialized")
		kv := postgres.NewKVStore(store)
		return runtimeDependencies{
			kv:             kv,
			storageChecker: healthcheck.NewPingChecker("storage", kv),
			closeFn:        store.Close,
		}, nil

	case StorageDriverRedis:
		client, err := redisstore.NewClient(ctx, redisstore.Config{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		}, logger)
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("init redis storage: %w", err)
		}
		kv := redisstore.NewKVStore(client)
		return runtimeDependencies{
			kv:             kv,
			storageChecker: healthcheck.NewPingChecker("storage", kv),
			closeFn:        client.Close,
		}, nil

	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}

func closeStorage(deps runtimeDependencies, logger *log.Entry) {
	if deps.closeFn == nil {
		return
	}
	if err := deps.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}
