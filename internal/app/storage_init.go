package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/cafe/internal/health"
	"github.com/vladislavdragonenkov/cafe/internal/storage/dynamo"
	"github.com/vladislavdragonenkov/cafe/internal/storage/memory"
	"github.com/vladislavdragonenkov/cafe/internal/storage/postgres"
)

const storageInitTimeout = 15 * time.Second

// runtimeDependencies: хранилище заказов, выбранное конфигурацией.
type runtimeDependencies struct {
	repo           domain.OrderRepository
	pgStore        *postgres.Store
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	switch driver {
	case "", StorageDriverMemory:
		logger.Info("using in-memory order storage")
		return &runtimeDependencies{
			repo: memory.NewOrderRepository(),
			storageChecker: healthcheck.NewPingChecker("storage", func(context.Context) error {
				return nil
			}),
		}, nil

	case StorageDriverPostgres:
		dsn := strings.TrimSpace(cfg.PostgresDSN)
		if dsn == "" {
			return nil, fmt.Errorf("postgres storage requires a DSN")
		}

		initCtx, cancel := context.WithTimeout(ctx, storageInitTimeout)
		defer cancel()

		store, err := postgres.Open(initCtx, dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(initCtx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
			logger.Info("postgres migrations applied")
		}

		logger.Info("using postgres order storage")
		return &runtimeDependencies{
			repo:           postgres.NewOrderRepository(store),
			pgStore:        store,
			storageChecker: healthcheck.NewPingChecker("storage", store.Ping),
			closeFn:        store.Close,
		}, nil

	case StorageDriverDynamoDB:
		table := strings.TrimSpace(cfg.DynamoTable)
		if table == "" {
			return nil, fmt.Errorf("dynamodb storage requires a table name")
		}

		initCtx, cancel := context.WithTimeout(ctx, storageInitTimeout)
		defer cancel()

		client, err := dynamo.NewClient(initCtx, cfg.DynamoRegion, cfg.DynamoEndpoint)
		if err != nil {
			return nil, fmt.Errorf("create dynamodb client: %w", err)
		}
		repo := dynamo.NewOrderRepository(client, table)
		if err := repo.Ping(initCtx); err != nil {
			return nil, fmt.Errorf("check dynamodb table %s: %w", table, err)
		}

		logger.WithField("table", table).Info("using dynamodb order storage")
		return &runtimeDependencies{
			repo:           repo,
			storageChecker: healthcheck.NewPingChecker("storage", repo.Ping),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
