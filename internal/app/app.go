// Package app holds the wiring shared by the API and worker binaries.
package app

import (
	"context"
	"fmt"

	"github.com/fhuszti/property-media-ms-go/internal/breaker"
	"github.com/fhuszti/property-media-ms-go/internal/cache"
	"github.com/fhuszti/property-media-ms-go/internal/config"
	"github.com/fhuszti/property-media-ms-go/internal/db"
	"github.com/fhuszti/property-media-ms-go/internal/fetcher"
	"github.com/fhuszti/property-media-ms-go/internal/keybuilder"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/optimiser"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/fhuszti/property-media-ms-go/internal/repository/mariadb"
	"github.com/fhuszti/property-media-ms-go/internal/storage"
	mediaSvc "github.com/fhuszti/property-media-ms-go/internal/usecase/media"
)

const breakerName = "object-store"

func InitDb(ctx context.Context, cfg *config.Settings) (*db.Database, error) {
	logger.Info(ctx, "initialising database...")
	return db.New(ctx, db.MariaDbConfig{
		DSN:             cfg.MariaDBDSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
}

// InitStorage builds the configured driver and makes sure the bucket exists.
func InitStorage(ctx context.Context, cfg *config.Settings) (port.Storage, error) {
	var (
		strg port.Storage
		err  error
	)
	switch cfg.StorageDriver {
	case config.StorageDriverS3:
		strg, err = storage.NewS3Storage(ctx, storage.S3Config{
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
	default:
		strg, err = storage.NewMinioStorage(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	}
	if err != nil {
		return nil, fmt.Errorf("could not initialise %s storage: %w", cfg.StorageDriver, err)
	}

	if err := strg.InitBucket(ctx, cfg.Bucket); err != nil {
		return nil, fmt.Errorf("could not initialise bucket %q: %w", cfg.Bucket, err)
	}
	return strg, nil
}

// NewBreaker builds the object-store breaker and reports its transitions to m
// and to every hook. Hooks run with the breaker locked.
func NewBreaker(cfg *config.Settings, m port.PipelineMetrics, hooks ...func(from, to breaker.State)) *breaker.Breaker {
	br := breaker.New(breakerName, breaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		Cooldown:         cfg.BreakerCooldown,
		HalfOpenMaxCalls: cfg.BreakerHalfOpenMaxCalls,
		OnStateChange: func(from, to breaker.State) {
			m.SetBreakerState(to)
			logger.Warnf(context.Background(), "⚠️  circuit breaker %q: %s -> %s", breakerName, from, to)
			for _, hook := range hooks {
				hook(from, to)
			}
		},
	})
	m.SetBreakerState(br.State())
	return br
}

func NewGateway(cfg *config.Settings, strg port.Storage, br *breaker.Breaker) *storage.Gateway {
	return storage.NewGateway(strg, cfg.StorageDriver, cfg.Bucket, br, cfg.StorePutTimeout)
}

// NewSharedStore reports the object-store breaker published by the worker.
func NewSharedStore(store port.ObjectStore, board port.BreakerBoard) port.ObjectStore {
	return storage.NewSharedBreakerStore(store, board, breakerName)
}

// RetryDelay returns the policy for the automatic circuit-open retry.
func RetryDelay(cfg *config.Settings) mediaSvc.RetryDelayPolicy {
	if cfg.RetryDelayMode == config.RetryDelayModeBreaker {
		return mediaSvc.BreakerRetryDelay{Floor: cfg.RetryDelay}
	}
	return mediaSvc.FixedRetryDelay(cfg.RetryDelay)
}

// Pipeline is what the item processor needs besides its scheduler.
type Pipeline struct {
	Repo    port.MediaItemRepository
	Stash   port.BufferStash
	Store   port.ObjectStore
	Cache   port.StatusCache
	Metrics port.PipelineMetrics
}

func NewItemProcessor(cfg *config.Settings, p Pipeline, tasks port.TaskDispatcher) port.ItemProcessor {
	return mediaSvc.NewItemProcessor(mediaSvc.ItemProcessorDeps{
		Repo:        p.Repo,
		Stash:       p.Stash,
		Resolver:    fetcher.NewHTTPFetcher(cfg.FetchTimeout, cfg.MaxUploadBytes),
		Transformer: optimiser.NewOptimiser(cfg.OptimiseMedia, optimiser.NewWebPEncoder(), optimiser.NewPDFOptimizer()),
		Keys:        keybuilder.New(cfg.IsProduction(), cfg.KeyMaxLength),
		Store:       p.Store,
		Tasks:       tasks,
		Cache:       p.Cache,
		Metrics:     p.Metrics,
	}, cfg.MaxRetries, RetryDelay(cfg))
}

// NewRepositories returns the MariaDB-backed ledger, property and link repositories.
func NewRepositories(database *db.Database) (*mariadb.MediaItemRepository, *mariadb.PropertyRepository, *mariadb.PropertyLinkRepository) {
	return mariadb.NewMediaItemRepository(database.DB),
		mariadb.NewPropertyRepository(database.DB),
		mariadb.NewPropertyLinkRepository(database.DB)
}

// RedisStores returns the Redis status cache, buffer stash and breaker board sharing one client.
func RedisStores(cfg *config.Settings) (*cache.Cache, *cache.RedisStash, *cache.BreakerBoard) {
	client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
	return cache.NewCache(client), cache.NewRedisStash(client, cfg.BufferTTL), cache.NewBreakerBoard(client)
}
