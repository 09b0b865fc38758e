package bootstrap

import (
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"go_ingest_backend/config"
	"go_ingest_backend/pkg/logging"
	"go_ingest_backend/platform/cache"
	"go_ingest_backend/platform/database"
	"go_ingest_backend/platform/events"
	"go_ingest_backend/platform/metrics"
	"go_ingest_backend/platform/redis"
	"go_ingest_backend/platform/storage"
)

type Infrastructure struct {
	DB       *database.DB
	Redis    *redis.Service
	Nats     *nats.Conn
	Storage  storage.ObjectStore
	Cache    cache.CacheService
	Bus      events.Bus
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
}

// needsStore reports whether any enabled role reads or writes file records.
func needsStore(cfg *config.Config) bool {
	return cfg.HasRole(config.RoleUpload) || cfg.HasRole(config.RoleProcessing)
}

func NewInfrastructure(cfg *config.Config) (*Infrastructure, error) {
	infra := &Infrastructure{}

	// metrics
	infra.Metrics = metrics.NewMetrics()
	infra.Registry = prometheus.NewRegistry()
	infra.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := infra.Metrics.Register(infra.Registry); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	// redis services
	redisService, err := redis.InitRedis(cfg)
	if err != nil {
		logging.Logger.Error("fail Initializing Redis", "error", err)
		return nil, err
	}
	infra.Redis = redisService

	// event bus
	switch cfg.EventBus {
	case "nats":
		conn, err := events.ConnectNats(cfg.NatsURL)
		if err != nil {
			logging.Logger.Error("fail Initializing NATS", "error", err)
			_ = infra.Shutdown()
			return nil, err
		}
		infra.Nats = conn
		infra.Bus = events.NewNatsBus(conn, infra.Metrics)
	case "redis", "":
		infra.Bus = events.NewRedisBus(redisService.Rdb, infra.Metrics)
	default:
		_ = infra.Shutdown()
		return nil, fmt.Errorf("unknown EVENT_BUS %q", cfg.EventBus)
	}
	logging.Logger.Info("Event bus initialized", "driver", cfg.EventBus)

	if !needsStore(cfg) {
		return infra, nil
	}

	// database
	db, err := database.InitPostgres(cfg)
	if err != nil {
		_ = infra.Shutdown()
		return nil, err
	}
	infra.DB = db
	if err := infra.DB.AutoMigrate(); err != nil {
		_ = infra.Shutdown()
		return nil, err
	}

	// storage services
	storageService, err := storage.InitStorageService(cfg)
	if err != nil {
		logging.Logger.Error("fail Initializing Storage", "error", err)
		_ = infra.Shutdown()
		return nil, err
	}
	infra.Storage = storageService

	// cache
	l1CacheService := cache.InitL1Cache()
	infra.Cache = cache.NewCacheService(l1CacheService, redisService, &cache.Config{L1TTL: cfg.CacheL1TTL})

	return infra, nil
}

// Shutdown closes every connection that was opened, collecting failures.
func (infra *Infrastructure) Shutdown() error {
	var errs []error
	if infra.Bus != nil {
		if err := infra.Bus.Close(); err != nil {
			logging.Logger.Error("fail closing event bus", "error", err)
			errs = append(errs, err)
		}
	}
	if infra.DB != nil {
		if err := infra.DB.Close(); err != nil {
			logging.Logger.Error("fail closing database", "error", err)
			errs = append(errs, err)
		}
	}
	if infra.Redis != nil {
		if err := infra.Redis.Close(); err != nil {
			logging.Logger.Error("fail closing redis", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
