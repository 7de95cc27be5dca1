package config

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"github.com/openbidder/bidserver/config"
	"github.com/openbidder/bidserver/metrics"
	"github.com/openbidder/bidserver/storage"
	"github.com/openbidder/bidserver/storage/memcache"
	"github.com/openbidder/bidserver/storage/memory"
	"github.com/openbidder/bidserver/storage/postgres"
	"github.com/openbidder/bidserver/storage/redis"
)

// NewStore builds the store selected by cfg.Type, bounded by the configured lookup timeout.
func NewStore(cfg config.Storage, me metrics.MetricsEngine, clk clock.Clock) (*storage.Bounded, error) {
	store, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	return storage.NewBounded(store, cfg.Timeout(), me, clk), nil
}

func newBackend(cfg config.Storage) (storage.Store, error) {
	switch cfg.Type {
	case config.StorageNone, "":
		glog.Info("No storage configured. Every lookup will miss.")
		return storage.EmptyStore{}, nil
	case config.StorageMemory:
		return memory.NewStore(cfg.Memory), nil
	case config.StoragePostgres:
		return postgres.NewStore(cfg.Postgres)
	case config.StorageRedis:
		return redis.NewStore(cfg.Redis)
	case config.StorageMemcache:
		return memcache.NewStore(cfg.Memcache)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
