package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/openbidder/bidserver/config"
	"github.com/openbidder/bidserver/storage"
	redis "github.com/redis/go-redis/v9"
)

// client is the part of *redis.Client the store uses.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Store reads and writes values in Redis under a common key prefix.
type Store struct {
	client    client
	keyPrefix string
	ttl       time.Duration
}

// NewStore builds a Redis-backed Store. Connections are opened lazily by the client pool.
func NewStore(cfg config.RedisStore) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("storage.redis.addr is required")
	}

	opts := &redis.Options{
		Addr:         cfg.Addr,
		DB:           cfg.DB,
		Password:     cfg.Password,
		DialTimeout:  time.Second,
		ReadTimeout:  100 * time.Millisecond,
		WriteTimeout: 100 * time.Millisecond,
		PoolSize:     32,
		MinIdleConns: 4,
	}
	glog.Infof("Using a redis store at %s db %d", cfg.Addr, cfg.DB)

	return newStore(redis.NewClient(opts), cfg), nil
}

func newStore(c client, cfg config.RedisStore) *Store {
	return &Store{
		client:    c,
		keyPrefix: cfg.KeyPrefix,
		ttl:       time.Duration(cfg.TTLSeconds) * time.Second,
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, storage.NotFoundError{Key: key}
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return val, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Close releases Redis resources.
func (s *Store) Close() error {
	return s.client.Close()
}
