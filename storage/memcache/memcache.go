package memcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/golang/glog"
	"github.com/openbidder/bidserver/config"
	"github.com/openbidder/bidserver/storage"
)

// client is the part of *memcache.Client the store uses.
type client interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
}

// Store reads and writes values in a memcached cluster. Keys are spread over the servers by the client.
type Store struct {
	client    client
	keyPrefix string
	ttl       int32
}

func NewStore(cfg config.MemcacheStore) (*Store, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("storage.memcache.servers is required")
	}
	c := memcache.New(cfg.Servers...)
	c.Timeout = time.Duration(cfg.TimeoutMillis) * time.Millisecond
	c.MaxIdleConns = 16
	glog.Infof("Using a memcache store at %v", cfg.Servers)

	return newStore(c, cfg), nil
}

func newStore(c client, cfg config.MemcacheStore) *Store {
	return &Store{
		client:    c,
		keyPrefix: cfg.KeyPrefix,
		ttl:       int32(cfg.TTLSeconds),
	}
}

// Get ignores ctx beyond an early exit, as the memcache client has no context support.
// Callers bound lookups with storage.Bounded.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	item, err := s.client.Get(s.keyPrefix + key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, storage.NotFoundError{Key: key}
		}
		return nil, fmt.Errorf("memcache get failed: %w", err)
	}
	return item.Value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Set(&memcache.Item{Key: s.keyPrefix + key, Value: value, Expiration: s.ttl}); err != nil {
		return fmt.Errorf("memcache set failed: %w", err)
	}
	return nil
}

// Close is a no-op. Idle connections are dropped by the servers.
func (s *Store) Close() error {
	return nil
}
