package memory

import (
	"context"

	"github.com/coocood/freecache"
	"github.com/golang/glog"
	"github.com/openbidder/bidserver/config"
	"github.com/openbidder/bidserver/storage"
)

// Store keeps values in a fixed-size freecache. Entries are evicted least recently used first, or
// when their ttl expires.
type Store struct {
	cache      *freecache.Cache
	ttlSeconds int
}

// NewStore returns an in-process store. freecache enforces a minimum size of 512KB.
func NewStore(cfg config.MemoryStore) *Store {
	glog.Infof("Using an in-memory store of %d bytes with a ttl of %ds", cfg.SizeBytes, cfg.TTLSeconds)
	return &Store{
		cache:      freecache.NewCache(cfg.SizeBytes),
		ttlSeconds: cfg.TTLSeconds,
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.cache.Get([]byte(key))
	if err == freecache.ErrNotFound {
		return nil, storage.NotFoundError{Key: key}
	}
	return value, err
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return s.cache.Set([]byte(key), value, s.ttlSeconds)
}

func (s *Store) Close() error {
	s.cache.Clear()
	return nil
}
