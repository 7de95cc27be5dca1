package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/openbidder/bidserver/errortypes"
	"github.com/openbidder/bidserver/interceptor"
	"github.com/openbidder/bidserver/metrics"
)

// Store is a key-value store business interceptors read campaign data from and record matches in.
//
// Get returns a NotFoundError when the key has no value. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// NotFoundError is returned by Get when the key has no value.
type NotFoundError struct {
	Key string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("No value found for key %s", e.Key)
}

// IsNotFound reports whether err means the key has no value.
func IsNotFound(err error) bool {
	var notFound NotFoundError
	return errors.As(err, &notFound)
}

// EmptyStore is a nil-object which has no values and drops every write.
type EmptyStore struct{}

func (EmptyStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, NotFoundError{Key: key}
}

func (EmptyStore) Put(ctx context.Context, key string, value []byte) error {
	return nil
}

func (EmptyStore) Close() error {
	return nil
}

// Bounded wraps a Store so that no call outlives the timeout, and records every lookup.
type Bounded struct {
	store   Store
	timeout time.Duration
	metrics metrics.MetricsEngine
	clock   clock.Clock
}

func NewBounded(store Store, timeout time.Duration, me metrics.MetricsEngine, clk clock.Clock) *Bounded {
	return &Bounded{
		store:   store,
		timeout: timeout,
		metrics: me,
		clock:   clk,
	}
}

// Get returns the value at key. A lookup which does not complete in time fails with *errortypes.Timeout.
func (b *Bounded) Get(ctx context.Context, key string) ([]byte, error) {
	start := b.clock.Now()
	value, err := interceptor.Bounded(ctx, b.timeout, func(ctx context.Context) ([]byte, error) {
		return b.store.Get(ctx, key)
	})
	b.metrics.RecordStorageLookup(lookupResult(err), b.clock.Since(start))
	return value, err
}

func (b *Bounded) Put(ctx context.Context, key string, value []byte) error {
	_, err := interceptor.Bounded(ctx, b.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.store.Put(ctx, key, value)
	})
	return err
}

func (b *Bounded) Close() error {
	return b.store.Close()
}

func lookupResult(err error) metrics.StorageResult {
	switch {
	case err == nil:
		return metrics.StorageHit
	case IsNotFound(err):
		return metrics.StorageMiss
	case errortypes.ReadCode(err) == errortypes.TimeoutErrorCode, errors.Is(err, context.DeadlineExceeded):
		return metrics.StorageTimeout
	default:
		return metrics.StorageError
	}
}
