package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coocood/freecache"
	"github.com/golang/glog"
	"github.com/lib/pq"
	"github.com/openbidder/bidserver/config"
	"github.com/openbidder/bidserver/storage"
)

// Store reads values from a postgres table of (key, value) rows, and keeps recently read values in an
// in-process LRU.
type Store struct {
	db         *sql.DB
	lru        *freecache.Cache
	ttlSeconds int
	getQuery   string
	putQuery   string
}

func uri(cfg config.PostgresStore) string {
	uri := ""
	if cfg.Host != "" {
		uri += fmt.Sprintf("host=%s ", cfg.Host)
	}

	if cfg.Port > 0 {
		uri += fmt.Sprintf("port=%d ", cfg.Port)
	}

	if cfg.Username != "" {
		uri += fmt.Sprintf("user=%s ", cfg.Username)
	}

	if cfg.Password != "" {
		uri += fmt.Sprintf("password=%s ", cfg.Password)
	}

	if cfg.Database != "" {
		uri += fmt.Sprintf("dbname=%s ", cfg.Database)
	}

	return uri
}

// NewStore connects to the configured database. An unreachable database is logged but not fatal: reads
// fail until it comes back.
func NewStore(cfg config.PostgresStore) (*Store, error) {
	db, err := sql.Open("postgres", uri(cfg)+" sslmode=disable")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		/* This is for information only; we'll still operate w/o db */
		glog.Errorf("failed to connect to db store: %v", err)
	}

	return NewStoreWithDB(db, cfg), nil
}

// NewStoreWithDB builds the store on an open database.
func NewStoreWithDB(db *sql.DB, cfg config.PostgresStore) *Store {
	table := pq.QuoteIdentifier(cfg.Table)
	return &Store{
		db:         db,
		lru:        freecache.NewCache(cfg.CacheSize),
		ttlSeconds: cfg.TTLSeconds,
		getQuery:   fmt.Sprintf("SELECT value FROM %s WHERE key = $1 LIMIT 1", table),
		putQuery:   fmt.Sprintf("INSERT INTO %s (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value", table),
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if b, err := s.lru.Get([]byte(key)); err == nil {
		return b, nil
	}

	var value []byte
	if err := s.db.QueryRowContext(ctx, s.getQuery, key).Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.NotFoundError{Key: key}
		}
		if !isBadInput(err) && err != context.DeadlineExceeded {
			glog.Errorf("Error reading from store DB: %v", err)
		}
		return nil, err
	}

	s.lru.Set([]byte(key), value, s.ttlSeconds)
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.putQuery, key, value); err != nil {
		return err
	}
	s.lru.Set([]byte(key), value, s.ttlSeconds)
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Returns true if the Postgres error signifies some sort of bad user input, and false otherwise.
//
// These errors are documented here: https://www.postgresql.org/docs/9.3/static/errcodes-appendix.html
func isBadInput(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Class() == "22" {
		return true
	}

	return false
}
