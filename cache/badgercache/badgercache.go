// Package badgercache is a cache.Cache backed by Badger, either on disk or
// fully in memory.
package badgercache

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/jonwraymond/blockpress/cache"
	"github.com/jonwraymond/blockpress/observe"
)

// ErrNoDir is returned when an on-disk cache is opened without a directory.
var ErrNoDir = errors.New("badgercache: directory is required unless in-memory")

// Options configure Open.
type Options struct {
	// Dir is the data directory. Ignored when InMemory is set.
	Dir string
	// InMemory keeps all data in memory.
	InMemory bool
	// Logger receives Badger's own log output. Nil discards it.
	Logger observe.Logger
}

// Cache implements cache.Cache on a Badger database.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: Get reports storage errors as misses.
type Cache struct {
	db    *badgerdb.DB
	owned bool
}

// Open opens a Badger database and wraps it.
func Open(opts Options) (*Cache, error) {
	var bo badgerdb.Options
	switch {
	case opts.InMemory:
		bo = badgerdb.DefaultOptions("").WithInMemory(true)
	case opts.Dir != "":
		bo = badgerdb.DefaultOptions(opts.Dir)
	default:
		return nil, ErrNoDir
	}
	if opts.Logger != nil {
		bo = bo.WithLogger(&logAdapter{logger: opts.Logger})
	} else {
		bo = bo.WithLogger(nil)
	}

	db, err := badgerdb.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("badgercache: open: %w", err)
	}
	return &Cache{db: db, owned: true}, nil
}

// New wraps an already open database. Close leaves it open.
func New(db *badgerdb.DB) *Cache {
	return &Cache{db: db}
}

// Get retrieves a value. Returns (nil, false) on miss or expiry.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if ctx.Err() != nil {
		return nil, false
	}

	var value []byte
	err := c.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false
	}
	return value, true
}

// Set stores value. TTL<=0 stores it without expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cache.ValidateKey(key); err != nil {
		return err
	}

	return c.db.Update(func(txn *badgerdb.Txn) error {
		e := badgerdb.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("badgercache: set %q: %w", key, err)
		}
		return nil
	})
}

// Delete removes a value. Idempotent - no error on miss.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.db.Update(func(txn *badgerdb.Txn) error {
		err := txn.Delete([]byte(key))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Ping reports whether the database accepts reads.
func (c *Cache) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.db.IsClosed() {
		return errors.New("badgercache: database is closed")
	}
	return c.db.View(func(txn *badgerdb.Txn) error { return nil })
}

// Close closes the database if Open created it.
func (c *Cache) Close() error {
	if !c.owned {
		return nil
	}
	return c.db.Close()
}

// logAdapter routes Badger's logger through observe.
type logAdapter struct {
	logger observe.Logger
}

func (l *logAdapter) Errorf(format string, args ...any) {
	l.logger.Error(context.Background(), "badger: "+fmt.Sprintf(format, args...))
}

func (l *logAdapter) Warningf(format string, args ...any) {
	l.logger.Warn(context.Background(), "badger: "+fmt.Sprintf(format, args...))
}

func (l *logAdapter) Infof(format string, args ...any) {
	l.logger.Debug(context.Background(), "badger: "+fmt.Sprintf(format, args...))
}

func (l *logAdapter) Debugf(format string, args ...any) {
	l.logger.Debug(context.Background(), "badger: "+fmt.Sprintf(format, args...))
}

var _ cache.Cache = (*Cache)(nil)
