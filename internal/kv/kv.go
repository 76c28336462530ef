// Package kv provides a small TTL key/value store on BadgerDB with msgpack
// encoded values. It backs the profile cache and websocket session records.
package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("kv: key not found")

const maxConflictRetries = 5

// Store is a badger-backed key/value store. The zero TTL means no expiry.
type Store struct {
	db *badger.DB
}

// Options configures Open.
type Options struct {
	// Dir is the data directory. Empty runs badger in memory.
	Dir    string
	Logger *slog.Logger
}

// Open opens a store.
func Open(opts Options) (*Store, error) {
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.Dir == "" {
		dbOpts = dbOpts.WithInMemory(true)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{logger: logger.With("component", "badger")})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store without disk persistence.
func OpenInMemory() (*Store, error) {
	return Open(Options{})
}

// Get decodes the value stored at key into v.
func (s *Store) Get(_ context.Context, key string, v any) error {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := msgpack.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Set stores v at key. A positive ttl makes the entry expire.
func (s *Store) Set(_ context.Context, key string, v any, ttl time.Duration) error {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(newEntry(key, raw, ttl))
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// TTL returns the remaining lifetime of key, zero if it never expires.
func (s *Store) TTL(_ context.Context, key string) (time.Duration, error) {
	var expiresAt uint64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		expiresAt = item.ExpiresAt()
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("ttl %s: %w", key, err)
	}
	if expiresAt == 0 {
		return 0, nil
	}
	return time.Until(time.Unix(int64(expiresAt), 0)), nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Mutate runs a read-modify-write of the value at key in one transaction.
// fn receives the current value (zero value and found=false when absent)
// and modifies it in place. Conflicting concurrent writers are retried.
func Mutate[T any](_ context.Context, s *Store, key string, ttl time.Duration, fn func(v *T, found bool) error) (T, error) {
	var result T
	for attempt := 0; ; attempt++ {
		err := s.db.Update(func(txn *badger.Txn) error {
			var cur T
			found := false
			item, err := txn.Get([]byte(key))
			switch {
			case err == nil:
				raw, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				if err := msgpack.Unmarshal(raw, &cur); err != nil {
					return fmt.Errorf("decode %s: %w", key, err)
				}
				found = true
			case !errors.Is(err, badger.ErrKeyNotFound):
				return err
			}

			if err := fn(&cur, found); err != nil {
				return err
			}
			raw, err := msgpack.Marshal(&cur)
			if err != nil {
				return fmt.Errorf("encode %s: %w", key, err)
			}
			if err := txn.SetEntry(newEntry(key, raw, ttl)); err != nil {
				return err
			}
			result = cur
			return nil
		})
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			continue
		}
		if err != nil {
			return result, fmt.Errorf("mutate %s: %w", key, err)
		}
		return result, nil
	}
}

func newEntry(key string, raw []byte, ttl time.Duration) *badger.Entry {
	e := badger.NewEntry([]byte(key), raw)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	return e
}

// badgerLogger routes badger output to slog, dropping debug and info chatter.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(f, v...))
}

func (l badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(f, v...))
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
