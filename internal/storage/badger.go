package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// BadgerOptions tunes how a BadgerDB is opened.
type BadgerOptions struct {
	// SyncWrites fsyncs every commit. A committed deposit then survives a crash.
	SyncWrites bool
	// InMemory keeps everything in RAM; path is ignored.
	InMemory bool
	// Logger receives Badger's own warnings and errors. Nil silences them.
	Logger *zerolog.Logger
}

// BadgerDB implements DB using Badger.
type BadgerDB struct {
	db *badger.DB
}

// NewBadger opens a Badger database at path with default options.
func NewBadger(path string) (*BadgerDB, error) {
	return OpenBadger(path, BadgerOptions{})
}

// OpenBadger opens a Badger database at path.
func OpenBadger(path string, o BadgerOptions) (*BadgerDB, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(o.SyncWrites).
		WithLogger(nil)
	if o.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	if o.Logger != nil {
		opts = opts.WithLogger(badgerLogger{o.Logger})
	}

	db, err := badger.Open(opts)
	if err != nil {
		if isLockError(err) {
			return nil, fmt.Errorf("database at %s is locked by another process (is another stakingd instance running?): %w", path, err)
		}
		return nil, fmt.Errorf("open database at %s: %w", path, err)
	}
	return &BadgerDB{db: db}, nil
}

func isLockError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Cannot acquire directory lock") ||
		strings.Contains(msg, "resource temporarily unavailable")
}

// Get returns the value under key, or ErrNotFound.
func (b *BadgerDB) Get(key []byte) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return val, nil
}

// Has reports whether key exists.
func (b *BadgerDB) Has(key []byte) (bool, error) {
	_, err := b.Get(key)
	switch {
	case errors.Is(err, ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// Put stores value under key in its own transaction.
func (b *BadgerDB) Put(key, value []byte) error {
	return b.update("put", []batchOp{{key: key, value: copyBytes(value)}})
}

// Delete removes key in its own transaction.
func (b *BadgerDB) Delete(key []byte) error {
	return b.update("delete", []batchOp{{key: key}})
}

// ForEach calls fn for every key with prefix, in key order, inside one
// read snapshot. Keys and values passed to fn are copies.
func (b *BadgerDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(item.KeyCopy(nil), val); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database.
func (b *BadgerDB) Close() error {
	return b.db.Close()
}

// NewBatch returns a batch committed as a single Badger transaction.
func (b *BadgerDB) NewBatch() Batch {
	return &badgerBatch{db: b}
}

// RunValueLogGC rewrites value log files every interval until ctx is done.
// Staking records are overwritten on every deposit, so stale values pile up.
func (b *BadgerDB) RunValueLogGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// One call rewrites at most one file; repeat while it finds work.
			for b.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}

// update applies ops in one read-write transaction. A nil value deletes.
func (b *BadgerDB) update(op string, ops []batchOp) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, o := range ops {
			var err error
			if o.value == nil {
				err = txn.Delete(o.key)
			} else {
				err = txn.Set(o.key, o.value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger %s: %w", op, err)
	}
	return nil
}

type badgerBatch struct {
	db  *BadgerDB
	ops []batchOp
}

func (bb *badgerBatch) Put(key, value []byte) error {
	bb.ops = append(bb.ops, batchOp{key: copyBytes(key), value: copyBytes(value)})
	return nil
}

func (bb *badgerBatch) Delete(key []byte) error {
	bb.ops = append(bb.ops, batchOp{key: copyBytes(key)})
	return nil
}

func (bb *badgerBatch) Commit() error {
	if err := bb.db.update("batch commit", bb.ops); err != nil {
		return err
	}
	bb.ops = nil
	return nil
}

// badgerLogger forwards Badger's internal log lines to zerolog.
type badgerLogger struct {
	l *zerolog.Logger
}

func (bl badgerLogger) Errorf(f string, v ...interface{}) {
	bl.l.Error().Msgf(strings.TrimSpace(f), v...)
}

func (bl badgerLogger) Warningf(f string, v ...interface{}) {
	bl.l.Warn().Msgf(strings.TrimSpace(f), v...)
}

// Badger is chatty at info level (compactions, replay); demote to debug.
func (bl badgerLogger) Infof(f string, v ...interface{}) {
	bl.l.Debug().Msgf(strings.TrimSpace(f), v...)
}

func (bl badgerLogger) Debugf(f string, v ...interface{}) {
	bl.l.Debug().Msgf(strings.TrimSpace(f), v...)
}
