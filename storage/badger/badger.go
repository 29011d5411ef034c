package badger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger"

	"github.com/safing/ledgerbase/iterator"
	"github.com/safing/ledgerbase/log"
	"github.com/safing/ledgerbase/storage"
	"github.com/safing/ledgerbase/utils"
)

// maxConflictRetries bounds how often a conditional write is retried after
// losing an optimistic transaction conflict.
const maxConflictRetries = 10

// Badger database made pluggable for the ledger.
type Badger struct {
	name string
	db   *badger.DB
}

var (
	_ storage.Interface   = &Badger{}
	_ storage.Conditional = &Badger{}
	_ storage.Maintainer  = &Badger{}
)

func init() {
	_ = storage.Register("badger", NewBadger)
}

// NewBadger opens/creates a badger database.
func NewBadger(name, location string) (storage.Interface, error) {
	if err := utils.EnsureDirectory(location, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage location: %w", err)
	}

	opts := badger.DefaultOptions(location).WithLogger(&logger{name: name})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Badger{
		name: name,
		db:   db,
	}, nil
}

func getValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Get returns the value stored at key.
func (b *Badger) Get(key string) ([]byte, error) {
	if err := storage.CheckKey(key); err != nil {
		return nil, err
	}

	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		value, err = getValue(txn, []byte(key))
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put stores value at key.
func (b *Badger) Put(key string, value []byte) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// PutIf stores value at key if cond holds. The read of the current value
// is part of the transaction, so a concurrent write makes the commit
// conflict and the condition is evaluated again.
func (b *Badger) PutIf(key string, value []byte, cond storage.Condition) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	return b.updateWithRetry(func(txn *badger.Txn) error {
		current, err := getValue(txn, []byte(key))
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if !cond.Holds(current) {
			return storage.ErrConditionFailed
		}
		return txn.Set([]byte(key), value)
	})
}

// Delete removes key.
func (b *Badger) Delete(key string) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// DeleteIf removes key if cond holds.
func (b *Badger) DeleteIf(key string, cond storage.Condition) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	return b.updateWithRetry(func(txn *badger.Txn) error {
		current, err := getValue(txn, []byte(key))
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if !cond.Holds(current) {
			return storage.ErrConditionFailed
		}
		return txn.Delete([]byte(key))
	})
}

func (b *Badger) updateWithRetry(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxConflictRetries; i++ {
		err = b.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		log.Tracef("storage/badger: %s: retrying conditional write after conflict", b.name)
	}
	return fmt.Errorf("conditional write failed after %d conflicts: %w", maxConflictRetries, err)
}

// Scan returns a cursor over [start, end).
func (b *Badger) Scan(start, end string) (*iterator.Iterator, error) {
	if err := storage.CheckRange(start, end); err != nil {
		return nil, err
	}

	it := iterator.New()
	go b.scanExecutor(it, start, end)
	return it, nil
}

func (b *Badger) scanExecutor(queryIter *iterator.Iterator, start, end string) {
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek([]byte(start)); it.Valid(); it.Next() {
			item := it.Item()

			key := string(item.Key())
			if end != "" && key >= end {
				return nil
			}

			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			if !queryIter.Send(&iterator.Entry{Key: key, Value: value}) {
				return nil
			}
		}
		return nil
	})
	queryIter.Finish(err)
}

// Maintain runs a value log garbage collection pass.
func (b *Badger) Maintain() error {
	err := b.db.RunValueLogGC(0.7)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
		return err
	}
	return nil
}

// Shutdown shuts down the database.
func (b *Badger) Shutdown() error {
	return b.db.Close()
}

// logger routes badger's internal logging into the ledger log.
type logger struct {
	name string
}

func (l *logger) Errorf(format string, args ...interface{}) {
	log.Errorf("storage/badger: %s: "+format, append([]interface{}{l.name}, args...)...)
}

func (l *logger) Warningf(format string, args ...interface{}) {
	log.Warningf("storage/badger: %s: "+format, append([]interface{}{l.name}, args...)...)
}

func (l *logger) Infof(format string, args ...interface{}) {
	log.Debugf("storage/badger: %s: "+format, append([]interface{}{l.name}, args...)...)
}

func (l *logger) Debugf(format string, args ...interface{}) {
	log.Tracef("storage/badger: %s: "+format, append([]interface{}{l.name}, args...)...)
}
