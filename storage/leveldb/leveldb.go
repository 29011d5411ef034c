package leveldb

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/safing/ledgerbase/iterator"
	"github.com/safing/ledgerbase/storage"
	"github.com/safing/ledgerbase/utils"
)

var syncWrites = &opt.WriteOptions{
	Sync: true,
}

// LevelDB database made pluggable for the ledger.
type LevelDB struct {
	name string
	db   *leveldb.DB
}

var (
	_ storage.Interface   = &LevelDB{}
	_ storage.Conditional = &LevelDB{}
	_ storage.Maintainer  = &LevelDB{}
)

func init() {
	_ = storage.Register("leveldb", NewLevelDB)
}

// NewLevelDB opens/creates a leveldb database at location.
func NewLevelDB(name, location string) (storage.Interface, error) {
	if err := utils.EnsureDirectory(location, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage location: %w", err)
	}

	db, err := leveldb.OpenFile(location, nil)
	if err != nil {
		return nil, err
	}

	return &LevelDB{
		name: name,
		db:   db,
	}, nil
}

// Get returns the value stored at key.
func (l *LevelDB) Get(key string) ([]byte, error) {
	if err := storage.CheckKey(key); err != nil {
		return nil, err
	}

	value, err := l.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

// Put stores value at key.
func (l *LevelDB) Put(key string, value []byte) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	return l.db.Put([]byte(key), value, syncWrites)
}

// PutIf stores value at key if cond holds. The check and the write happen
// within one leveldb transaction, which excludes all other writers.
func (l *LevelDB) PutIf(key string, value []byte, cond storage.Condition) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	return l.transact(key, cond, func(tr *leveldb.Transaction) error {
		return tr.Put([]byte(key), value, nil)
	})
}

// Delete removes key.
func (l *LevelDB) Delete(key string) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	return l.db.Delete([]byte(key), syncWrites)
}

// DeleteIf removes key if cond holds.
func (l *LevelDB) DeleteIf(key string, cond storage.Condition) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	return l.transact(key, cond, func(tr *leveldb.Transaction) error {
		return tr.Delete([]byte(key), nil)
	})
}

func (l *LevelDB) transact(key string, cond storage.Condition, write func(tr *leveldb.Transaction) error) error {
	tr, err := l.db.OpenTransaction()
	if err != nil {
		return err
	}

	current, err := tr.Get([]byte(key), nil)
	if err != nil && !errors.Is(err, leveldb.ErrNotFound) {
		tr.Discard()
		return err
	}
	if !cond.Holds(current) {
		tr.Discard()
		return storage.ErrConditionFailed
	}

	if err := write(tr); err != nil {
		tr.Discard()
		return err
	}
	return tr.Commit()
}

// Scan returns a cursor over [start, end).
func (l *LevelDB) Scan(start, end string) (*iterator.Iterator, error) {
	if err := storage.CheckRange(start, end); err != nil {
		return nil, err
	}

	r := &util.Range{Start: []byte(start)}
	if end != "" {
		r.Limit = []byte(end)
	}

	it := iterator.New()
	go l.scanExecutor(it, r)
	return it, nil
}

func (l *LevelDB) scanExecutor(it *iterator.Iterator, r *util.Range) {
	iter := l.db.NewIterator(r, nil)
	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		value := make([]byte, len(iter.Value()))

		copy(key, iter.Key())
		copy(value, iter.Value())

		if !it.Send(&iterator.Entry{Key: string(key), Value: value}) {
			break
		}
	}
	err := iter.Error()
	iter.Release()
	it.Finish(err)
}

// Maintain compacts the whole key space.
func (l *LevelDB) Maintain() error {
	return l.db.CompactRange(util.Range{})
}

// Shutdown shuts down the database.
func (l *LevelDB) Shutdown() error {
	return l.db.Close()
}
