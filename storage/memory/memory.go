package memory

import (
	"sync"

	"github.com/armon/go-radix"

	"github.com/safing/ledgerbase/iterator"
	"github.com/safing/ledgerbase/storage"
)

// Memory is an in-memory storage backed by a radix tree, which keeps keys
// in lexicographic order for range scans.
type Memory struct {
	name   string
	db     *radix.Tree
	dbLock sync.RWMutex
}

var (
	_ storage.Interface   = &Memory{}
	_ storage.Conditional = &Memory{}
)

func init() {
	_ = storage.Register("memory", NewMemory)
}

// NewMemory creates an in-memory storage. The location is ignored.
func NewMemory(name, location string) (storage.Interface, error) {
	return &Memory{
		name: name,
		db:   radix.New(),
	}, nil
}

func (m *Memory) get(key string) ([]byte, bool) {
	v, ok := m.db.Get(key)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// Get returns the value stored at key.
func (m *Memory) Get(key string) ([]byte, error) {
	if err := storage.CheckKey(key); err != nil {
		return nil, err
	}

	m.dbLock.RLock()
	defer m.dbLock.RUnlock()

	value, ok := m.get(key)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return duplicate(value), nil
}

// Put stores value at key.
func (m *Memory) Put(key string, value []byte) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	m.dbLock.Lock()
	defer m.dbLock.Unlock()

	m.db.Insert(key, duplicate(value))
	return nil
}

// PutIf stores value at key if cond holds for the current value.
func (m *Memory) PutIf(key string, value []byte, cond storage.Condition) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	m.dbLock.Lock()
	defer m.dbLock.Unlock()

	current, _ := m.get(key)
	if !cond.Holds(current) {
		return storage.ErrConditionFailed
	}
	m.db.Insert(key, duplicate(value))
	return nil
}

// Delete removes key.
func (m *Memory) Delete(key string) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	m.dbLock.Lock()
	defer m.dbLock.Unlock()

	m.db.Delete(key)
	return nil
}

// DeleteIf removes key if cond holds for the current value.
func (m *Memory) DeleteIf(key string, cond storage.Condition) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	m.dbLock.Lock()
	defer m.dbLock.Unlock()

	current, _ := m.get(key)
	if !cond.Holds(current) {
		return storage.ErrConditionFailed
	}
	m.db.Delete(key)
	return nil
}

// Scan returns a cursor over [start, end).
func (m *Memory) Scan(start, end string) (*iterator.Iterator, error) {
	if err := storage.CheckRange(start, end); err != nil {
		return nil, err
	}

	// Copy the matching entries so the lock is not held while the
	// consumer is reading.
	var entries []*iterator.Entry
	m.dbLock.RLock()
	m.db.Walk(func(key string, v interface{}) bool {
		if key < start {
			return false
		}
		if end != "" && key >= end {
			return true
		}
		entries = append(entries, &iterator.Entry{
			Key:   key,
			Value: duplicate(v.([]byte)),
		})
		return false
	})
	m.dbLock.RUnlock()

	it := iterator.New()
	go m.scanExecutor(it, entries)
	return it, nil
}

func (m *Memory) scanExecutor(it *iterator.Iterator, entries []*iterator.Entry) {
	for _, e := range entries {
		if !it.Send(e) {
			break
		}
	}
	it.Finish(nil)
}

// Shutdown shuts down the storage.
func (m *Memory) Shutdown() error {
	return nil
}

func duplicate(value []byte) []byte {
	d := make([]byte, len(value))
	copy(d, value)
	return d
}
