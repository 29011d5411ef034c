package bbolt

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"go.etcd.io/bbolt"

	"github.com/safing/ledgerbase/iterator"
	"github.com/safing/ledgerbase/storage"
	"github.com/safing/ledgerbase/utils"
)

var bucketName = []byte{0}

// BBolt database made pluggable for the ledger.
type BBolt struct {
	name string
	db   *bbolt.DB
}

var (
	_ storage.Interface   = &BBolt{}
	_ storage.Conditional = &BBolt{}
)

func init() {
	_ = storage.Register("bbolt", NewBBolt)
}

// NewBBolt opens/creates a bbolt database.
func NewBBolt(name, location string) (storage.Interface, error) {
	if err := utils.EnsureDirectory(location, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage location: %w", err)
	}

	db, err := bbolt.Open(filepath.Join(location, "db.bbolt"), 0o600, nil)
	if err != nil {
		return nil, err
	}

	// Create bucket
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		var result *multierror.Error
		result = multierror.Append(result, fmt.Errorf("failed to create bucket: %w", err))
		if closeErr := db.Close(); closeErr != nil {
			result = multierror.Append(result, closeErr)
		}
		return nil, result.ErrorOrNil()
	}

	return &BBolt{
		name: name,
		db:   db,
	}, nil
}

// current returns the value stored at key and whether the key exists.
// The returned slice is only valid within the transaction.
func current(bucket *bbolt.Bucket, key []byte) ([]byte, bool) {
	k, v := bucket.Cursor().Seek(key)
	if k == nil || !bytes.Equal(k, key) {
		return nil, false
	}
	return v, true
}

// Get returns the value stored at key.
func (b *BBolt) Get(key string) ([]byte, error) {
	if err := storage.CheckKey(key); err != nil {
		return nil, err
	}

	var value []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		// get value from db
		v, ok := current(tx.Bucket(bucketName), []byte(key))
		if !ok {
			return storage.ErrNotFound
		}

		// copy data
		value = make([]byte, len(v))
		copy(value, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put stores value at key.
func (b *BBolt) Put(key string, value []byte) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), value)
	})
}

// PutIf stores value at key if cond holds, checked in the same write transaction.
func (b *BBolt) PutIf(key string, value []byte, cond storage.Condition) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		v, _ := current(bucket, []byte(key))
		if !cond.Holds(v) {
			return storage.ErrConditionFailed
		}
		return bucket.Put([]byte(key), value)
	})
}

// Delete removes key.
func (b *BBolt) Delete(key string) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}

// DeleteIf removes key if cond holds, checked in the same write transaction.
func (b *BBolt) DeleteIf(key string, cond storage.Condition) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		v, _ := current(bucket, []byte(key))
		if !cond.Holds(v) {
			return storage.ErrConditionFailed
		}
		return bucket.Delete([]byte(key))
	})
}

// Scan returns a cursor over [start, end).
func (b *BBolt) Scan(start, end string) (*iterator.Iterator, error) {
	if err := storage.CheckRange(start, end); err != nil {
		return nil, err
	}

	it := iterator.New()
	go b.scanExecutor(it, []byte(start), []byte(end))
	return it, nil
}

func (b *BBolt) scanExecutor(it *iterator.Iterator, start, end []byte) {
	err := b.db.View(func(tx *bbolt.Tx) error {
		// Create a cursor for iteration.
		c := tx.Bucket(bucketName).Cursor()

		// Iterate over items in sorted key order, starting at the first key
		// not less than start. The loop finishes at the end of the cursor
		// when a nil key is returned, or when leaving the range.
		for key, value := c.Seek(start); key != nil; key, value = c.Next() {
			if len(end) > 0 && bytes.Compare(key, end) >= 0 {
				return nil
			}

			// copy data, it is only valid within the transaction
			duplicate := make([]byte, len(value))
			copy(duplicate, value)

			if !it.Send(&iterator.Entry{Key: string(key), Value: duplicate}) {
				return nil
			}
		}
		return nil
	})
	it.Finish(err)
}

// Shutdown shuts down the database.
func (b *BBolt) Shutdown() error {
	return b.db.Close()
}
