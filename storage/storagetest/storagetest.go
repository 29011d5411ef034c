// Package storagetest provides a conformance suite that every storage
// backend runs in its own tests.
package storagetest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/safing/ledgerbase/storage"
)

// Run runs the full conformance suite against db. The storage must be empty.
func Run(t *testing.T, db storage.Interface) {
	t.Helper()

	t.Run("PointOperations", func(t *testing.T) { testPointOperations(t, db) })
	t.Run("Scan", func(t *testing.T) { testScan(t, db) })
	t.Run("ScanClose", func(t *testing.T) { testScanClose(t, db) })

	if cond, ok := db.(storage.Conditional); ok {
		t.Run("Conditional", func(t *testing.T) { testConditional(t, cond, db) })
		t.Run("ConditionalRace", func(t *testing.T) { testConditionalRace(t, cond, db) })
	}
	if m, ok := storage.AsMaintainer(db); ok {
		t.Run("Maintain", func(t *testing.T) { testMaintain(t, m, db) })
	}
}

func testMaintain(t *testing.T, m storage.Maintainer, db storage.Interface) {
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("m-%03d", i)
		require.NoError(t, db.Put(key, []byte(key)))
		if i%2 == 0 {
			require.NoError(t, db.Delete(key))
		}
	}

	require.NoError(t, m.Maintain())

	keys, values := Collect(t, db, "m-", "m.")
	require.Len(t, keys, 50)
	for i, key := range keys {
		assert.Equal(t, key, values[i])
	}
}

// Collect drains a scan and returns its entries as ordered key/value pairs.
func Collect(t *testing.T, db storage.Interface, start, end string) (keys []string, values []string) {
	t.Helper()

	it, err := db.Scan(start, end)
	require.NoError(t, err)
	for e := range it.Next {
		keys = append(keys, e.Key)
		values = append(values, string(e.Value))
	}
	require.NoError(t, it.Close())
	return keys, values
}

func testPointOperations(t *testing.T, db storage.Interface) {
	_, err := db.Get("p-missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, db.Put("p-a", []byte("one")))
	value, err := db.Get("p-a")
	require.NoError(t, err)
	assert.Equal(t, "one", string(value))

	// returned values must not alias storage memory
	value[0] = 'X'
	value, err = db.Get("p-a")
	require.NoError(t, err)
	assert.Equal(t, "one", string(value))

	require.NoError(t, db.Put("p-a", []byte("two")))
	value, err = db.Get("p-a")
	require.NoError(t, err)
	assert.Equal(t, "two", string(value))

	require.NoError(t, db.Delete("p-a"))
	_, err = db.Get("p-a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.NoError(t, db.Delete("p-a"), "deleting an absent key is not an error")

	assert.ErrorIs(t, db.Put("", []byte("x")), storage.ErrInvalidKey)
	_, err = db.Get("")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
}

func testScan(t *testing.T, db storage.Interface) {
	for _, key := range []string{"s/003", "s/001", "s/010", "s/002", "s0", "r/999"} {
		require.NoError(t, db.Put(key, []byte("v-"+key)))
	}

	keys, values := Collect(t, db, "s/000", "s/999")
	assert.Equal(t, []string{"s/001", "s/002", "s/003", "s/010"}, keys)
	assert.Equal(t, []string{"v-s/001", "v-s/002", "v-s/003", "v-s/010"}, values)

	keys, _ = Collect(t, db, "s/002", "s/010")
	assert.Equal(t, []string{"s/002", "s/003"}, keys, "start inclusive, end exclusive")

	keys, _ = Collect(t, db, "s/", "")
	assert.Equal(t, []string{"s/001", "s/002", "s/003", "s/010", "s0"}, keys, "empty end is unbounded")

	keys, _ = Collect(t, db, "t", "u")
	assert.Empty(t, keys)

	_, err := db.Scan("s/999", "s/000")
	assert.ErrorIs(t, err, storage.ErrInvalidRange)
}

func testScanClose(t *testing.T, db storage.Interface) {
	for i := 0; i < 100; i++ {
		require.NoError(t, db.Put(fmt.Sprintf("c/%03d", i), []byte("x")))
	}

	it, err := db.Scan("c/", "c/~")
	require.NoError(t, err)
	first, ok := <-it.Next
	require.True(t, ok)
	assert.Equal(t, "c/000", first.Key)
	require.NoError(t, it.Close())

	// The storage must still be writable after an aborted scan.
	require.NoError(t, db.Put("c/after", []byte("x")))
}

func testConditional(t *testing.T, cond storage.Conditional, db storage.Interface) {
	require.NoError(t, cond.PutIf("k/a", []byte("first"), storage.IfAbsent))
	assert.ErrorIs(t, cond.PutIf("k/a", []byte("second"), storage.IfAbsent), storage.ErrConditionFailed)
	value, err := db.Get("k/a")
	require.NoError(t, err)
	assert.Equal(t, "first", string(value), "failed condition must not write")

	require.NoError(t, cond.PutIf("k/a", []byte("third"), storage.IfPresent))
	value, err = db.Get("k/a")
	require.NoError(t, err)
	assert.Equal(t, "third", string(value))

	assert.ErrorIs(t, cond.PutIf("k/missing", []byte("x"), storage.IfPresent), storage.ErrConditionFailed)
	_, err = db.Get("k/missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// zero-length values count as absent
	require.NoError(t, db.Put("k/empty", []byte{}))
	assert.ErrorIs(t, cond.PutIf("k/empty", []byte("x"), storage.IfPresent), storage.ErrConditionFailed)
	assert.ErrorIs(t, cond.DeleteIf("k/empty", storage.IfPresent), storage.ErrConditionFailed)
	require.NoError(t, cond.PutIf("k/empty", []byte("filled"), storage.IfAbsent))

	assert.ErrorIs(t, cond.DeleteIf("k/missing", storage.IfPresent), storage.ErrConditionFailed)
	require.NoError(t, cond.DeleteIf("k/a", storage.IfPresent))
	_, err = db.Get("k/a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, cond.PutIf("", []byte("x"), storage.IfAbsent), storage.ErrInvalidKey)
}

func testConditionalRace(t *testing.T, cond storage.Conditional, db storage.Interface) {
	const racers = 16
	var won, lost atomic.Int32

	var g errgroup.Group
	for i := 0; i < racers; i++ {
		value := []byte(fmt.Sprintf("racer-%d", i))
		g.Go(func() error {
			err := cond.PutIf("race/key", value, storage.IfAbsent)
			switch {
			case err == nil:
				won.Add(1)
			case err == storage.ErrConditionFailed:
				lost.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), won.Load(), "exactly one create must win")
	assert.Equal(t, int32(racers-1), lost.Load())

	_, err := db.Get("race/key")
	require.NoError(t, err)
}
