package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/safing/ledgerbase/formats/dsd"
	"github.com/safing/ledgerbase/iterator"
	"github.com/safing/ledgerbase/record"
	"github.com/safing/ledgerbase/storage"
	"github.com/safing/ledgerbase/storage/memory"
)

// failingStore fails every operation. Scans fail after the cursor was opened.
type failingStore struct {
	err error
}

func (s *failingStore) Get(string) ([]byte, error) { return nil, s.err }
func (s *failingStore) Put(string, []byte) error { return s.err }
func (s *failingStore) Delete(string) error { return s.err }
func (s *failingStore) Shutdown() error { return nil }
func (s *failingStore) Scan(string, string) (*iterator.Iterator, error) {
	it := iterator.New()
	go it.Finish(s.err)
	return it, nil
}

// trackingStore records every cursor it hands out.
type trackingStore struct {
	storage.Interface

	lock    sync.Mutex
	cursors []*iterator.Iterator
}

func (s *trackingStore) Scan(start, end string) (*iterator.Iterator, error) {
	it, err := s.Interface.Scan(start, end)
	if err == nil {
		s.lock.Lock()
		s.cursors = append(s.cursors, it)
		s.lock.Unlock()
	}
	return it, err
}

func keysOf(entries []Entry) []string {
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	return keys
}

func TestScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for name, l := range testLedgers(t) {
		l := l
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			require.NoError(t, l.Create(ctx, "001", "alpha"))
			require.NoError(t, l.Create(ctx, "002", "beta"))
			require.NoError(t, l.Update(ctx, "001", "gamma"))
			require.NoError(t, l.Delete(ctx, "002"))

			entries, err := l.EnumerateAll(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, "001", entries[0].Key)
			r, ok := entries[0].Record()
			require.True(t, ok)
			assert.Equal(t, "gamma", r.Value)
		})
	}
}

func TestEnumerateOrderAndRange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for name, l := range testLedgers(t) {
		l := l
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			for _, key := range []string{"010", "002", "999", "000", "500", "a00", "00"} {
				require.NoError(t, l.Create(ctx, key, "v"+key))
			}

			entries, err := l.EnumerateAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"000", "002", "010", "500"}, keysOf(entries))
			for _, e := range entries {
				r, ok := e.Record()
				require.True(t, ok)
				assert.Equal(t, "v"+e.Key, r.Value)
			}

			entries, err = l.Enumerate(ctx, Range{Start: "002", End: "500"})
			require.NoError(t, err)
			assert.Equal(t, []string{"002", "010"}, keysOf(entries))

			entries, err = l.Enumerate(ctx, Range{Start: "5"})
			require.NoError(t, err)
			assert.Equal(t, []string{"500", "999", "a00"}, keysOf(entries))

			entries, err = l.Enumerate(ctx, Range{Start: "b", End: "c"})
			require.NoError(t, err)
			assert.Empty(t, entries)

			_, err = l.Enumerate(ctx, Range{Start: "5", End: "1"})
			assert.ErrorIs(t, err, storage.ErrInvalidRange)
		})
	}
}

func TestEnumerateRawAndEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for name, l := range testLedgers(t) {
		l := l
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			require.NoError(t, l.Create(ctx, "001", "alpha"))
			require.NoError(t, l.Storage().Put("002", []byte("garbage")))
			require.NoError(t, l.Storage().Put("003", []byte{}))
			require.NoError(t, l.Create(ctx, "004", "delta"))

			entries, err := l.EnumerateAll(ctx)
			require.NoError(t, err)
			require.Equal(t, []string{"001", "002", "004"}, keysOf(entries))

			assert.Equal(t, Decoded{Record: record.New("alpha")}, entries[0].Payload)
			assert.Equal(t, Raw{Data: "garbage"}, entries[1].Payload)
			_, ok := entries[1].Record()
			assert.False(t, ok)
			assert.Equal(t, Decoded{Record: record.New("delta")}, entries[2].Payload)
		})
	}
}

func TestEnumerateClosesCursor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem, err := memory.NewMemory("test", "")
	require.NoError(t, err)
	store := &trackingStore{Interface: mem}
	l, err := New(store, &Options{DisableConditional: true})
	require.NoError(t, err)

	for _, key := range []string{"001", "002", "003"} {
		require.NoError(t, l.Create(ctx, key, key))
	}
	require.NoError(t, store.Put("004", []byte("{")))

	_, err = l.EnumerateAll(ctx)
	require.NoError(t, err)
	_, err = l.Enumerate(ctx, Range{Start: "002", End: "003"})
	require.NoError(t, err)

	require.Len(t, store.cursors, 2)
	for _, it := range store.cursors {
		select {
		case <-it.Done:
		default:
			t.Errorf("cursor %s was not released", it.ID)
		}
	}
}

func TestMarshalEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem, err := memory.NewMemory("test", "")
	require.NoError(t, err)
	l, err := New(mem, nil)
	require.NoError(t, err)

	require.NoError(t, l.Create(ctx, "001", "gamma"))
	require.NoError(t, mem.Put("002", []byte("raw \"bytes\"")))
	require.NoError(t, l.Create(ctx, "003", ""))

	blob, err := l.QueryAll(ctx)
	require.NoError(t, err)
	require.True(t, gjson.ValidBytes(blob), string(blob))

	result := gjson.ParseBytes(blob)
	require.True(t, result.IsArray())
	assert.Equal(t, int64(3), result.Get("#").Int())

	assert.Equal(t, "001", result.Get("0.Key").String())
	assert.True(t, result.Get("0.Record").IsObject())
	assert.Equal(t, "gamma", result.Get("0.Record.value").String())

	assert.Equal(t, "002", result.Get("1.Key").String())
	assert.Equal(t, gjson.String, result.Get("1.Record").Type)
	assert.Equal(t, "raw \"bytes\"", result.Get("1.Record").String())

	assert.True(t, result.Get("2.Record.value").Exists())
	assert.Equal(t, "", result.Get("2.Record.value").String())

	assert.Equal(t, []string{"001", "002", "003"}, func() []string {
		var keys []string
		for _, k := range result.Get("#.Key").Array() {
			keys = append(keys, k.String())
		}
		return keys
	}())

	blob, err = MarshalEntries(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(blob))

	_, err = MarshalEntries([]Entry{{Key: "x"}})
	assert.Error(t, err)
}

func TestEnumerateForeignObjects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem, err := memory.NewMemory("test", "")
	require.NoError(t, err)
	l, err := New(mem, nil)
	require.NoError(t, err)

	require.NoError(t, l.Create(ctx, "001", "plain"))
	require.NoError(t, mem.Put("002", []byte(`{"value":"v","extra":1}`)))
	require.NoError(t, mem.Put("003", []byte(`{}`)))

	entries, err := l.EnumerateAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"001", "002", "003"}, keysOf(entries))
	assert.Equal(t, Raw{Data: `{"value":"v","extra":1}`}, entries[1].Payload)
	assert.Equal(t, Raw{Data: `{}`}, entries[2].Payload)

	_, err = l.Read(ctx, "002")
	assert.ErrorIs(t, err, ErrCorruptRecord)

	// nothing of a foreign object is lost in the blob
	blob, err := MarshalEntries(entries)
	require.NoError(t, err)
	assert.Equal(t, `{"value":"v","extra":1}`, gjson.GetBytes(blob, "1.Record").String())
	assert.Equal(t, int64(1), gjson.Get(gjson.GetBytes(blob, "1.Record").String(), "extra").Int())
}

func TestEnumerateMixedFormats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem, err := memory.NewMemory("test", "")
	require.NoError(t, err)

	for i, format := range []dsd.SerializationFormat{dsd.JSON, dsd.CBOR, dsd.MsgPack} {
		codec, err := record.NewIdentifiedCodec(format)
		require.NoError(t, err)
		writer, err := New(mem, &Options{Codec: codec})
		require.NoError(t, err)
		require.NoError(t, writer.Create(ctx, fmt.Sprintf("%03d", i), format.String()))
	}

	codec, err := record.NewIdentifiedCodec(dsd.JSON)
	require.NoError(t, err)
	l, err := New(mem, &Options{Codec: codec})
	require.NoError(t, err)

	entries, err := l.EnumerateAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, want := range []string{"json", "cbor", "msgpack"} {
		r, ok := entries[i].Record()
		require.True(t, ok, "entry %s", entries[i].Key)
		assert.Equal(t, want, r.Value)
	}

	r, err := l.Read(ctx, "001")
	require.NoError(t, err)
	assert.Equal(t, "cbor", r.Value)

	// the blob always renders decoded records as JSON
	blob, err := MarshalEntries(entries)
	require.NoError(t, err)
	assert.Equal(t, "msgpack", gjson.GetBytes(blob, "2.Record.value").String())
}
