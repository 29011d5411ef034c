package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/ledgerbase/config"
	"github.com/safing/ledgerbase/formats/dsd"
	"github.com/safing/ledgerbase/storage/instrumented"
)

func TestOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	cfg := config.Default()
	cfg.StorageType = "memory"
	cfg.Format = "cbor"
	cfg.ScanStart = "a"
	cfg.ScanEnd = "m"
	cfg.Metrics = true

	l, err := Open(cfg)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, l.Close())
	}()

	assert.Equal(t, Range{Start: "a", End: "m"}, l.Range())
	assert.True(t, l.Conditional())
	assert.Equal(t, dsd.CBOR, l.codec.Format())

	store, ok := l.Storage().(*instrumented.ConditionalStore)
	require.True(t, ok)

	require.NoError(t, l.Create(ctx, "b", "bee"))
	require.NoError(t, l.Create(ctx, "z", "zed"))
	assert.ErrorIs(t, l.Create(ctx, "b", "again"), ErrAlreadyExists)

	entries, err := l.EnumerateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keysOf(entries))

	snap := store.Snapshot()
	assert.Equal(t, uint64(3), snap.Ops[instrumented.OpPutIf])
	assert.Equal(t, uint64(1), snap.Ops[instrumented.OpScan])
	assert.Zero(t, snap.Errors[instrumented.OpPutIf])
}

func TestOpenInvalid(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.StorageType = "does-not-exist"
	_, err := Open(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
