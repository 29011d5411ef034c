package bbolt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/ledgerbase/storage"
	"github.com/safing/ledgerbase/storage/storagetest"
)

func TestBBolt(t *testing.T) {
	t.Parallel()

	testDir := t.TempDir()

	db, err := storage.Start("bbolt", "test", testDir)
	require.NoError(t, err)

	storagetest.Run(t, db)

	require.NoError(t, db.Shutdown())
}

func TestBBoltPersistence(t *testing.T) {
	t.Parallel()

	testDir := t.TempDir()

	db, err := NewBBolt("test", testDir)
	require.NoError(t, err)
	require.NoError(t, db.Put("001", []byte(`{"value":"alpha"}`)))
	require.NoError(t, db.Shutdown())

	db, err = NewBBolt("test", testDir)
	require.NoError(t, err)
	value, err := db.Get("001")
	require.NoError(t, err)
	assert.Equal(t, `{"value":"alpha"}`, string(value))
	require.NoError(t, db.Shutdown())
}
