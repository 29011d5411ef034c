package leveldb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/safing/ledgerbase/storage"
	"github.com/safing/ledgerbase/storage/storagetest"
)

func TestLevelDB(t *testing.T) {
	t.Parallel()

	testDir := t.TempDir()

	db, err := storage.Start("leveldb", "test", testDir)
	require.NoError(t, err)

	storagetest.Run(t, db)

	require.NoError(t, db.Shutdown())
}
