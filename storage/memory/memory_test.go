package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/safing/ledgerbase/storage"
	"github.com/safing/ledgerbase/storage/storagetest"
)

func TestMemory(t *testing.T) {
	t.Parallel()

	db, err := storage.Start("memory", "test", "")
	require.NoError(t, err)

	storagetest.Run(t, db)

	require.NoError(t, db.Shutdown())
}
