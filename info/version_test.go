package info

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	_ "github.com/safing/ledgerbase/storage/bbolt"
	_ "github.com/safing/ledgerbase/storage/memory"
)

func TestVersion(t *testing.T) {
	Set("ledgerctl", "1.2.3", "AGPLv3")

	assert.NoError(t, CheckVersion())

	full := FullVersion()
	assert.Contains(t, full, "ledgerctl 1.2.3\n")
	assert.Contains(t, full, "storages: bbolt, memory\n")
	assert.Contains(t, full, "default record format: json\n")
	assert.Contains(t, full, "Licensed under the AGPLv3 license.")

	var buf bytes.Buffer
	assert.False(t, PrintVersionIfRequested(&buf))
	assert.Empty(t, buf.String())

	showVersion = true
	defer func() { showVersion = false }()
	assert.True(t, PrintVersionIfRequested(&buf))
	assert.Contains(t, buf.String(), "storages: bbolt, memory")
}
