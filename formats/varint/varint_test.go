package varint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUnpack(t *testing.T) {
	t.Parallel()

	for _, n := range []uint8{0, 1, 74, 127, 128, 255} {
		packed := Pack8(n)
		unpacked, size, err := Unpack8(packed)
		require.NoError(t, err, "unpacking %d", n)
		assert.Equal(t, n, unpacked)
		assert.Equal(t, len(packed), size)
	}

	for n, packed := range map[uint64][]byte{
		0:       {0x00},
		300:     {0xac, 0x02},
		1 << 21: {0x80, 0x80, 0x80, 0x01},
	} {
		unpacked, size, err := Unpack64(append(packed, 0xff))
		require.NoError(t, err)
		assert.Equal(t, n, unpacked)
		assert.Equal(t, len(packed), size)
	}
}

func TestUnpackErrors(t *testing.T) {
	t.Parallel()

	_, _, err := Unpack8(nil)
	assert.Error(t, err, "empty buffer")

	_, _, err = Unpack8([]byte{0x80, 0x02})
	assert.Error(t, err, "value exceeds uint8")

	// continuation bit set without a following byte
	_, _, err = Unpack64([]byte{0x80})
	assert.Error(t, err, "truncated varint")
}
