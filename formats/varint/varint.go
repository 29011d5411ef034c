// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package varint

import (
	"encoding/binary"
	"math"
)

// Pack8 packs a uint8 into a VarInt.
func Pack8(n uint8) []byte {
	if n < 128 {
		return []byte{n}
	}
	return []byte{n, 0x01}
}

// Unpack8 unpacks a VarInt into a uint8. It returns the extracted int, how many bytes were used and an error.
func Unpack8(blob []byte) (uint8, int, error) {
	n, size, err := Unpack64(blob)
	if err != nil {
		return 0, 0, err
	}
	if n > math.MaxUint8 {
		return 0, 0, &valueExceededError{max: "uint8"}
	}
	return uint8(n), size, nil
}

// Unpack64 unpacks a VarInt into a uint64. It returns the extracted int, how many bytes were used and an error.
func Unpack64(blob []byte) (uint64, int, error) {
	if len(blob) == 0 {
		return 0, 0, errEmptyBuf
	}
	n, size := binary.Uvarint(blob)
	switch {
	case size == 0:
		return 0, 0, errEmptyBuf
	case size < 0:
		return 0, 0, errTooLarge
	}
	return n, size, nil
}
