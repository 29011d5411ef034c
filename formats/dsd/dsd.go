// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package dsd

// dynamic structured data
// check here for some benchmarks: https://github.com/alecthomas/go_serialization_benchmarks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/safing/ledgerbase/formats/varint"
)

// Load loads an identified dsd structured data blob into the given interface.
func Load(data []byte, t interface{}) (format SerializationFormat, err error) {
	rawFormat, read, err := varint.Unpack8(data)
	if err != nil {
		return 0, err
	}
	if len(data) <= read {
		return 0, ErrNoMoreSpace
	}

	format = SerializationFormat(rawFormat)
	return format, LoadAsFormat(data[read:], format, t)
}

// LoadAsFormat loads a data blob into the interface using the specified
// format. Fields unknown to t and trailing data are rejected.
func LoadAsFormat(data []byte, format SerializationFormat, t interface{}) (err error) {
	switch format {
	case JSON:
		err = loadJSON(data, t)
		if err != nil {
			return fmt.Errorf("dsd: failed to unpack json: %w, data: %q", err, truncate(data))
		}
		return nil
	case CBOR:
		err = cborDecMode.Unmarshal(data, t)
		if err != nil {
			return fmt.Errorf("dsd: failed to unpack cbor: %w, data: %q", err, truncate(data))
		}
		return nil
	case MsgPack:
		err = loadMsgPack(data, t)
		if err != nil {
			return fmt.Errorf("dsd: failed to unpack msgpack: %w, data: %q", err, truncate(data))
		}
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
}

var cborDecMode = func() cbor.DecMode {
	mode, err := cbor.DecOptions{
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

func loadJSON(data []byte, t interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(t); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}

func loadMsgPack(data []byte, t interface{}) error {
	r := bytes.NewReader(data)
	dec := msgpack.NewDecoder(r)
	dec.DisallowUnknownFields(true)
	if err := dec.Decode(t); err != nil {
		return err
	}
	if r.Len() > 0 {
		return ErrTrailingData
	}
	return nil
}

// Dump stores the interface as a dsd formatted data structure, prefixed
// with the format identifier.
func Dump(t interface{}, format SerializationFormat) ([]byte, error) {
	format, ok := format.ValidateSerializationFormat()
	if !ok {
		return nil, ErrIncompatibleFormat
	}

	data, err := DumpWithoutIdentifier(t, format)
	if err != nil {
		return nil, err
	}

	return append(varint.Pack8(uint8(format)), data...), nil
}

// DumpWithoutIdentifier stores the interface as a data structure in the
// given format, without the format identifier.
func DumpWithoutIdentifier(t interface{}, format SerializationFormat) ([]byte, error) {
	format, ok := format.ValidateSerializationFormat()
	if !ok {
		return nil, ErrIncompatibleFormat
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case JSON:
		data, err = json.Marshal(t)
	case CBOR:
		data, err = cbor.Marshal(t)
	case MsgPack:
		data, err = msgpack.Marshal(t)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("dsd: failed to pack %s: %w", format, err)
	}

	return data, nil
}

func truncate(data []byte) []byte {
	if len(data) > 32 {
		return data[:32]
	}
	return data
}
