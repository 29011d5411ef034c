// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package dsd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type SimpleTestStruct struct {
	S string `json:"s" cbor:"s" msgpack:"s"`
	B byte   `json:"b" cbor:"b" msgpack:"b"`
}

type ComplexTestStruct struct {
	I   int
	I64 int64
	Ui8 uint8
	S   string
	Sp  *string
	Sa  []string
	Ba  []byte
	M   map[string]string
}

func TestConversion(t *testing.T) {
	t.Parallel()

	bString := "b"
	simpleSubject := &SimpleTestStruct{"a", 0x01}
	complexSubject := &ComplexTestStruct{
		I:   -1,
		I64: -5,
		Ui8: 3,
		S:   "a",
		Sp:  &bString,
		Sa:  []string{"c", "d", "e"},
		Ba:  []byte{0x03, 0x04, 0x05},
		M: map[string]string{
			"a": "b",
			"c": "d",
		},
	}

	for _, format := range []SerializationFormat{JSON, CBOR, MsgPack} {
		// simple
		b, err := Dump(simpleSubject, format)
		require.NoError(t, err, "dump simple struct as %s", format)

		simpleLoaded := &SimpleTestStruct{}
		loadedFormat, err := Load(b, simpleLoaded)
		require.NoError(t, err, "load simple struct as %s", format)
		assert.Equal(t, format, loadedFormat)
		assert.Equal(t, simpleSubject, simpleLoaded, "format %s", format)

		// complex
		b, err = Dump(complexSubject, format)
		require.NoError(t, err, "dump complex struct as %s", format)

		complexLoaded := &ComplexTestStruct{}
		_, err = Load(b, complexLoaded)
		require.NoError(t, err, "load complex struct as %s", format)
		assert.Equal(t, complexSubject, complexLoaded, "format %s", format)
	}
}

func TestDumpWithoutIdentifier(t *testing.T) {
	t.Parallel()

	data, err := DumpWithoutIdentifier(&SimpleTestStruct{S: "x"}, JSON)
	require.NoError(t, err)
	assert.Equal(t, `{"s":"x","b":0}`, string(data))

	data, err = DumpWithoutIdentifier(&SimpleTestStruct{S: "x"}, AUTO)
	require.NoError(t, err)
	assert.Equal(t, `{"s":"x","b":0}`, string(data), "auto must fall back to the default format")

	_, err = DumpWithoutIdentifier(&SimpleTestStruct{}, SerializationFormat(1))
	assert.ErrorIs(t, err, ErrIncompatibleFormat)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := Load(nil, &SimpleTestStruct{})
	assert.Error(t, err, "empty data")

	_, err = Load([]byte{byte(JSON)}, &SimpleTestStruct{})
	assert.ErrorIs(t, err, ErrNoMoreSpace)

	_, err = Load([]byte{42, '{', '}'}, &SimpleTestStruct{})
	assert.ErrorIs(t, err, ErrUnknownFormat)

	for _, format := range []SerializationFormat{JSON, CBOR, MsgPack} {
		err = LoadAsFormat([]byte{}, format, &SimpleTestStruct{})
		assert.Error(t, err, "empty input for %s", format)
	}

	err = LoadAsFormat([]byte(`{"s":"truncat`), JSON, &SimpleTestStruct{})
	assert.Error(t, err, "truncated json")

	err = LoadAsFormat([]byte(`{"s":"x"} {"s":"y"}`), JSON, &SimpleTestStruct{})
	assert.ErrorIs(t, err, ErrTrailingData)
}

type foreignStruct struct {
	S     string `json:"s" cbor:"s" msgpack:"s"`
	Extra int    `json:"extra" cbor:"extra" msgpack:"extra"`
}

func TestUnknownFieldsRejected(t *testing.T) {
	t.Parallel()

	for _, format := range []SerializationFormat{JSON, CBOR, MsgPack} {
		data, err := Dump(&foreignStruct{S: "x", Extra: 1}, format)
		require.NoError(t, err)

		_, err = Load(data, &SimpleTestStruct{})
		assert.Error(t, err, "unknown field must be rejected for %s", format)

		loaded := &foreignStruct{}
		_, err = Load(data, loaded)
		require.NoError(t, err, "known fields load for %s", format)
		assert.Equal(t, &foreignStruct{S: "x", Extra: 1}, loaded)

		data, err = DumpWithoutIdentifier(&SimpleTestStruct{S: "x"}, format)
		require.NoError(t, err)
		err = LoadAsFormat(append(data, data...), format, &SimpleTestStruct{})
		assert.Error(t, err, "trailing data must be rejected for %s", format)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for name, expected := range map[string]SerializationFormat{
		"":        JSON,
		"auto":    JSON,
		"JSON":    JSON,
		"cbor":    CBOR,
		"msgpack": MsgPack,
	} {
		format, err := ParseFormat(name)
		require.NoError(t, err, "parsing %q", name)
		assert.Equal(t, expected, format, "parsing %q", name)
	}

	_, err := ParseFormat("bson")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
