package record

import (
	"errors"
	"fmt"

	"github.com/safing/ledgerbase/formats/dsd"
)

// ErrDecode is returned when stored bytes are not a well-formed record.
var ErrDecode = errors.New("record: malformed encoding")

// DefaultCodec encodes records as JSON, the format other ledger clients read and write.
var DefaultCodec = &Codec{format: dsd.JSON}

// Codec encodes and decodes records in one serialization format.
//
// A plain codec writes bare structured data, so stored bytes equal what other
// ledger clients write. An identified codec prefixes every encoding with its
// format identifier and decodes any supported format, which allows a ledger
// to hold records written in different formats.
type Codec struct {
	format     dsd.SerializationFormat
	identified bool
}

// wireRecord distinguishes a missing value from an empty one.
type wireRecord struct {
	Value *string `json:"value" cbor:"value" msgpack:"value"`
}

// NewCodec returns a plain codec for the given format.
func NewCodec(format dsd.SerializationFormat) (*Codec, error) {
	validated, ok := format.ValidateSerializationFormat()
	if !ok {
		return nil, fmt.Errorf("record: %w: %s", dsd.ErrIncompatibleFormat, format)
	}
	return &Codec{format: validated}, nil
}

// NewIdentifiedCodec returns a codec that writes format identified records
// in the given format.
func NewIdentifiedCodec(format dsd.SerializationFormat) (*Codec, error) {
	c, err := NewCodec(format)
	if err != nil {
		return nil, err
	}
	c.identified = true
	return c, nil
}

// Format returns the serialization format of the codec.
func (c *Codec) Format() dsd.SerializationFormat {
	return c.format
}

// Identified reports whether encodings carry a format identifier.
func (c *Codec) Identified() bool {
	return c.identified
}

// Encode serializes the record.
func (c *Codec) Encode(r *Record) ([]byte, error) {
	if r == nil {
		return nil, errors.New("record: cannot encode nil record")
	}
	if c.identified {
		return dsd.Dump(r, c.format)
	}
	return dsd.DumpWithoutIdentifier(r, c.format)
}

// Decode parses data back into a record. Anything that is not a
// well-formed record fails with ErrDecode: malformed or truncated data,
// a missing value and fields a record does not have.
func (c *Codec) Decode(data []byte) (*Record, error) {
	var (
		w   *wireRecord
		err error
	)
	if c.identified {
		_, err = dsd.Load(data, &w)
	} else {
		err = dsd.LoadAsFormat(data, c.format, &w)
	}
	switch {
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	case w == nil:
		return nil, fmt.Errorf("%w: null record", ErrDecode)
	case w.Value == nil:
		return nil, fmt.Errorf("%w: missing value", ErrDecode)
	}
	return New(*w.Value), nil
}
