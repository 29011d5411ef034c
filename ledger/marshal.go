package ledger

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tidwall/sjson"

	"github.com/safing/ledgerbase/record"
)

// MarshalEntries renders entries as a JSON array of {"Key", "Record"}
// objects. Decoded records are embedded as JSON objects, raw values as
// strings.
func MarshalEntries(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range entries {
		item, err := sjson.SetBytes([]byte("{}"), "Key", e.Key)
		if err != nil {
			return nil, err
		}

		switch p := e.Payload.(type) {
		case Decoded:
			data, err := record.DefaultCodec.Encode(p.Record)
			if err != nil {
				return nil, fmt.Errorf("entry %s: %w", e.Key, err)
			}
			item, err = sjson.SetRawBytes(item, "Record", data)
			if err != nil {
				return nil, err
			}
		case Raw:
			item, err = sjson.SetBytes(item, "Record", p.Data)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("entry %s: unknown payload %T", e.Key, e.Payload)
		}

		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(item)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// QueryAll enumerates the configured range and returns the result as a JSON blob.
func (l *Ledger) QueryAll(ctx context.Context) ([]byte, error) {
	entries, err := l.EnumerateAll(ctx)
	if err != nil {
		return nil, err
	}
	return MarshalEntries(entries)
}
