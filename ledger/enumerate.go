package ledger

import (
	"context"
	"fmt"

	"github.com/safing/ledgerbase/log"
	"github.com/safing/ledgerbase/record"
	"github.com/safing/ledgerbase/storage"
)

// Range is a lexicographic key range [Start, End). An empty End means no
// upper bound.
type Range struct {
	Start string
	End   string
}

// DefaultRange is the key range used by EnumerateAll unless configured otherwise.
var DefaultRange = Range{Start: "000", End: "999"}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start, r.End)
}

// Payload is the content of an enumerated entry. It is either Decoded or Raw.
type Payload interface {
	payload()
}

// Decoded holds a record that was decoded successfully.
type Decoded struct {
	Record *record.Record
}

// Raw holds the stored bytes of a value that could not be decoded.
type Raw struct {
	Data string
}

func (Decoded) payload() {}
func (Raw) payload() {}

// Entry is a single enumeration result.
type Entry struct {
	Key     string
	Payload Payload
}

// Record returns the decoded record of the entry, if it has one.
func (e Entry) Record() (*record.Record, bool) {
	d, ok := e.Payload.(Decoded)
	if !ok {
		return nil, false
	}
	return d.Record, true
}

// EnumerateAll returns all records in the configured range, in key order.
func (l *Ledger) EnumerateAll(ctx context.Context) ([]Entry, error) {
	return l.Enumerate(ctx, l.scanRange)
}

// Enumerate returns all records within r, in key order. Values that fail to
// decode are returned as Raw entries instead of failing the scan.
// Zero-length values are skipped.
func (l *Ledger) Enumerate(ctx context.Context, r Range) (entries []Entry, err error) {
	if l.closed.IsSet() {
		return nil, newError(OpEnumerate, r.String(), ErrClosed, nil)
	}
	if err := storage.CheckRange(r.Start, r.End); err != nil {
		return nil, storeError(OpEnumerate, r.String(), err)
	}
	_, tracer := log.AddTracer(ctx)
	defer tracer.Submit()

	it, err := l.store.Scan(r.Start, r.End)
	if err != nil {
		return nil, storeError(OpEnumerate, r.String(), err)
	}
	tracer.Tracef("ledger: scanning %s with cursor %s", r, it.ID)
	defer func() {
		if closeErr := it.Close(); closeErr != nil && err == nil {
			entries = nil
			err = storeError(OpEnumerate, r.String(), closeErr)
		}
	}()

	entries = make([]Entry, 0)
	var raw int
	for e := range it.Next {
		if len(e.Value) == 0 {
			continue
		}

		rec, decErr := l.codec.Decode(e.Value)
		if decErr != nil {
			log.Warningf("ledger: passing through undecodable record %s: %s", e.Key, decErr)
			entries = append(entries, Entry{Key: e.Key, Payload: Raw{Data: string(e.Value)}})
			raw++
			continue
		}
		entries = append(entries, Entry{Key: e.Key, Payload: Decoded{Record: rec}})
	}

	tracer.Tracef("ledger: cursor %s yielded %d entries (%d raw)", it.ID, len(entries), raw)
	return entries, nil
}
