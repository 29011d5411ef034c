package ledger

import (
	"context"
	"errors"

	"github.com/tevino/abool"

	"github.com/safing/ledgerbase/log"
	"github.com/safing/ledgerbase/record"
	"github.com/safing/ledgerbase/storage"
)

// Options configures a Ledger.
type Options struct {
	// Codec encodes stored records. Defaults to record.DefaultCodec.
	Codec *record.Codec
	// Range is the key range covered by EnumerateAll. Defaults to DefaultRange.
	Range *Range
	// DisableConditional makes the ledger check existence and write in
	// separate storage calls, even if the storage supports conditional writes.
	DisableConditional bool
}

// Ledger is the access layer over an ordered key-value storage. It holds no
// state of its own: every call goes straight to the storage.
type Ledger struct {
	store     storage.Interface
	cond      storage.Conditional
	codec     *record.Codec
	scanRange Range
	closed    *abool.AtomicBool
}

// New returns a ledger on top of store.
func New(store storage.Interface, opts *Options) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("ledger: missing storage")
	}
	if opts == nil {
		opts = &Options{}
	}

	l := &Ledger{
		store:     store,
		codec:     opts.Codec,
		scanRange: DefaultRange,
		closed:    abool.NewBool(false),
	}
	if l.codec == nil {
		l.codec = record.DefaultCodec
	}
	if opts.Range != nil {
		if err := storage.CheckRange(opts.Range.Start, opts.Range.End); err != nil {
			return nil, err
		}
		l.scanRange = *opts.Range
	}
	if cond, ok := store.(storage.Conditional); ok && !opts.DisableConditional {
		l.cond = cond
	}

	return l, nil
}

// Storage returns the underlying storage.
func (l *Ledger) Storage() storage.Interface {
	return l.store
}

// Conditional reports whether mutations are applied with single conditional writes.
func (l *Ledger) Conditional() bool {
	return l.cond != nil
}

// Range returns the key range covered by EnumerateAll.
func (l *Ledger) Range() Range {
	return l.scanRange
}

func (l *Ledger) check(op, key string) error {
	if l.closed.IsSet() {
		return newError(op, key, ErrClosed, nil)
	}
	if key == "" {
		return newError(op, key, ErrInvalidKey, nil)
	}
	return nil
}

// exists queries the storage for a non-empty value at key.
func (l *Ledger) exists(op, key string) (bool, error) {
	value, err := l.store.Get(key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	case err != nil:
		return false, storeError(op, key, err)
	default:
		return len(value) > 0, nil
	}
}

// Exists reports whether a record is stored at key. A zero-length value
// counts as absent.
func (l *Ledger) Exists(ctx context.Context, key string) (bool, error) {
	if err := l.check(OpExists, key); err != nil {
		return false, err
	}
	_, tracer := log.AddTracer(ctx)
	defer tracer.Submit()

	exists, err := l.exists(OpExists, key)
	tracer.Tracef("ledger: exists %q: %v (err=%v)", key, exists, err)
	return exists, err
}

// Create stores a new record at key. It fails with ErrAlreadyExists, and
// does not write, if a record is already present.
func (l *Ledger) Create(ctx context.Context, key, value string) error {
	if err := l.check(OpCreate, key); err != nil {
		return err
	}
	_, tracer := log.AddTracer(ctx)
	defer tracer.Submit()

	if l.cond == nil {
		exists, err := l.exists(OpCreate, key)
		if err != nil {
			return err
		}
		if exists {
			tracer.Tracef("ledger: create %q: already exists", key)
			return newError(OpCreate, key, ErrAlreadyExists, nil)
		}
	}

	data, err := l.codec.Encode(record.New(value))
	if err != nil {
		return storeError(OpCreate, key, err)
	}

	if l.cond != nil {
		err = l.cond.PutIf(key, data, storage.IfAbsent)
		if errors.Is(err, storage.ErrConditionFailed) {
			tracer.Tracef("ledger: create %q: already exists", key)
			return newError(OpCreate, key, ErrAlreadyExists, nil)
		}
	} else {
		err = l.store.Put(key, data)
	}
	if err != nil {
		return storeError(OpCreate, key, err)
	}

	tracer.Tracef("ledger: created %q", key)
	return nil
}

// Read returns the record stored at key. It fails with ErrNotFound if there
// is none, and with ErrCorruptRecord if the stored bytes do not decode.
func (l *Ledger) Read(ctx context.Context, key string) (*record.Record, error) {
	if err := l.check(OpRead, key); err != nil {
		return nil, err
	}
	_, tracer := log.AddTracer(ctx)
	defer tracer.Submit()

	data, err := l.store.Get(key)
	switch {
	case errors.Is(err, storage.ErrNotFound) || (err == nil && len(data) == 0):
		tracer.Tracef("ledger: read %q: not found", key)
		return nil, newError(OpRead, key, ErrNotFound, nil)
	case err != nil:
		return nil, storeError(OpRead, key, err)
	}

	r, err := l.codec.Decode(data)
	if err != nil {
		log.Warningf("ledger: record %q failed to decode: %s", key, err)
		return nil, newError(OpRead, key, ErrCorruptRecord, err)
	}

	tracer.Tracef("ledger: read %q", key)
	return r, nil
}

// Update replaces the record at key with a new record holding newValue. It
// fails with ErrNotFound if there is no record to replace.
func (l *Ledger) Update(ctx context.Context, key, newValue string) error {
	if err := l.check(OpUpdate, key); err != nil {
		return err
	}
	_, tracer := log.AddTracer(ctx)
	defer tracer.Submit()

	if l.cond == nil {
		exists, err := l.exists(OpUpdate, key)
		if err != nil {
			return err
		}
		if !exists {
			tracer.Tracef("ledger: update %q: not found", key)
			return newError(OpUpdate, key, ErrNotFound, nil)
		}
	}

	data, err := l.codec.Encode(record.New(newValue))
	if err != nil {
		return storeError(OpUpdate, key, err)
	}

	if l.cond != nil {
		err = l.cond.PutIf(key, data, storage.IfPresent)
		if errors.Is(err, storage.ErrConditionFailed) {
			tracer.Tracef("ledger: update %q: not found", key)
			return newError(OpUpdate, key, ErrNotFound, nil)
		}
	} else {
		err = l.store.Put(key, data)
	}
	if err != nil {
		return storeError(OpUpdate, key, err)
	}

	tracer.Tracef("ledger: updated %q", key)
	return nil
}

// Delete removes the record at key. It fails with ErrNotFound if there is none.
func (l *Ledger) Delete(ctx context.Context, key string) error {
	if err := l.check(OpDelete, key); err != nil {
		return err
	}
	_, tracer := log.AddTracer(ctx)
	defer tracer.Submit()

	var err error
	if l.cond != nil {
		err = l.cond.DeleteIf(key, storage.IfPresent)
		if errors.Is(err, storage.ErrConditionFailed) {
			tracer.Tracef("ledger: delete %q: not found", key)
			return newError(OpDelete, key, ErrNotFound, nil)
		}
	} else {
		var exists bool
		exists, err = l.exists(OpDelete, key)
		if err != nil {
			return err
		}
		if !exists {
			tracer.Tracef("ledger: delete %q: not found", key)
			return newError(OpDelete, key, ErrNotFound, nil)
		}
		err = l.store.Delete(key)
	}
	if err != nil {
		return storeError(OpDelete, key, err)
	}

	tracer.Tracef("ledger: deleted %q", key)
	return nil
}

// Maintain runs the storage's housekeeping, such as compaction or garbage
// collection. Storages without housekeeping are left alone.
func (l *Ledger) Maintain(ctx context.Context) error {
	if l.closed.IsSet() {
		return newError(OpMaintain, "", ErrClosed, nil)
	}
	_, tracer := log.AddTracer(ctx)
	defer tracer.Submit()

	m, ok := storage.AsMaintainer(l.store)
	if !ok {
		tracer.Trace("ledger: storage needs no maintenance")
		return nil
	}
	if err := m.Maintain(); err != nil {
		return storeError(OpMaintain, "", err)
	}
	tracer.Trace("ledger: storage maintained")
	return nil
}

// Close shuts down the underlying storage. Further calls fail with ErrClosed.
func (l *Ledger) Close() error {
	if !l.closed.SetToIf(false, true) {
		return nil
	}
	return l.store.Shutdown()
}
