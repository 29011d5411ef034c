package ledger

import (
	"github.com/safing/ledgerbase/config"
	"github.com/safing/ledgerbase/record"
	"github.com/safing/ledgerbase/storage"
	"github.com/safing/ledgerbase/storage/instrumented"
)

// Open starts the storage described by cfg and returns a ledger on top of it.
// The storage type must have been registered, usually by importing its package.
func Open(cfg *config.Config) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	newCodec := record.NewCodec
	if cfg.IdentifyFormat {
		newCodec = record.NewIdentifiedCodec
	}
	codec, err := newCodec(cfg.SerializationFormat())
	if err != nil {
		return nil, err
	}

	store, err := storage.Start(cfg.StorageType, cfg.Name, cfg.Location)
	if err != nil {
		return nil, err
	}
	if cfg.Metrics {
		store = instrumented.Wrap(store, cfg.Name)
	}

	l, err := New(store, &Options{
		Codec: codec,
		Range: &Range{Start: cfg.ScanStart, End: cfg.ScanEnd},
	})
	if err != nil {
		_ = store.Shutdown()
		return nil, err
	}
	return l, nil
}
