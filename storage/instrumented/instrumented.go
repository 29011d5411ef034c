package instrumented

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/safing/ledgerbase/iterator"
	"github.com/safing/ledgerbase/storage"
)

// Operation names used as metric labels.
const (
	OpGet      = "get"
	OpPut      = "put"
	OpPutIf    = "put_if"
	OpDelete   = "delete"
	OpDeleteIf = "delete_if"
	OpScan     = "scan"
)

var ops = []string{OpGet, OpPut, OpPutIf, OpDelete, OpDeleteIf, OpScan}

type opMetrics struct {
	count    *metrics.Counter
	errors   *metrics.Counter
	duration *metrics.Histogram
}

// Store wraps any storage with per-operation counters and latency
// histograms. Results of the wrapped storage are passed through unchanged.
type Store struct {
	store storage.Interface
	set   *metrics.Set
	ops   map[string]*opMetrics
}

// ConditionalStore is a Store whose wrapped storage supports conditional writes.
type ConditionalStore struct {
	*Store
	cond storage.Conditional
}

var (
	_ storage.Interface   = &Store{}
	_ storage.Wrapper     = &Store{}
	_ storage.Conditional = &ConditionalStore{}
)

// Wrap wraps store with instrumentation. The result implements
// storage.Conditional if and only if store does.
func Wrap(store storage.Interface, name string) storage.Interface {
	s := newStore(store, name)
	if cond, ok := store.(storage.Conditional); ok {
		return &ConditionalStore{Store: s, cond: cond}
	}
	return s
}

func newStore(store storage.Interface, name string) *Store {
	s := &Store{
		store: store,
		set:   metrics.NewSet(),
		ops:   make(map[string]*opMetrics, len(ops)),
	}
	for _, op := range ops {
		labels := fmt.Sprintf(`{storage=%q,op=%q}`, name, op)
		s.ops[op] = &opMetrics{
			count:    s.set.NewCounter("ledger_storage_ops_total" + labels),
			errors:   s.set.NewCounter("ledger_storage_errors_total" + labels),
			duration: s.set.NewHistogram("ledger_storage_op_duration_seconds" + labels),
		}
	}
	return s
}

func (s *Store) record(op string, start time.Time, err error) {
	m := s.ops[op]
	m.count.Inc()
	m.duration.UpdateDuration(start)
	// A missing key or failed condition is an answer, not a failure.
	if err != nil && !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrConditionFailed) {
		m.errors.Inc()
	}
}

// Get delegates to the wrapped storage and records timing.
func (s *Store) Get(key string) ([]byte, error) {
	start := time.Now()
	value, err := s.store.Get(key)
	s.record(OpGet, start, err)
	return value, err
}

// Put delegates to the wrapped storage and records timing.
func (s *Store) Put(key string, value []byte) error {
	start := time.Now()
	err := s.store.Put(key, value)
	s.record(OpPut, start, err)
	return err
}

// Delete delegates to the wrapped storage and records timing.
func (s *Store) Delete(key string) error {
	start := time.Now()
	err := s.store.Delete(key)
	s.record(OpDelete, start, err)
	return err
}

// Scan delegates to the wrapped storage. The scan is recorded once the
// cursor is exhausted or released, so its duration covers the whole scan.
func (s *Store) Scan(start, end string) (*iterator.Iterator, error) {
	began := time.Now()
	inner, err := s.store.Scan(start, end)
	if err != nil {
		s.record(OpScan, began, err)
		return nil, err
	}

	it := iterator.New()
	go s.forward(inner, it, began)
	return it, nil
}

func (s *Store) forward(inner, outer *iterator.Iterator, began time.Time) {
	for e := range inner.Next {
		if !outer.Send(e) {
			break
		}
	}
	// Close releases the wrapped cursor if the consumer stopped early.
	err := inner.Close()
	s.record(OpScan, began, err)
	outer.Finish(err)
}

// Unwrap returns the wrapped storage.
func (s *Store) Unwrap() storage.Interface {
	return s.store
}

// Shutdown shuts down the wrapped storage.
func (s *Store) Shutdown() error {
	return s.store.Shutdown()
}

// WritePrometheus writes all metrics in Prometheus text exposition format.
func (s *Store) WritePrometheus(w io.Writer) {
	s.set.WritePrometheus(w)
}

// Snapshot is a point-in-time view of operation and error counts.
type Snapshot struct {
	Ops    map[string]uint64
	Errors map[string]uint64
}

// Snapshot returns the current counts.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Ops:    make(map[string]uint64, len(s.ops)),
		Errors: make(map[string]uint64, len(s.ops)),
	}
	for op, m := range s.ops {
		snap.Ops[op] = m.count.Get()
		snap.Errors[op] = m.errors.Get()
	}
	return snap
}

// PutIf delegates to the wrapped storage and records timing.
func (s *ConditionalStore) PutIf(key string, value []byte, cond storage.Condition) error {
	start := time.Now()
	err := s.cond.PutIf(key, value, cond)
	s.record(OpPutIf, start, err)
	return err
}

// DeleteIf delegates to the wrapped storage and records timing.
func (s *ConditionalStore) DeleteIf(key string, cond storage.Condition) error {
	start := time.Now()
	err := s.cond.DeleteIf(key, cond)
	s.record(OpDeleteIf, start, err)
	return err
}
