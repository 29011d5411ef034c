package iterator

import (
	"sync"

	"github.com/gofrs/uuid"
	"github.com/tevino/abool"
)

// Entry is a single key/value pair yielded by a range scan.
type Entry struct {
	Key   string
	Value []byte
}

// Iterator is a range scan cursor. The storage feeds entries into Next in
// ascending key order and closes it when the scan is exhausted or failed.
// Consumers must call Close (or Cancel) once they are done, so that the
// storage can release the resources held by the scan.
type Iterator struct {
	ID   string
	Next chan *Entry
	Done chan struct{}

	errLock    sync.Mutex
	err        error
	doneClosed *abool.AtomicBool
}

// New creates a new Iterator.
func New() *Iterator {
	return &Iterator{
		ID:         uuid.Must(uuid.NewV4()).String(),
		Next:       make(chan *Entry, 10),
		Done:       make(chan struct{}),
		doneClosed: abool.NewBool(false),
	}
}

// Finish is called by the storage to signal the end of the scan.
func (it *Iterator) Finish(err error) {
	// The error must be visible before consumers see Next closed.
	it.errLock.Lock()
	it.err = err
	it.errLock.Unlock()

	close(it.Next)
	if it.doneClosed.SetToIf(false, true) {
		close(it.Done)
	}
}

// Cancel is called by the consumer to stop the scan early.
func (it *Iterator) Cancel() {
	if it.doneClosed.SetToIf(false, true) {
		close(it.Done)
	}
}

// Close cancels the scan if still running and waits for the storage to
// release it. Remaining entries are discarded.
func (it *Iterator) Close() error {
	it.Cancel()
	for range it.Next { //nolint:revive
		// drain until the storage finished
	}
	return it.Err()
}

// Err returns the iterator error, if exists.
func (it *Iterator) Err() error {
	it.errLock.Lock()
	defer it.errLock.Unlock()
	return it.err
}

// Send delivers an entry to the consumer. It returns false if the consumer
// cancelled the scan, in which case the storage must stop.
func (it *Iterator) Send(e *Entry) bool {
	select {
	case <-it.Done:
		return false
	case it.Next <- e:
		return true
	}
}
