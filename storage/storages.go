package storage

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// A Factory creates a new storage of its type.
type Factory func(name, location string) (Interface, error)

var (
	storages     = make(map[string]Factory)
	storagesLock sync.Mutex
)

// Register registers a new storage type.
func Register(storageType string, factory Factory) error {
	storagesLock.Lock()
	defer storagesLock.Unlock()

	_, ok := storages[storageType]
	if ok {
		return errors.New("factory for this type already exists")
	}

	storages[storageType] = factory
	return nil
}

// Start starts a storage of the given type with the given name at location.
func Start(storageType, name, location string) (Interface, error) {
	storagesLock.Lock()
	factory, ok := storages[storageType]
	storagesLock.Unlock()

	if !ok {
		return nil, fmt.Errorf("storage of this type (%s) does not exist", storageType)
	}

	return factory(name, location)
}

// Registered returns whether a storage type is registered.
func Registered(storageType string) bool {
	storagesLock.Lock()
	defer storagesLock.Unlock()

	_, ok := storages[storageType]
	return ok
}

// Types returns the names of all registered storage types, sorted.
func Types() []string {
	storagesLock.Lock()
	defer storagesLock.Unlock()

	types := make([]string, 0, len(storages))
	for storageType := range storages {
		types = append(types, storageType)
	}
	sort.Strings(types)
	return types
}
