package storage

import "errors"

// Errors for storages.
var (
	ErrNotFound        = errors.New("storage entry not found")
	ErrInvalidKey      = errors.New("invalid key")
	ErrInvalidRange    = errors.New("invalid scan range")
	ErrConditionFailed = errors.New("write condition not met")
	ErrShutdown        = errors.New("storage is shut down")
)
