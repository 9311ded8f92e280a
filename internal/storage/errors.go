package storage

import "errors"

// Errors shared by every store backend.
var (
	// ErrNotFound is returned when a run or seed row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when a run_id or a (run_id, seed) pair is
	// written twice. Runs and seed rows are immutable once stored.
	ErrDuplicateKey = errors.New("duplicate key: stored runs are immutable")

	// ErrInvalidInput is returned for nil records or records missing their key.
	ErrInvalidInput = errors.New("invalid input")
)
