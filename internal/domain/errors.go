package domain

import "errors"

// Sentinel errors shared across the store, scheduler and exporter.
// Check with errors.Is; wrapped causes carry the underlying condition.
var (
	ErrNotFound       = errors.New("not found")
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrInvalidRating  = errors.New("invalid rating")
	ErrDuplicateID    = errors.New("duplicate identifier")
	ErrExport         = errors.New("export failed")
)
