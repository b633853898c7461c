// Package storage persists EntityCount rows: the per-page BOM CSV files,
// the run-wide aggregate CSV and the optional database sinks.
package storage

import (
	"context"

	"github.com/IshaanNene/entitymap/internal/types"
)

// Storage is the interface for all storage backends.
type Storage interface {
	// Store persists the rows of one page.
	Store(ctx context.Context, rows []types.EntityCount) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}
