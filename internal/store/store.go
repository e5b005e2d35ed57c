package store

import (
	"context"
	"fmt"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	BackendChromem = "chromem"
	BackendSQLite  = "sqlite"
)

// sqliteFileName is the database file created inside the store directory.
const sqliteFileName = "index.db"

// Store defines the operations on a single named collection.
type Store interface {
	// Upsert inserts doc or replaces the existing entry with the same ID.
	Upsert(ctx context.Context, doc Document, embedding []float32) error

	// Query returns up to n nearest documents, closest first.
	Query(ctx context.Context, embedding []float32, n int) ([]Match, error)

	// Get returns the document with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Document, error)

	// Count returns the number of documents in the collection.
	Count(ctx context.Context) (int, error)

	// Info describes the collection.
	Info(ctx context.Context) (*Info, error)

	Close() error
}

// Open opens the collection described by opts with the selected backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case BackendChromem, "":
		return NewChromemStore(opts.Path, opts.Collection, opts.Compress, opts.Model)
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(opts.Path, sqliteFileName), opts.Collection, opts.Model)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", opts.Backend)
	}
}

// OpenExisting opens the collection described by opts for reading. Nothing is
// created on disk; ErrNoCollection is returned when the collection is absent.
func OpenExisting(opts Options) (Store, error) {
	switch opts.Backend {
	case BackendChromem, "":
		return OpenChromemStore(opts.Path, opts.Collection, opts.Compress, opts.Model)
	case BackendSQLite:
		return OpenSQLiteStore(filepath.Join(opts.Path, sqliteFileName), opts.Collection, opts.Model)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", opts.Backend)
	}
}
