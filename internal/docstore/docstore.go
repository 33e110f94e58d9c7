// Package docstore defines the collection-oriented document store the
// repositories persist to. The store knows nothing about the domain:
// it moves flat field maps in and out of named collections.
package docstore

import (
	"context"
	"errors"
)

var (
	// Document with requested id does not exist in the collection
	ErrNotFound = errors.New("document not found")

	// InsertUnique found another document with the same unique key values
	ErrConflict = errors.New("document conflicts with existing one")
)

// Document is a flat set of persisted fields.
// Values are strings or numbers; nested documents are not supported.
type Document map[string]any

// Record is a stored document together with its store-assigned id.
type Record struct {
	ID   string
	Data Document
}

type Store interface {
	// Insert stores data in the collection and returns the assigned id
	Insert(ctx context.Context, collection string, data Document) (string, error)

	// InsertUnique stores data only if no other document in the collection
	// has the same values for all the given key fields.
	// Returns ErrConflict otherwise.
	InsertUnique(ctx context.Context, collection string, data Document, keys ...string) (string, error)

	// GetByID returns the document with the given id
	// Returns ErrNotFound if it does not exist
	GetByID(ctx context.Context, collection string, id string) (Record, error)

	// Query returns all documents whose field equals value
	Query(ctx context.Context, collection string, field string, value string, opts ...QueryOption) ([]Record, error)

	// Update merges fields into the stored document
	// Returns ErrNotFound if it does not exist
	Update(ctx context.Context, collection string, id string, fields Document) error

	// Delete removes the document with the given id
	// Returns ErrNotFound if it does not exist
	Delete(ctx context.Context, collection string, id string) error
}

type QueryOptions struct {
	OrderField string
	Desc       bool
}

type QueryOption func(*QueryOptions)

// OrderByDesc orders the result by the given field, descending.
// Ordering compares field values as plain strings. Callers who need
// chronological order must persist timestamps in a fixed-width layout:
// variable-width fractions (RFC3339Nano trims trailing zeros) do not
// sort chronologically.
func OrderByDesc(field string) QueryOption {
	return func(o *QueryOptions) {
		o.OrderField = field
		o.Desc = true
	}
}

// BuildQueryOptions applies opts and returns the resolved options struct
func BuildQueryOptions(opts []QueryOption) QueryOptions {
	var o QueryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
