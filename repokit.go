// Package repokit provides a storage-agnostic data access layer for Go
// services. It is built around three cooperating pieces:
//
//   - predicate: immutable, schema-validated boolean expressions that can be
//     evaluated in memory or translated into a store's native query form.
//   - patch: presence-aware partial updates with a pure merge function that
//     reports whether anything actually changed.
//   - Repository: a generic facade offering find-one, find-many, insert and
//     update flows on top of any Store implementation.
//
// Record types declare their attributes with `record` struct tags; the schema
// is inferred once per type via reflection. Two Store implementations ship
// with the module: memstore (in-memory, for tests and prototypes) and pgstore
// (PostgreSQL via bun).
package repokit

import (
	"context"

	"github.com/rise-and-shine/repokit/predicate"
)

// Store is the storage collaborator contract the Repository facade runs
// against. Implementations decide how predicates execute: evaluating them
// in memory and translating them into a native query language are both
// legal as long as the observable results agree.
//
// All errors returned by a Store are errx errors carrying one of the
// package-level codes (NOT_FOUND, CONFLICT, ...) where applicable.
type Store[T any] interface {
	// Insert persists a new record and assigns its identity (and version,
	// when the schema declares one) in place.
	Insert(ctx context.Context, rec *T) error
	// Fetch returns the record with the given primary key value.
	// Returns a NOT_FOUND error when no such record exists.
	Fetch(ctx context.Context, id any) (*T, error)
	// Select returns the records matching pred, in the store's natural
	// order unless opts says otherwise. A nil pred matches everything.
	Select(ctx context.Context, pred predicate.Expr, opts SelectOptions) ([]T, error)
	// Count returns the number of records matching pred.
	// A nil pred counts everything.
	Count(ctx context.Context, pred predicate.Expr) (int, error)
	// Persist saves the full state of an existing record, identified by its
	// primary key attribute. Returns a CONFLICT error when the record is
	// gone or its version no longer matches the stored one.
	Persist(ctx context.Context, rec *T) error
}

// SelectOptions narrows a Select call. The zero value means: natural order,
// no limit, no offset.
type SelectOptions struct {
	// Orders lists explicit sort keys, applied in sequence. Empty means the
	// store's natural order.
	Orders []Order
	// Limit caps the number of returned records. Zero means no cap.
	Limit int
	// Offset skips that many records from the start of the result.
	Offset int
}
