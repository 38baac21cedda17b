package repokit

import (
	"context"
	"fmt"

	"github.com/avast/retry-go/v4"
	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/logger"
	"github.com/rise-and-shine/repokit/patch"
	"github.com/rise-and-shine/repokit/predicate"
	"github.com/rise-and-shine/repokit/record"
)

// Repository is a generic facade over a Store for one record type. It owns
// no storage logic itself: reads go through the store's Select/Fetch, writes
// through Insert/Persist, and partial updates run the linear
// fetch-merge-persist flow with merge-layer change reporting.
//
// A Repository is immutable after construction and safe for concurrent use
// as long as its store is.
type Repository[T any] struct {
	store        Store[T]
	schema       *record.Schema
	builder      predicate.Builder
	log          logger.Logger
	notFoundCode string
}

// New builds a Repository for record type T on top of the given store.
// The schema of T is inferred from its `record` struct tags; an
// untagged or malformed type is rejected here, before any storage use.
func New[T any](store Store[T], opts ...Option) (*Repository[T], error) {
	if store == nil {
		return nil, errx.New("[repokit]: store must not be nil")
	}

	schema, err := record.Infer[T]()
	if err != nil {
		return nil, err
	}

	cfg := config{
		log:          logger.NewNop(),
		notFoundCode: CodeNotFound,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Repository[T]{
		store:        store,
		schema:       schema,
		builder:      predicate.NewBuilder(schema),
		log:          cfg.log,
		notFoundCode: cfg.notFoundCode,
	}, nil
}

// MustNew is like New but panics on error. Intended for package-level
// wiring where the record type is known to be well-formed.
func MustNew[T any](store Store[T], opts ...Option) *Repository[T] {
	repo, err := New(store, opts...)
	if err != nil {
		panic(err)
	}
	return repo
}

// Schema returns the inferred schema of T.
func (r *Repository[T]) Schema() *record.Schema {
	return r.schema
}

// Predicates returns a predicate builder bound to the schema of T, so
// callers do not have to keep schema and builder in sync themselves.
func (r *Repository[T]) Predicates() predicate.Builder {
	return r.builder
}

// FindOne returns the first record matching pred in the store's natural
// order. Zero matches yield a not-found error; more than one match is legal
// and the extra records are simply never fetched. Use FindUnique when the
// predicate is supposed to identify exactly one record.
func (r *Repository[T]) FindOne(ctx context.Context, pred predicate.Expr) (*T, error) {
	recs, err := r.store.Select(ctx, pred, SelectOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, r.notFound()
	}
	return &recs[0], nil
}

// FindUnique returns the single record matching pred. It fetches up to two
// records: zero matches yield a not-found error, two yield MULTIPLE_FOUND.
func (r *Repository[T]) FindUnique(ctx context.Context, pred predicate.Expr) (*T, error) {
	recs, err := r.store.Select(ctx, pred, SelectOptions{Limit: 2})
	if err != nil {
		return nil, err
	}

	switch len(recs) {
	case 0:
		return nil, r.notFound()
	case 1:
		return &recs[0], nil
	default:
		return nil, errx.New(
			fmt.Sprintf("multiple %s records match a unique query", r.schema.Name()),
			errx.WithCode(CodeMultipleFound),
			errx.WithType(errx.T_Internal),
		)
	}
}

// Find starts a lazy query for records matching pred. Nothing touches the
// store until one of the query's materializing methods runs. A nil pred
// matches every record.
func (r *Repository[T]) Find(pred predicate.Expr) *Query[T] {
	return &Query[T]{repo: r, pred: pred}
}

// Insert stores a new record. The store assigns the record's identity (and
// initial version, when the schema declares one) in place.
func (r *Repository[T]) Insert(ctx context.Context, rec *T) error {
	if rec == nil {
		return errx.New("[repokit]: record must not be nil")
	}

	if err := r.store.Insert(ctx, rec); err != nil {
		return err
	}

	id, _, _ := r.schema.PK().ValueOf(rec)
	r.log.Debugw("record inserted", "record", r.schema.Name(), "id", id)
	return nil
}

// Update applies patch p to the record identified by id and reports whether
// any attribute value actually changed.
//
// The flow is strictly linear: fetch the current record, merge the patch
// into a copy, persist the merged copy. A fetch miss aborts with a
// not-found error before any merge work happens. When the merge changes
// nothing, the persist step is skipped and Update returns (false, nil).
//
// A CONFLICT from the persist step propagates to the caller unchanged;
// pass WithRetryOnConflict to re-run the whole sequence against fresh
// state instead.
func (r *Repository[T]) Update(ctx context.Context, id any, p *patch.Patch, opts ...UpdateOption) (bool, error) {
	cfg := updateConfig{attempts: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	// Reject a mistyped identity before touching the store.
	pk, err := r.schema.PK().Normalize(id)
	if err != nil {
		return false, err
	}

	var changed bool
	apply := func() error {
		existing, err := r.store.Fetch(ctx, pk)
		if err != nil {
			return r.remapNotFound(err)
		}

		merged, ch, err := patch.Merge(*existing, p)
		if err != nil {
			return err
		}

		changed = ch
		if !ch {
			return nil
		}
		return r.store.Persist(ctx, &merged)
	}

	if cfg.attempts > 1 {
		err = retry.Do(
			apply,
			retry.Attempts(cfg.attempts),
			retry.RetryIf(IsConflict),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				r.log.Warnw("retrying conflicted update",
					"record", r.schema.Name(),
					"id", pk,
					"attempt", n+1,
					"max_attempts", cfg.attempts,
					"error", err.Error(),
				)
			}),
			retry.Context(ctx),
		)
	} else {
		err = apply()
	}
	if err != nil {
		return false, err
	}

	r.log.Debugw("record updated", "record", r.schema.Name(), "id", pk, "changed", changed)
	return changed, nil
}

func (r *Repository[T]) notFound() error {
	return errx.New(
		fmt.Sprintf("%s not found", r.schema.Name()),
		errx.WithCode(r.notFoundCode),
		errx.WithType(errx.T_NotFound),
	)
}

// remapNotFound re-codes a store-level NOT_FOUND with the repository's
// configured code, keeping the original message and trace.
func (r *Repository[T]) remapNotFound(err error) error {
	if r.notFoundCode == CodeNotFound || !IsNotFound(err) {
		return err
	}
	return errx.Wrap(err, errx.WithCode(r.notFoundCode))
}
