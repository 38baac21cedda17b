package repokit

import (
	"context"
	"slices"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/predicate"
)

// Query is a lazy find-many handle. Building one performs no storage work;
// the store is only consulted when a materializing method (All, First,
// Count, Paginate) runs. Every composing method returns a derived copy, so
// handles can be stored, shared and forked freely.
//
// Composition mistakes (an unknown sort attribute, a nil predicate) are
// recorded on the derived handle and surface from the materializing call,
// keeping the chain itself fluent.
type Query[T any] struct {
	repo   *Repository[T]
	pred   predicate.Expr
	orders []Order
	limit  int
	offset int
	err    error
}

func (q *Query[T]) clone() *Query[T] {
	dup := *q
	dup.orders = slices.Clone(q.orders)
	return &dup
}

// Where narrows the query by AND-composing pred with the current predicate.
func (q *Query[T]) Where(pred predicate.Expr) *Query[T] {
	dup := q.clone()
	if dup.err != nil {
		return dup
	}
	if pred == nil {
		dup.err = errx.New("[repokit]: nil predicate passed to Where")
		return dup
	}
	if dup.pred == nil {
		dup.pred = pred
	} else {
		dup.pred = predicate.And(dup.pred, pred)
	}
	return dup
}

// OrderBy appends sort keys to the query. Without any, results come back in
// the store's natural order.
func (q *Query[T]) OrderBy(orders ...Order) *Query[T] {
	dup := q.clone()
	if dup.err != nil {
		return dup
	}
	if err := validOrders(q.repo.schema, orders); err != nil {
		dup.err = err
		return dup
	}
	dup.orders = append(dup.orders, orders...)
	return dup
}

// Limit caps the number of records the query returns. Zero means no cap.
func (q *Query[T]) Limit(n int) *Query[T] {
	dup := q.clone()
	if dup.err == nil && n < 0 {
		dup.err = errx.New("[repokit]: limit must not be negative")
	}
	dup.limit = n
	return dup
}

// Offset skips the first n matching records.
func (q *Query[T]) Offset(n int) *Query[T] {
	dup := q.clone()
	if dup.err == nil && n < 0 {
		dup.err = errx.New("[repokit]: offset must not be negative")
	}
	dup.offset = n
	return dup
}

// All executes the query and returns the matching records as a materialized
// snapshot.
func (q *Query[T]) All(ctx context.Context) (Result[T], error) {
	if q.err != nil {
		return nil, q.err
	}
	recs, err := q.repo.store.Select(ctx, q.pred, q.selectOptions())
	if err != nil {
		return nil, err
	}
	return Result[T](recs), nil
}

// First executes the query with a limit of one and returns the first
// matching record, honoring the query's order and offset. Zero matches
// yield a not-found error.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	if q.err != nil {
		return nil, q.err
	}

	opts := q.selectOptions()
	opts.Limit = 1
	recs, err := q.repo.store.Select(ctx, q.pred, opts)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, q.repo.notFound()
	}
	return &recs[0], nil
}

// Count reports how many records match the query's predicate. Limit and
// offset do not apply to counting.
func (q *Query[T]) Count(ctx context.Context) (int, error) {
	if q.err != nil {
		return 0, q.err
	}
	return q.repo.store.Count(ctx, q.pred)
}

// Paginate executes the query one page at a time. page is 1-based; size is
// clamped to [1, MaxPageSize] with DefaultPageSize filling in a
// non-positive value. The page window replaces any Limit/Offset set on the
// handle; sort keys still apply.
func (q *Query[T]) Paginate(ctx context.Context, page, size int) (Page[T], error) {
	if q.err != nil {
		return Page[T]{}, q.err
	}

	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	total, err := q.repo.store.Count(ctx, q.pred)
	if err != nil {
		return Page[T]{}, err
	}

	opts := q.selectOptions()
	opts.Limit = size
	opts.Offset = (page - 1) * size
	recs, err := q.repo.store.Select(ctx, q.pred, opts)
	if err != nil {
		return Page[T]{}, err
	}

	return newPage(recs, page, size, total), nil
}

func (q *Query[T]) selectOptions() SelectOptions {
	return SelectOptions{
		Orders: q.orders,
		Limit:  q.limit,
		Offset: q.offset,
	}
}

// Result is a materialized, ordered snapshot of query results. Composing
// further on a Result happens locally: Where re-evaluates the predicate in
// memory against the already-fetched records and never goes back to the
// store. By the translation consistency of predicates, filtering before or
// after materialization selects the same records.
type Result[T any] []T

// Where filters the snapshot in memory and returns the records satisfying
// pred, preserving order. A nil pred returns the snapshot unchanged.
func (r Result[T]) Where(pred predicate.Expr) (Result[T], error) {
	if pred == nil {
		return r, nil
	}

	var out Result[T]
	for i := range r {
		ok, err := predicate.Evaluate(pred, &r[i])
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r[i])
		}
	}
	return out, nil
}

// First returns the first record of the snapshot, or false when it is
// empty.
func (r Result[T]) First() (*T, bool) {
	if len(r) == 0 {
		return nil, false
	}
	return &r[0], true
}

// Len returns the number of records in the snapshot.
func (r Result[T]) Len() int {
	return len(r)
}

// Records returns the snapshot as a plain slice.
func (r Result[T]) Records() []T {
	return r
}
