// Package memstore provides an in-memory Store implementation, intended for
// tests, prototypes and as the reference semantics for other stores.
//
// Records live in insertion order, which is also the store's natural order.
// Schema attributes are deep-copied on the way in and out, so callers can
// never alias store memory through a returned record; struct fields outside
// the schema copy shallowly. Predicates are evaluated directly against the
// stored records, with no translation step.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/code19m/errx"
	"github.com/google/uuid"
	"github.com/rise-and-shine/repokit"
	"github.com/rise-and-shine/repokit/predicate"
	"github.com/rise-and-shine/repokit/record"
	"github.com/samber/lo"
)

// Store is an in-memory implementation of repokit.Store[T], safe for
// concurrent use.
type Store[T any] struct {
	mu     sync.RWMutex
	schema *record.Schema
	rows   []T
	index  map[any]int
	seq    int64
}

// New creates an empty store for record type T. It panics when T is not a
// valid record type; use record.Infer to check a type without panicking.
func New[T any]() *Store[T] {
	return &Store[T]{
		schema: record.MustInfer[T](),
		index:  make(map[any]int),
	}
}

// Insert stores a new record. The store owns identity assignment: string
// primary keys receive a fresh UUID, integer ones the next value of a
// monotonic sequence, written into rec in place. A record that already
// carries an identity is rejected. When the schema declares a version
// attribute it starts at 1.
func (s *Store[T]) Insert(ctx context.Context, rec *T) error {
	if err := ctx.Err(); err != nil {
		return errx.Wrap(err)
	}
	if rec == nil {
		return errx.New("[memstore]: record must not be nil")
	}

	pk := s.schema.PK()

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, _, err := pk.ValueOf(rec)
	if err != nil {
		return err
	}
	if !isZeroIdentity(cur) {
		return errx.New("[memstore]: identity is assigned by the store on insert",
			errx.WithDetails(errx.D{"record": s.schema.Name(), "id": cur}))
	}

	var id any
	if pk.Kind == record.KindString {
		id = uuid.NewString()
	} else {
		s.seq++
		id = s.seq
	}

	if err := pk.SetValue(rec, id); err != nil {
		return err
	}
	if ver := s.schema.Version(); ver != nil {
		if err := ver.SetValue(rec, int64(1)); err != nil {
			return err
		}
	}

	s.rows = append(s.rows, s.clone(*rec))
	s.index[id] = len(s.rows) - 1
	return nil
}

// Fetch returns a copy of the record with the given identity.
func (s *Store[T]) Fetch(ctx context.Context, id any) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, errx.Wrap(err)
	}

	norm, err := s.schema.PK().Normalize(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.index[norm]
	if !ok {
		return nil, s.notFound(norm)
	}

	rec := s.clone(s.rows[idx])
	return &rec, nil
}

// Select returns copies of the records matching pred. Without explicit sort
// keys the result keeps insertion order; explicit keys sort stably, so ties
// still resolve by insertion. Absent (nil) attribute values sort after
// present ones, matching SQL's default null ordering.
func (s *Store[T]) Select(ctx context.Context, pred predicate.Expr, opts repokit.SelectOptions) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, errx.Wrap(err)
	}
	if err := s.checkOrders(opts.Orders); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits, err := s.match(pred)
	if err != nil {
		return nil, err
	}

	if len(opts.Orders) > 0 {
		sort.SliceStable(hits, func(i, j int) bool {
			return s.less(&s.rows[hits[i]], &s.rows[hits[j]], opts.Orders)
		})
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(hits) {
			hits = nil
		} else {
			hits = hits[opts.Offset:]
		}
	}
	if opts.Limit > 0 && opts.Limit < len(hits) {
		hits = hits[:opts.Limit]
	}

	return lo.Map(hits, func(idx int, _ int) T {
		return s.clone(s.rows[idx])
	}), nil
}

// Count returns the number of records matching pred.
func (s *Store[T]) Count(ctx context.Context, pred predicate.Expr) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, errx.Wrap(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits, err := s.match(pred)
	if err != nil {
		return 0, err
	}
	return len(hits), nil
}

// Persist overwrites the stored record carrying rec's identity. With a
// version attribute the write is guarded: rec's version must equal the
// stored one, and the successful write increments it, both in the store and
// on rec itself. A missing identity is a conflict, not a not-found: the
// record existed when the caller fetched it.
func (s *Store[T]) Persist(ctx context.Context, rec *T) error {
	if err := ctx.Err(); err != nil {
		return errx.Wrap(err)
	}
	if rec == nil {
		return errx.New("[memstore]: record must not be nil")
	}

	pk := s.schema.PK()
	id, _, err := pk.ValueOf(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[id]
	if !ok {
		return errx.New(
			fmt.Sprintf("%s %v is gone, likely deleted concurrently", s.schema.Name(), id),
			errx.WithCode(repokit.CodeConflict),
			errx.WithType(errx.T_Conflict),
			errx.WithDetails(errx.D{"record": s.schema.Name(), "id": id}),
		)
	}

	if ver := s.schema.Version(); ver != nil {
		stored, _, err := ver.ValueOf(&s.rows[idx])
		if err != nil {
			return err
		}
		own, _, err := ver.ValueOf(rec)
		if err != nil {
			return err
		}
		if !record.ValuesEqual(stored, own) {
			return errx.New(
				fmt.Sprintf("stale update for %s %v", s.schema.Name(), id),
				errx.WithCode(repokit.CodeConflict),
				errx.WithType(errx.T_Conflict),
				errx.WithDetails(errx.D{
					"record":         s.schema.Name(),
					"id":             id,
					"stored_version": stored,
					"given_version":  own,
				}),
			)
		}
		if err := ver.SetValue(rec, own.(int64)+1); err != nil {
			return err
		}
	}

	s.rows[idx] = s.clone(*rec)
	return nil
}

// Len reports the number of stored records.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Reset drops all records and restarts identity assignment.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
	s.index = make(map[any]int)
	s.seq = 0
}

// match collects the indexes of rows satisfying pred, in insertion order.
// Callers must hold at least a read lock.
func (s *Store[T]) match(pred predicate.Expr) ([]int, error) {
	hits := make([]int, 0, len(s.rows))
	for i := range s.rows {
		if pred != nil {
			ok, err := predicate.Evaluate(pred, &s.rows[i])
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		hits = append(hits, i)
	}
	return hits, nil
}

func (s *Store[T]) less(a, b *T, orders []repokit.Order) bool {
	for _, o := range orders {
		attr, _ := s.schema.Attribute(o.Attr)

		va, pa, _ := attr.ValueOf(a)
		vb, pb, _ := attr.ValueOf(b)

		if !pa || !pb {
			if pa == pb {
				continue
			}
			// Absent sorts as the largest value: last ascending, first
			// descending.
			if o.Desc {
				return !pa
			}
			return !pb
		}

		if record.ValuesEqual(va, vb) {
			continue
		}
		if o.Desc {
			return record.ValuesLess(vb, va)
		}
		return record.ValuesLess(va, vb)
	}
	return false
}

func (s *Store[T]) checkOrders(orders []repokit.Order) error {
	for _, o := range orders {
		if _, ok := s.schema.Attribute(o.Attr); !ok {
			return errx.New(
				fmt.Sprintf("unknown sort attribute %q on record %s", o.Attr, s.schema.Name()),
				errx.WithCode(predicate.CodeInvalidAttribute),
				errx.WithType(errx.T_Validation),
				errx.WithDetails(errx.D{"attribute": o.Attr, "record": s.schema.Name()}),
			)
		}
	}
	return nil
}

// clone copies rec with every schema attribute re-boxed, so nullable fields
// stop sharing pointers with the source.
func (s *Store[T]) clone(rec T) T {
	out := rec
	for _, a := range s.schema.Attributes() {
		v, present, _ := a.ValueOf(rec)
		if !present {
			_ = a.SetValue(&out, nil)
			continue
		}
		_ = a.SetValue(&out, v)
	}
	return out
}

func (s *Store[T]) notFound(id any) error {
	return errx.New(
		fmt.Sprintf("%s not found", s.schema.Name()),
		errx.WithCode(repokit.CodeNotFound),
		errx.WithType(errx.T_NotFound),
		errx.WithDetails(errx.D{"record": s.schema.Name(), "id": id}),
	)
}

func isZeroIdentity(id any) bool {
	switch v := id.(type) {
	case int64:
		return v == 0
	case string:
		return v == ""
	default:
		return false
	}
}
