// Package pgstore implements repokit.Store on PostgreSQL using the bun ORM.
//
// Record types carry bun tags next to their record tags, and attribute
// names double as column names:
//
//	type User struct {
//		bun.BaseModel `bun:"table:users"`
//
//		ID    int64  `bun:"id,pk,autoincrement" record:"id,pk"`
//		Email string `bun:"email"               record:"email"`
//		Rev   int64  `bun:"rev"                 record:"rev,version"`
//	}
//
// Identity is assigned by the database on insert: integer keys through an
// identity or serial column, string keys through a column default such as
// gen_random_uuid(). Records arriving with a pre-set identity are rejected.
//
// Predicates are translated to parameterized WHERE clauses instead of being
// evaluated in process, and optimistic concurrency runs through a version
// guard on the UPDATE statement, so two handles racing on the same row
// produce a CONFLICT rather than a lost write.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/code19m/errx"
	"github.com/uptrace/bun"

	"github.com/rise-and-shine/repokit"
	"github.com/rise-and-shine/repokit/predicate"
	"github.com/rise-and-shine/repokit/record"
)

// Store is a PostgreSQL implementation of repokit.Store[T].
type Store[T any] struct {
	idb        bun.IDB
	schema     *record.Schema
	schemaName string
}

// Option configures a Store.
type Option func(*config)

type config struct {
	schemaName string
}

// WithSchemaName sets the PostgreSQL schema the store's table lives in.
// The default is "public".
func WithSchemaName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.schemaName = name
		}
	}
}

// New builds a store over the given bun handle, which may be a *bun.DB or a
// transaction. T must be a valid record type.
func New[T any](idb bun.IDB, opts ...Option) (*Store[T], error) {
	if idb == nil {
		return nil, errx.New("[pgstore]: idb must not be nil")
	}

	schema, err := record.Infer[T]()
	if err != nil {
		return nil, errx.Wrap(err)
	}

	cfg := config{schemaName: "public"}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Store[T]{
		idb:        idb,
		schema:     schema,
		schemaName: cfg.schemaName,
	}, nil
}

// MustNew is like New but panics on error.
func MustNew[T any](idb bun.IDB, opts ...Option) *Store[T] {
	s, err := New[T](idb, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// WithTx returns a store bound to the given transaction handle. A nil idb
// returns the store unchanged, so optional transactions compose without
// branching at call sites.
func (s *Store[T]) WithTx(idb bun.IDB) *Store[T] {
	if idb == nil {
		return s
	}
	bound := *s
	bound.idb = idb
	return &bound
}

// Insert stores rec and writes the database-assigned identity back into it.
// When the schema has a version attribute it starts at 1.
func (s *Store[T]) Insert(ctx context.Context, rec *T) error {
	if rec == nil {
		return errx.New("[pgstore]: record must not be nil")
	}

	pk := s.schema.PK()
	cur, _, err := pk.ValueOf(rec)
	if err != nil {
		return err
	}
	if !isZeroIdentity(cur) {
		return errx.New("[pgstore]: identity is assigned by the database on insert",
			errx.WithDetails(errx.D{"record": s.schema.Name(), "id": cur}))
	}

	if ver := s.schema.Version(); ver != nil {
		if err := ver.SetValue(rec, int64(1)); err != nil {
			return err
		}
	}

	q := s.insertQuery(rec)

	if _, err := q.Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return errx.New(
				fmt.Sprintf("conflict while inserting %s", s.schema.Name()),
				errx.WithCode(repokit.CodeConflict),
				errx.WithType(errx.T_Conflict),
				errx.WithDetails(pgDetails(err, q)),
			)
		}
		return errx.Wrap(err, errx.WithDetails(pgDetails(err, q)))
	}

	return nil
}

// Fetch loads the record with the given identity.
func (s *Store[T]) Fetch(ctx context.Context, id any) (*T, error) {
	norm, err := s.schema.PK().Normalize(id)
	if err != nil {
		return nil, err
	}

	rec := new(T)
	q := s.applySelectTableExpr(s.idb.NewSelect().Model(rec)).
		Where("? = ?", bun.Ident(s.schema.PK().Name), norm)

	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.notFound(norm)
		}
		return nil, errx.Wrap(err, errx.WithDetails(pgDetails(err, q)))
	}

	return rec, nil
}

// Select returns the records matching pred in the requested order. A nil
// pred matches everything. The primary key is always appended as the final
// sort key: it is the natural order when no orders are given and keeps
// paginated windows stable otherwise. PostgreSQL sorts NULL as the largest
// value, which matches how absent attributes order in memstore.
func (s *Store[T]) Select(ctx context.Context, pred predicate.Expr, opts repokit.SelectOptions) ([]T, error) {
	recs := make([]T, 0)
	q, err := s.selectQuery(&recs, pred, opts)
	if err != nil {
		return nil, err
	}

	if err := q.Scan(ctx); err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(pgDetails(err, q)))
	}

	return recs, nil
}

// Count returns the number of records matching pred. A nil pred counts
// everything.
func (s *Store[T]) Count(ctx context.Context, pred predicate.Expr) (int, error) {
	q := s.applySelectTableExpr(s.idb.NewSelect().Model((*T)(nil)))

	q, err := s.applyPredicate(q, pred)
	if err != nil {
		return 0, err
	}

	count, err := q.Count(ctx)
	if err != nil {
		return 0, errx.Wrap(err, errx.WithDetails(pgDetails(err, q)))
	}

	return count, nil
}

// Persist writes rec, which must have been loaded from this store, back to
// its row. With a version attribute the UPDATE is guarded by the version
// the caller read; on success the bumped version is left in rec, on any
// failure the caller's version is restored.
func (s *Store[T]) Persist(ctx context.Context, rec *T) error {
	if rec == nil {
		return errx.New("[pgstore]: record must not be nil")
	}

	pk := s.schema.PK()
	id, _, err := pk.ValueOf(rec)
	if err != nil {
		return err
	}

	ver := s.schema.Version()
	var prev int64
	if ver != nil {
		cur, _, err := ver.ValueOf(rec)
		if err != nil {
			return err
		}
		prev = cur.(int64)
		// The model carries the bumped version into SET; the WHERE guard
		// still compares against the version the caller read.
		if err := ver.SetValue(rec, prev+1); err != nil {
			return err
		}
	}

	q := s.updateQuery(rec, id, prev)

	res, err := q.Exec(ctx)
	if err != nil {
		s.restoreVersion(rec, prev)
		if isUniqueViolation(err) {
			return errx.New(
				fmt.Sprintf("conflict while persisting %s %v", s.schema.Name(), id),
				errx.WithCode(repokit.CodeConflict),
				errx.WithType(errx.T_Conflict),
				errx.WithDetails(pgDetails(err, q)),
			)
		}
		return errx.Wrap(err, errx.WithDetails(pgDetails(err, q)))
	}

	rows, err := res.RowsAffected()
	if err != nil {
		s.restoreVersion(rec, prev)
		return errx.Wrap(err)
	}
	if rows == 0 {
		s.restoreVersion(rec, prev)
		return s.persistConflict(ctx, id, prev)
	}

	return nil
}

// persistConflict builds the CONFLICT error for a guarded UPDATE that
// matched no row, probing the row to tell a deleted record from a stale
// version.
func (s *Store[T]) persistConflict(ctx context.Context, id any, given int64) error {
	gone := errx.New(
		fmt.Sprintf("%s %v is gone, likely deleted concurrently", s.schema.Name(), id),
		errx.WithCode(repokit.CodeConflict),
		errx.WithType(errx.T_Conflict),
		errx.WithDetails(errx.D{"record": s.schema.Name(), "id": id}),
	)

	ver := s.schema.Version()
	if ver == nil {
		return gone
	}

	var stored int64
	err := s.applySelectTableExpr(s.idb.NewSelect().Model((*T)(nil))).
		ColumnExpr("?", bun.Ident(ver.Name)).
		Where("? = ?", bun.Ident(s.schema.PK().Name), id).
		Scan(ctx, &stored)
	if errors.Is(err, sql.ErrNoRows) {
		return gone
	}
	if err != nil {
		return errx.Wrap(err)
	}

	return errx.New(
		fmt.Sprintf("stale update for %s %v", s.schema.Name(), id),
		errx.WithCode(repokit.CodeConflict),
		errx.WithType(errx.T_Conflict),
		errx.WithDetails(errx.D{
			"record":         s.schema.Name(),
			"id":             id,
			"stored_version": stored,
			"given_version":  given,
		}),
	)
}

func (s *Store[T]) restoreVersion(rec *T, prev int64) {
	if ver := s.schema.Version(); ver != nil {
		_ = ver.SetValue(rec, prev)
	}
}

// insertQuery builds the INSERT for rec. The identity column is left to the
// database and the full row is scanned back through RETURNING.
func (s *Store[T]) insertQuery(rec *T) *bun.InsertQuery {
	return s.applyInsertTableExpr(s.idb.NewInsert().Model(rec).Returning("*"))
}

// selectQuery builds the SELECT serving both Select and Count. dest is the
// scan destination, typically *[]T or a typed nil for count queries.
func (s *Store[T]) selectQuery(dest any, pred predicate.Expr, opts repokit.SelectOptions) (*bun.SelectQuery, error) {
	if err := s.checkOrders(opts.Orders); err != nil {
		return nil, err
	}

	q := s.applySelectTableExpr(s.idb.NewSelect().Model(dest))

	q, err := s.applyPredicate(q, pred)
	if err != nil {
		return nil, err
	}

	for _, o := range opts.Orders {
		if o.Desc {
			q = q.OrderExpr("? DESC", bun.Ident(o.Attr))
		} else {
			q = q.OrderExpr("? ASC", bun.Ident(o.Attr))
		}
	}
	q = q.OrderExpr("? ASC", bun.Ident(s.schema.PK().Name))

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	return q, nil
}

// updateQuery builds the guarded UPDATE for Persist. rec already carries the
// bumped version; prev is the version the WHERE clause compares against.
func (s *Store[T]) updateQuery(rec *T, id any, prev int64) *bun.UpdateQuery {
	q := s.applyUpdateTableExpr(s.idb.NewUpdate().Model(rec)).
		Where("? = ?", bun.Ident(s.schema.PK().Name), id).
		Returning("*")
	if ver := s.schema.Version(); ver != nil {
		q = q.Where("? = ?", bun.Ident(ver.Name), prev)
	}
	return q
}

func (s *Store[T]) applyPredicate(q *bun.SelectQuery, pred predicate.Expr) (*bun.SelectQuery, error) {
	if pred == nil {
		return q, nil
	}
	frag, args, err := translate(pred)
	if err != nil {
		return nil, err
	}
	return q.Where(frag, args...), nil
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

func (s *Store[T]) applySelectTableExpr(q *bun.SelectQuery) *bun.SelectQuery {
	table := q.GetModel().(bun.TableModel).Table() //nolint:errcheck // model is always a table model
	return q.ModelTableExpr("?.? AS ?", bun.Ident(s.schemaName), bun.Ident(table.Name), bun.Ident(table.Alias))
}

func (s *Store[T]) applyInsertTableExpr(q *bun.InsertQuery) *bun.InsertQuery {
	table := q.GetModel().(bun.TableModel).Table() //nolint:errcheck // model is always a table model
	return q.ModelTableExpr("?.? AS ?", bun.Ident(s.schemaName), bun.Ident(table.Name), bun.Ident(table.Alias))
}

func (s *Store[T]) applyUpdateTableExpr(q *bun.UpdateQuery) *bun.UpdateQuery {
	table := q.GetModel().(bun.TableModel).Table() //nolint:errcheck // model is always a table model
	return q.ModelTableExpr("?.? AS ?", bun.Ident(s.schemaName), bun.Ident(table.Name), bun.Ident(table.Alias))
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
