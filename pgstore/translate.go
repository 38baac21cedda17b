package pgstore

import (
	"strings"

	"github.com/code19m/errx"
	"github.com/uptrace/bun"

	"github.com/rise-and-shine/repokit/predicate"
	"github.com/rise-and-shine/repokit/record"
)

// likeEscape is the escape character used in translated LIKE patterns.
const likeEscape = `\`

// fragment is one translated boolean term plus its bind arguments. Column
// names travel as bun.Ident args so the formatter quotes them.
type fragment struct {
	sql  string
	args []any
}

// translator turns a predicate tree into one parameterized SQL boolean
// expression. It implements predicate.Visitor over a stack of fragments:
// every leaf pushes one fragment and the combinators fold the top of the
// stack, so the post-order walk leaves exactly one fragment behind.
type translator struct {
	stack []fragment
}

// translate renders pred as a parenthesized WHERE condition with bind args.
func translate(pred predicate.Expr) (string, []any, error) {
	t := &translator{}
	if err := predicate.Walk(pred, t); err != nil {
		return "", nil, errx.Wrap(err)
	}
	if len(t.stack) != 1 {
		return "", nil, errx.New("[pgstore]: translation left an unbalanced fragment stack")
	}
	return t.stack[0].sql, t.stack[0].args, nil
}

// Leaf implements predicate.Visitor.
func (t *translator) Leaf(attr *record.Attribute, op predicate.Op, value any) error {
	switch op {
	case predicate.OpEq:
		t.pushCompare(attr, "=", value)
	case predicate.OpNe:
		t.pushCompare(attr, "<>", value)
	case predicate.OpGt:
		t.pushCompare(attr, ">", value)
	case predicate.OpLt:
		t.pushCompare(attr, "<", value)
	case predicate.OpPrefix:
		t.pushPrefix(attr, value)
	default:
		return errx.New("[pgstore]: operator has no SQL translation",
			errx.WithDetails(errx.D{"operator": string(op), "attribute": attr.Name}))
	}
	return nil
}

// And implements predicate.Visitor.
func (t *translator) And(n int) error {
	return t.fold(n, " AND ")
}

// Or implements predicate.Visitor.
func (t *translator) Or(n int) error {
	return t.fold(n, " OR ")
}

// Not implements predicate.Visitor.
func (t *translator) Not() error {
	if len(t.stack) == 0 {
		return errx.New("[pgstore]: translation underflow on NOT")
	}
	top := &t.stack[len(t.stack)-1]
	top.sql = "NOT " + top.sql
	return nil
}

// pushCompare emits a comparison term. Nullable columns get an IS NOT NULL
// guard: a bare comparison against NULL yields NULL, and a NOT above it
// would then admit rows the predicate excludes. The guard collapses SQL's
// three-valued logic into the plain true/false of in-memory evaluation.
func (t *translator) pushCompare(attr *record.Attribute, op string, value any) {
	if attr.Nullable {
		t.stack = append(t.stack, fragment{
			sql:  "(? IS NOT NULL AND ? " + op + " ?)",
			args: []any{bun.Ident(attr.Name), bun.Ident(attr.Name), value},
		})
		return
	}
	t.stack = append(t.stack, fragment{
		sql:  "(? " + op + " ?)",
		args: []any{bun.Ident(attr.Name), value},
	})
}

// pushPrefix emits a starts-with term as an anchored LIKE. The literal is
// escaped so %, _ and the escape character in it match themselves.
func (t *translator) pushPrefix(attr *record.Attribute, value any) {
	pattern := escapeLike(value.(string)) + "%"
	if attr.Nullable {
		t.stack = append(t.stack, fragment{
			sql:  "(? IS NOT NULL AND ? LIKE ? ESCAPE ?)",
			args: []any{bun.Ident(attr.Name), bun.Ident(attr.Name), pattern, likeEscape},
		})
		return
	}
	t.stack = append(t.stack, fragment{
		sql:  "(? LIKE ? ESCAPE ?)",
		args: []any{bun.Ident(attr.Name), pattern, likeEscape},
	})
}

// fold replaces the n most recent fragments with one joined by sep.
func (t *translator) fold(n int, sep string) error {
	if len(t.stack) < n {
		return errx.New("[pgstore]: translation underflow on " + strings.TrimSpace(sep))
	}

	tail := t.stack[len(t.stack)-n:]
	parts := make([]string, 0, n)
	var args []any
	for _, f := range tail {
		parts = append(parts, f.sql)
		args = append(args, f.args...)
	}

	t.stack = t.stack[:len(t.stack)-n]
	t.stack = append(t.stack, fragment{
		sql:  "(" + strings.Join(parts, sep) + ")",
		args: args,
	})
	return nil
}

// escapeLike makes s match itself inside a LIKE pattern.
func escapeLike(s string) string {
	r := strings.NewReplacer(
		likeEscape, likeEscape+likeEscape,
		"%", likeEscape+"%",
		"_", likeEscape+"_",
	)
	return r.Replace(s)
}
