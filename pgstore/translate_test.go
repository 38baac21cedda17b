package pgstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/rise-and-shine/repokit/predicate"
)

func TestTranslate(t *testing.T) {
	b := predicate.NewBuilder(issueSchema())

	tests := []struct {
		name     string
		expr     predicate.Expr
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "eq",
			expr:     predicate.Must(b.Eq("title", "ship it")),
			wantSQL:  "(? = ?)",
			wantArgs: []any{bun.Ident("title"), "ship it"},
		},
		{
			name:     "ne",
			expr:     predicate.Must(b.Ne("done", true)),
			wantSQL:  "(? <> ?)",
			wantArgs: []any{bun.Ident("done"), true},
		},
		{
			name:     "gt normalizes the literal",
			expr:     predicate.Must(b.Gt("priority", 2)),
			wantSQL:  "(? > ?)",
			wantArgs: []any{bun.Ident("priority"), int64(2)},
		},
		{
			name:     "lt",
			expr:     predicate.Must(b.Lt("priority", 5)),
			wantSQL:  "(? < ?)",
			wantArgs: []any{bun.Ident("priority"), int64(5)},
		},
		{
			name:     "eq on a nullable column gets a null guard",
			expr:     predicate.Must(b.Eq("assignee", "carol")),
			wantSQL:  "(? IS NOT NULL AND ? = ?)",
			wantArgs: []any{bun.Ident("assignee"), bun.Ident("assignee"), "carol"},
		},
		{
			name:     "prefix becomes an anchored like",
			expr:     predicate.Must(b.Prefix("title", "90% done")),
			wantSQL:  "(? LIKE ? ESCAPE ?)",
			wantArgs: []any{bun.Ident("title"), `90\% done%`, `\`},
		},
		{
			name:     "prefix on a nullable column",
			expr:     predicate.Must(b.Prefix("assignee", "car")),
			wantSQL:  "(? IS NOT NULL AND ? LIKE ? ESCAPE ?)",
			wantArgs: []any{bun.Ident("assignee"), bun.Ident("assignee"), "car%", `\`},
		},
		{
			name: "combinators keep construction order",
			expr: predicate.And(
				predicate.Must(b.Eq("title", "ship it")),
				predicate.Not(predicate.Or(
					predicate.Must(b.Gt("priority", 4)),
					predicate.Must(b.Lt("priority", 2)),
				)),
			),
			wantSQL: "((? = ?) AND NOT ((? > ?) OR (? < ?)))",
			wantArgs: []any{
				bun.Ident("title"), "ship it",
				bun.Ident("priority"), int64(4),
				bun.Ident("priority"), int64(2),
			},
		},
		{
			name:     "negated leaf",
			expr:     predicate.Not(predicate.Must(b.Eq("done", false))),
			wantSQL:  "NOT (? = ?)",
			wantArgs: []any{bun.Ident("done"), false},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sql, args, err := translate(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.wantSQL, sql)
			assert.Equal(t, tc.wantArgs, args)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "carol", escapeLike("carol"))
	assert.Equal(t, `50\%`, escapeLike("50%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
	assert.Equal(t, `\\\%\_`, escapeLike(`\%_`))
}
