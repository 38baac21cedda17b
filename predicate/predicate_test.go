// Package predicate_test contains tests for the predicate package.
package predicate_test

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/repokit/predicate"
	"github.com/rise-and-shine/repokit/record"
)

type account struct {
	ID       int64     `record:"id,pk"`
	Username string    `record:"username"`
	Email    string    `record:"email"`
	Nickname *string   `record:"nickname"`
	Age      int       `record:"age"`
	Joined   time.Time `record:"joined"`
	Active   bool      `record:"active"`
}

func builder(t *testing.T) predicate.Builder {
	t.Helper()
	return predicate.NewBuilder(record.MustInfer[account]())
}

func TestBuilderValidation(t *testing.T) {
	b := builder(t)

	tests := []struct {
		name     string
		attr     string
		op       predicate.Op
		value    any
		wantCode string
	}{
		{name: "unknown attribute", attr: "last_name", op: predicate.OpEq, value: "x",
			wantCode: predicate.CodeInvalidAttribute},
		{name: "prefix on int attribute", attr: "age", op: predicate.OpPrefix, value: "1",
			wantCode: record.CodeTypeMismatch},
		{name: "greater-than on bool attribute", attr: "active", op: predicate.OpGt, value: true,
			wantCode: record.CodeTypeMismatch},
		{name: "literal of the wrong kind", attr: "age", op: predicate.OpEq, value: "thirty",
			wantCode: record.CodeTypeMismatch},
		{name: "nil literal", attr: "username", op: predicate.OpEq, value: nil,
			wantCode: record.CodeTypeMismatch},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.Leaf(tc.attr, tc.op, tc.value)
			require.Error(t, err)
			assert.True(t, errx.IsCodeIn(err, tc.wantCode), "want code %s, got %v", tc.wantCode, err)
		})
	}

	t.Run("unsupported operator", func(t *testing.T) {
		_, err := b.Leaf("username", predicate.Op("between"), "x")
		assert.Error(t, err)
	})

	t.Run("valid leaf", func(t *testing.T) {
		e, err := b.Eq("username", "johndoe")
		require.NoError(t, err)
		assert.Equal(t, `username = "johndoe"`, e.String())
	})
}

func TestEvaluate(t *testing.T) {
	b := builder(t)
	nick := "johnny"

	rec := account{
		ID:       1,
		Username: "johndoe",
		Email:    "user@x.com",
		Nickname: &nick,
		Age:      30,
		Joined:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Active:   true,
	}

	tests := []struct {
		name     string
		expr     predicate.Expr
		expected bool
	}{
		{
			name:     "equals matches",
			expr:     predicate.Must(b.Eq("username", "johndoe")),
			expected: true,
		},
		{
			name:     "equals misses",
			expr:     predicate.Must(b.Eq("username", "janedoe")),
			expected: false,
		},
		{
			name:     "not-equals",
			expr:     predicate.Must(b.Ne("username", "janedoe")),
			expected: true,
		},
		{
			name:     "starts-with matches",
			expr:     predicate.Must(b.Prefix("email", "user@")),
			expected: true,
		},
		{
			name:     "greater-than on int",
			expr:     predicate.Must(b.Gt("age", 18)),
			expected: true,
		},
		{
			name:     "less-than on int misses",
			expr:     predicate.Must(b.Lt("age", 18)),
			expected: false,
		},
		{
			name:     "greater-than on time",
			expr:     predicate.Must(b.Gt("joined", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))),
			expected: true,
		},
		{
			name: "and combines",
			expr: predicate.And(
				predicate.Must(b.Eq("username", "johndoe")),
				predicate.Must(b.Gt("age", 18)),
			),
			expected: true,
		},
		{
			name: "or takes either side",
			expr: predicate.Or(
				predicate.Must(b.Eq("username", "janedoe")),
				predicate.Must(b.Eq("username", "johndoe")),
			),
			expected: true,
		},
		{
			name:     "not negates",
			expr:     predicate.Not(predicate.Must(b.Eq("active", true))),
			expected: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := predicate.Evaluate(tc.expr, rec)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}

	t.Run("wrong record type", func(t *testing.T) {
		_, err := predicate.Evaluate(predicate.Must(b.Eq("username", "johndoe")), struct{}{})
		assert.Error(t, err)
	})
}

// TestEvaluateUpdateScenario covers the canonical lookup condition: username
// equals a value and email does not start with a reserved prefix.
func TestEvaluateUpdateScenario(t *testing.T) {
	b := builder(t)

	expr := predicate.And(
		predicate.Must(b.Eq("username", "johndoe")),
		predicate.Not(predicate.Must(b.Prefix("email", "admin"))),
	)

	regular := account{Username: "johndoe", Email: "user@x.com"}
	admin := account{Username: "johndoe", Email: "admin@x.com"}

	got, err := predicate.Evaluate(expr, regular)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = predicate.Evaluate(expr, admin)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEvaluateAbsentAttribute(t *testing.T) {
	b := builder(t)
	rec := account{Username: "johndoe"} // Nickname is nil

	tests := []struct {
		name     string
		expr     predicate.Expr
		expected bool
	}{
		{name: "equals against absent is false", expr: predicate.Must(b.Eq("nickname", "johnny")), expected: false},
		{name: "not-equals against absent is false", expr: predicate.Must(b.Ne("nickname", "johnny")), expected: false},
		{name: "starts-with against absent is false", expr: predicate.Must(b.Prefix("nickname", "j")), expected: false},
		{name: "greater-than against absent is false", expr: predicate.Must(b.Gt("nickname", "a")), expected: false},
		{
			name:     "not flips the absent result",
			expr:     predicate.Not(predicate.Must(b.Prefix("nickname", "j"))),
			expected: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := predicate.Evaluate(tc.expr, rec)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestString(t *testing.T) {
	b := builder(t)

	expr := predicate.And(
		predicate.Must(b.Eq("username", "johndoe")),
		predicate.Not(predicate.Must(b.Prefix("email", "admin"))),
		predicate.Or(
			predicate.Must(b.Gt("age", 18)),
			predicate.Must(b.Eq("active", true)),
		),
	)

	assert.Equal(t,
		`(username = "johndoe" AND NOT (email STARTS WITH "admin") AND (age > 18 OR active = true))`,
		expr.String())
}

// stackVisitor is an independent re-implementation of leaf evaluation used to
// check that Walk presents the tree in an order that reproduces Evaluate.
type stackVisitor struct {
	rec   account
	stack []bool
}

func (v *stackVisitor) Leaf(attr *record.Attribute, op predicate.Op, value any) error {
	val, present, err := attr.ValueOf(v.rec)
	if err != nil {
		return err
	}

	var ok bool
	if present {
		switch op {
		case predicate.OpEq:
			ok = record.ValuesEqual(val, value)
		case predicate.OpNe:
			ok = !record.ValuesEqual(val, value)
		case predicate.OpGt:
			ok = record.ValuesLess(value, val)
		case predicate.OpLt:
			ok = record.ValuesLess(val, value)
		case predicate.OpPrefix:
			s, _ := val.(string)
			p, _ := value.(string)
			ok = strings.HasPrefix(s, p)
		}
	}

	v.stack = append(v.stack, ok)
	return nil
}

func (v *stackVisitor) And(n int) error {
	combined := true
	for _, b := range v.pop(n) {
		combined = combined && b
	}
	v.stack = append(v.stack, combined)
	return nil
}

func (v *stackVisitor) Or(n int) error {
	combined := false
	for _, b := range v.pop(n) {
		combined = combined || b
	}
	v.stack = append(v.stack, combined)
	return nil
}

func (v *stackVisitor) Not() error {
	top := v.pop(1)
	v.stack = append(v.stack, !top[0])
	return nil
}

func (v *stackVisitor) pop(n int) []bool {
	popped := v.stack[len(v.stack)-n:]
	v.stack = v.stack[:len(v.stack)-n]
	return popped
}

// TestWalkMatchesEvaluate checks in-memory/translated consistency with a
// stack-based visitor acting as a stand-in storage collaborator.
func TestWalkMatchesEvaluate(t *testing.T) {
	b := builder(t)
	nick := "johnny"

	records := []account{
		{Username: "johndoe", Email: "user@x.com", Age: 30, Active: true, Nickname: &nick},
		{Username: "johndoe", Email: "admin@x.com", Age: 16},
		{Username: "janedoe", Email: "jane@x.com", Age: 44, Active: true},
		{Username: "ghost"},
	}

	exprs := []predicate.Expr{
		predicate.Must(b.Eq("username", "johndoe")),
		predicate.And(
			predicate.Must(b.Eq("username", "johndoe")),
			predicate.Not(predicate.Must(b.Prefix("email", "admin"))),
		),
		predicate.Or(
			predicate.Must(b.Gt("age", 40)),
			predicate.Must(b.Eq("active", true)),
		),
		predicate.Not(predicate.Or(
			predicate.Must(b.Eq("nickname", "johnny")),
			predicate.Must(b.Lt("age", 20)),
		)),
	}

	for _, expr := range exprs {
		for _, rec := range records {
			want, err := predicate.Evaluate(expr, rec)
			require.NoError(t, err)

			v := &stackVisitor{rec: rec}
			require.NoError(t, predicate.Walk(expr, v))
			require.Len(t, v.stack, 1)

			assert.Equal(t, want, v.stack[0], "expr %s on %+v", expr, rec)
		}
	}
}

func TestWalkOrder(t *testing.T) {
	b := builder(t)

	expr := predicate.And(
		predicate.Must(b.Eq("username", "johndoe")),
		predicate.Not(predicate.Must(b.Prefix("email", "admin"))),
	)

	var trace []string
	v := &traceVisitor{trace: &trace}
	require.NoError(t, predicate.Walk(expr, v))

	assert.Equal(t, []string{
		"leaf username eq",
		"leaf email prefix",
		"not",
		"and 2",
	}, trace)
}

type traceVisitor struct {
	trace *[]string
}

func (v *traceVisitor) Leaf(attr *record.Attribute, op predicate.Op, _ any) error {
	*v.trace = append(*v.trace, "leaf "+attr.Name+" "+string(op))
	return nil
}

func (v *traceVisitor) And(n int) error {
	*v.trace = append(*v.trace, "and "+strconv.Itoa(n))
	return nil
}

func (v *traceVisitor) Or(n int) error {
	*v.trace = append(*v.trace, "or "+strconv.Itoa(n))
	return nil
}

func (v *traceVisitor) Not() error {
	*v.trace = append(*v.trace, "not")
	return nil
}
