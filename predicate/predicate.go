// Package predicate builds boolean filter conditions over record attributes
// as immutable expression trees.
//
// A predicate is pure data rather than an opaque function: the same tree can
// be evaluated in memory against a record value and walked depth-first by a
// storage collaborator to build its native query form. Construction goes
// through a schema-bound Builder and validates eagerly: unknown attributes
// fail with CodeInvalidAttribute, incompatible operators or literals fail
// with record.CodeTypeMismatch. Malformed conditions never reach storage.
//
//	users := record.MustInfer[User]()
//	b := predicate.NewBuilder(users)
//
//	named, err := b.Eq("username", "johndoe")
//	admin, err := b.Prefix("email", "admin")
//	expr := predicate.And(named, predicate.Not(admin))
//
// Expressions are immutable and safe to share between goroutines. Evaluation
// follows three-state-free boolean semantics: any comparison against an
// absent (nil) attribute value is false. An explicit is-absent operator is
// intentionally not part of the operator set; Op is open for storage
// collaborators that add one.
package predicate

import (
	"strings"
)

// Op identifies a leaf comparison operator.
type Op string

const (
	// OpEq matches values equal to the literal.
	OpEq Op = "eq"
	// OpNe matches values not equal to the literal.
	OpNe Op = "ne"
	// OpGt matches values ordered strictly after the literal.
	OpGt Op = "gt"
	// OpLt matches values ordered strictly before the literal.
	OpLt Op = "lt"
	// OpPrefix matches string values starting with the literal.
	OpPrefix Op = "prefix"
)

// Expr is an immutable predicate expression tree. Implementations live in
// this package only; trees are built through a Builder and the And, Or and
// Not combinators.
type Expr interface {
	// String renders a stable debug form of the expression. It is meant
	// for logs and error messages, never for parsing.
	String() string

	isExpr()
}

// And combines expressions so that all of them must hold.
// Operand order is preserved for translation.
func And(first Expr, rest ...Expr) Expr {
	if len(rest) == 0 {
		mustNotBeNil(first)
		return first
	}
	return &andExpr{children: children(first, rest)}
}

// Or combines expressions so that at least one of them must hold.
// Operand order is preserved for translation.
func Or(first Expr, rest ...Expr) Expr {
	if len(rest) == 0 {
		mustNotBeNil(first)
		return first
	}
	return &orExpr{children: children(first, rest)}
}

// Not negates an expression.
func Not(x Expr) Expr {
	mustNotBeNil(x)
	return &notExpr{child: x}
}

// Must panics when err is non-nil and returns the expression otherwise.
// Intended for statically known-good predicates, typically in tests:
//
//	expr := predicate.Must(b.Eq("username", "johndoe"))
func Must(e Expr, err error) Expr {
	if err != nil {
		panic(err)
	}
	return e
}

func children(first Expr, rest []Expr) []Expr {
	mustNotBeNil(first)
	all := make([]Expr, 0, len(rest)+1)
	all = append(all, first)
	for _, e := range rest {
		mustNotBeNil(e)
		all = append(all, e)
	}
	return all
}

func mustNotBeNil(e Expr) {
	if e == nil {
		panic("predicate: nil expression")
	}
}

type andExpr struct {
	children []Expr
}

func (n *andExpr) isExpr() {}

func (n *andExpr) String() string {
	return renderGroup(n.children, " AND ")
}

type orExpr struct {
	children []Expr
}

func (n *orExpr) isExpr() {}

func (n *orExpr) String() string {
	return renderGroup(n.children, " OR ")
}

type notExpr struct {
	child Expr
}

func (n *notExpr) isExpr() {}

func (n *notExpr) String() string {
	s := n.child.String()
	if _, ok := n.child.(*leaf); ok {
		s = "(" + s + ")"
	}
	return "NOT " + s
}

func renderGroup(exprs []Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}
