package predicate

import (
	"github.com/code19m/errx"

	"github.com/rise-and-shine/repokit/record"
)

// Visitor receives the structure of an expression tree so a storage
// collaborator can build its native query form without executing the
// predicate in process.
//
// Walk drives the visitor in depth-first, post-order fashion: children are
// always visited before the callback that combines them, and sibling order
// matches construction order. A typical implementation keeps a stack of
// partial results; And and Or pop the n most recent results and push one
// combined result, Not replaces the most recent result with its negation.
type Visitor interface {
	// Leaf emits one attribute comparison. The literal arrives in
	// normalized form (string, int64, float64, bool or time.Time).
	Leaf(attr *record.Attribute, op Op, value any) error

	// And combines the n most recently emitted results into a conjunction.
	And(n int) error

	// Or combines the n most recently emitted results into a disjunction.
	Or(n int) error

	// Not negates the most recently emitted result.
	Not() error
}

// Walk traverses the expression depth-first and feeds it to the visitor.
// Traversal stops at the first visitor error.
func Walk(e Expr, v Visitor) error {
	switch n := e.(type) {
	case *leaf:
		return v.Leaf(n.attr, n.op, n.value)

	case *andExpr:
		for _, c := range n.children {
			if err := Walk(c, v); err != nil {
				return err
			}
		}
		return v.And(len(n.children))

	case *orExpr:
		for _, c := range n.children {
			if err := Walk(c, v); err != nil {
				return err
			}
		}
		return v.Or(len(n.children))

	case *notExpr:
		if err := Walk(n.child, v); err != nil {
			return err
		}
		return v.Not()

	default:
		return errx.New("[predicate]: unknown expression node")
	}
}
