package predicate

import (
	"strings"

	"github.com/code19m/errx"

	"github.com/rise-and-shine/repokit/record"
)

// Evaluate applies the expression to a record value in memory. The record
// must be of the schema type the expression was built against (or a pointer
// to it). Evaluation is deterministic and side-effect-free.
//
// Comparisons against an absent attribute value (nil pointer field) are
// always false, for every operator. NOT still negates that result, which is
// what keeps in-memory evaluation aligned with null-guarded translations.
func Evaluate(e Expr, rec any) (bool, error) {
	switch n := e.(type) {
	case *leaf:
		return n.eval(rec)

	case *andExpr:
		for _, c := range n.children {
			ok, err := Evaluate(c, rec)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case *orExpr:
		for _, c := range n.children {
			ok, err := Evaluate(c, rec)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case *notExpr:
		ok, err := Evaluate(n.child, rec)
		if err != nil {
			return false, err
		}
		return !ok, nil

	default:
		return false, errx.New("[predicate]: unknown expression node")
	}
}

func (n *leaf) eval(rec any) (bool, error) {
	v, present, err := n.attr.ValueOf(rec)
	if err != nil {
		return false, err
	}
	if !present {
		return false, nil
	}

	switch n.op {
	case OpEq:
		return record.ValuesEqual(v, n.value), nil
	case OpNe:
		return !record.ValuesEqual(v, n.value), nil
	case OpGt:
		return record.ValuesLess(n.value, v), nil
	case OpLt:
		return record.ValuesLess(v, n.value), nil
	case OpPrefix:
		s, _ := v.(string)
		p, _ := n.value.(string)
		return strings.HasPrefix(s, p), nil
	default:
		return false, errx.New("[predicate]: unsupported operator",
			errx.WithDetails(errx.D{"operator": string(n.op)}))
	}
}
