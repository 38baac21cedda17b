package predicate

import (
	"fmt"
	"time"

	"github.com/code19m/errx"
	"github.com/spf13/cast"

	"github.com/rise-and-shine/repokit/record"
)

// Builder constructs leaf expressions validated against a record schema.
// Builders are stateless and safe for concurrent use.
type Builder struct {
	schema *record.Schema
}

// NewBuilder returns a Builder bound to the given schema.
func NewBuilder(schema *record.Schema) Builder {
	if schema == nil {
		panic("predicate: nil schema")
	}
	return Builder{schema: schema}
}

// Schema returns the schema the builder validates against.
func (b Builder) Schema() *record.Schema {
	return b.schema
}

// Leaf builds a single comparison over one attribute. It fails with
// CodeInvalidAttribute when the attribute is not part of the schema and with
// record.CodeTypeMismatch when the operator or the literal does not fit the
// attribute's kind.
func (b Builder) Leaf(attr string, op Op, value any) (Expr, error) {
	a, ok := b.schema.Attribute(attr)
	if !ok {
		return nil, errx.New("attribute is not defined on the record schema",
			errx.WithCode(CodeInvalidAttribute),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"attribute": attr, "record": b.schema.Name()}),
		)
	}

	if err := checkOperator(a, op); err != nil {
		return nil, err
	}

	norm, err := a.Normalize(value)
	if err != nil {
		return nil, err
	}

	return &leaf{attr: a, op: op, value: norm}, nil
}

// Eq builds an equals comparison.
func (b Builder) Eq(attr string, value any) (Expr, error) {
	return b.Leaf(attr, OpEq, value)
}

// Ne builds a not-equals comparison.
func (b Builder) Ne(attr string, value any) (Expr, error) {
	return b.Leaf(attr, OpNe, value)
}

// Gt builds a greater-than comparison.
func (b Builder) Gt(attr string, value any) (Expr, error) {
	return b.Leaf(attr, OpGt, value)
}

// Lt builds a less-than comparison.
func (b Builder) Lt(attr string, value any) (Expr, error) {
	return b.Leaf(attr, OpLt, value)
}

// Prefix builds a starts-with comparison. String attributes only.
func (b Builder) Prefix(attr string, value any) (Expr, error) {
	return b.Leaf(attr, OpPrefix, value)
}

func checkOperator(a *record.Attribute, op Op) error {
	var ok bool
	switch op {
	case OpEq, OpNe:
		ok = true
	case OpPrefix:
		ok = a.Kind == record.KindString
	case OpGt, OpLt:
		ok = a.Kind != record.KindBool
	default:
		return errx.New("[predicate]: unsupported operator",
			errx.WithDetails(errx.D{"operator": string(op)}))
	}

	if !ok {
		return errx.New("operator is not applicable to the attribute kind",
			errx.WithCode(record.CodeTypeMismatch),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{
				"attribute": a.Name,
				"kind":      a.Kind.String(),
				"operator":  string(op),
			}),
		)
	}
	return nil
}

// leaf is a single attribute comparison. The literal is kept in normalized
// form so evaluation and translation see identical values.
type leaf struct {
	attr  *record.Attribute
	op    Op
	value any
}

func (n *leaf) isExpr() {}

func (n *leaf) String() string {
	return fmt.Sprintf("%s %s %s", n.attr.Name, opSymbol(n.op), renderValue(n.value))
}

func opSymbol(op Op) string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	case OpPrefix:
		return "STARTS WITH"
	default:
		return string(op)
	}
}

func renderValue(v any) string {
	switch t := v.(type) {
	case string:
		return fmt.Sprintf("%q", t)
	case time.Time:
		return fmt.Sprintf("%q", t.Format(time.RFC3339))
	default:
		return cast.ToString(v)
	}
}
