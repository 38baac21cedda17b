package record

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/code19m/errx"
	"github.com/spf13/cast"
)

// Normalize coerces a literal value to the attribute's kind and returns it in
// normalized form: string, int64, float64, bool or time.Time. Only lossless
// conversions are accepted; anything else fails with CodeTypeMismatch.
//
// Accepted inputs per kind: String takes string values (including named string
// types); Int takes any integer type plus floats without a fractional part;
// Float takes any numeric type; Bool takes bool; Time takes time.Time values
// or textual timestamps (RFC 3339 among the accepted layouts). Non-nil
// pointers are dereferenced first; nil is never a valid literal here.
func (a *Attribute) Normalize(v any) (any, error) {
	iv, isNil := Indirect(v)
	if isNil {
		return nil, a.typeMismatch("literal value must not be nil", v)
	}

	switch a.Kind {
	case KindString:
		if rv := reflect.ValueOf(iv); rv.Kind() == reflect.String {
			return rv.String(), nil
		}

	case KindInt:
		rv := reflect.ValueOf(iv)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int(), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return int64(rv.Uint()), nil
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			if f == math.Trunc(f) && !math.IsInf(f, 0) {
				return int64(f), nil
			}
		}

	case KindFloat:
		rv := reflect.ValueOf(iv)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return float64(rv.Uint()), nil
		case reflect.Float32, reflect.Float64:
			return rv.Float(), nil
		}

	case KindBool:
		if rv := reflect.ValueOf(iv); rv.Kind() == reflect.Bool {
			return rv.Bool(), nil
		}

	case KindTime:
		switch t := iv.(type) {
		case time.Time:
			return t, nil
		case string:
			ts, err := cast.ToTimeE(t)
			if err == nil {
				return ts, nil
			}
		}
	}

	return nil, a.typeMismatch("literal value is incompatible with the attribute kind", v)
}

func (a *Attribute) typeMismatch(msg string, v any) error {
	return errx.New(msg,
		errx.WithCode(CodeTypeMismatch),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{
			"attribute":  a.Name,
			"kind":       a.Kind.String(),
			"value_type": fmt.Sprintf("%T", v),
		}),
	)
}

// ValuesEqual compares two normalized values. Time values compare with
// time.Time.Equal so location differences do not matter.
func ValuesEqual(x, y any) bool {
	if tx, ok := x.(time.Time); ok {
		ty, ok := y.(time.Time)
		return ok && tx.Equal(ty)
	}
	return x == y
}

// ValuesLess orders two normalized values of the same kind. Bools order
// false before true. Values of mismatched types never compare less.
func ValuesLess(x, y any) bool {
	switch a := x.(type) {
	case string:
		b, ok := y.(string)
		return ok && a < b
	case int64:
		b, ok := y.(int64)
		return ok && a < b
	case float64:
		b, ok := y.(float64)
		return ok && a < b
	case bool:
		b, ok := y.(bool)
		return ok && !a && b
	case time.Time:
		b, ok := y.(time.Time)
		return ok && a.Before(b)
	default:
		return false
	}
}

// Indirect dereferences pointers until a non-pointer value remains.
// The second return reports whether v was nil at any level, which also
// catches typed nil pointers hiding inside a non-nil interface.
func Indirect(v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, true
		}
		rv = rv.Elem()
	}
	return rv.Interface(), false
}
