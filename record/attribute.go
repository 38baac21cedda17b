package record

import (
	"fmt"
	"reflect"
	"time"

	"github.com/code19m/errx"
)

// Kind classifies the scalar type of an attribute.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindInt
	KindFloat
	KindBool
	KindTime
)

// String returns the kind's lowercase name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

var timeType = reflect.TypeOf(time.Time{})

// Attribute describes one named scalar attribute of a record type.
//
// The exported fields are read-only; attributes are created by Infer and
// shared between all users of a schema.
type Attribute struct {
	// Name is the attribute name from the record tag. For storage
	// collaborators with columns it doubles as the column name.
	Name string

	// Kind is the attribute's scalar kind.
	Kind Kind

	// Nullable reports whether the attribute can hold no value at all
	// (pointer-typed struct field).
	Nullable bool

	// PK marks the record's identity attribute.
	PK bool

	// Version marks the optimistic-concurrency counter owned by the
	// storage collaborator.
	Version bool

	structType reflect.Type
	path       []int
	unsigned   bool
}

// String returns the attribute name.
func (a *Attribute) String() string {
	return a.Name
}

// ValueOf reads the attribute's value from rec, which must be the schema's
// record type or a pointer to it. Values come back in normalized form
// (string, int64, float64, bool or time.Time). The second return reports
// presence: nullable attributes report false when the field is nil.
func (a *Attribute) ValueOf(rec any) (any, bool, error) {
	rv, err := a.structValue(rec)
	if err != nil {
		return nil, false, err
	}

	fv := rv.FieldByIndex(a.path)
	if a.Nullable {
		if fv.IsNil() {
			return nil, false, nil
		}
		fv = fv.Elem()
	}

	return a.canonical(fv), true, nil
}

// SetValue writes v into the attribute's field of rec, which must be a
// non-nil pointer to the schema's record type. A nil v clears the field:
// nullable attributes become nil, others take their zero value. Non-nil
// values pass through Normalize first, so incompatible values fail with
// CodeTypeMismatch.
func (a *Attribute) SetValue(rec any, v any) error {
	rv := reflect.ValueOf(rec)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errx.New("[record]: SetValue requires a non-nil record pointer",
			errx.WithDetails(errx.D{"attribute": a.Name, "got": fmt.Sprintf("%T", rec)}))
	}
	rv = rv.Elem()
	if rv.Type() != a.structType {
		return errx.New("[record]: value is not of the schema's record type",
			errx.WithDetails(errx.D{"expected": a.structType.String(), "got": fmt.Sprintf("%T", rec)}))
	}

	fv := rv.FieldByIndex(a.path)

	iv, isNil := Indirect(v)
	if isNil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}

	norm, err := a.Normalize(iv)
	if err != nil {
		return err
	}

	if a.Nullable {
		elem := fv.Type().Elem()
		p := reflect.New(elem)
		p.Elem().Set(reflect.ValueOf(norm).Convert(elem))
		fv.Set(p)
		return nil
	}

	fv.Set(reflect.ValueOf(norm).Convert(fv.Type()))
	return nil
}

func (a *Attribute) structValue(rec any) (reflect.Value, error) {
	rv := reflect.ValueOf(rec)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Type() != a.structType {
		return reflect.Value{}, errx.New("[record]: value is not of the schema's record type",
			errx.WithDetails(errx.D{"expected": a.structType.String(), "got": fmt.Sprintf("%T", rec)}))
	}
	return rv, nil
}

// canonical converts a dereferenced field value to its normalized form.
func (a *Attribute) canonical(fv reflect.Value) any {
	switch a.Kind {
	case KindString:
		return fv.String()
	case KindInt:
		if a.unsigned {
			return int64(fv.Uint())
		}
		return fv.Int()
	case KindFloat:
		return fv.Float()
	case KindBool:
		return fv.Bool()
	case KindTime:
		return fv.Interface().(time.Time)
	default:
		return nil
	}
}
