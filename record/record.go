// Package record derives schema descriptions from annotated Go structs.
//
// A schema lists the named scalar attributes of a record type together with
// their kinds, nullability and roles (identity, version). The other packages
// of this module consume schemas to validate predicate expressions and update
// patches eagerly, before any storage round-trip happens.
//
// Attributes are declared with the `record` struct tag:
//
//	type User struct {
//	    ID       int64   `record:"id,pk"`
//	    Username string  `record:"username"`
//	    Email    *string `record:"email"`
//	    Rev      int64   `record:"rev,version"`
//	}
//
// Tag grammar is `record:"<name>[,pk][,version]"`. Fields without a record
// tag, or tagged with "-", are invisible to the schema. Anonymous embedded
// structs are flattened. Pointer fields are nullable: a nil pointer means the
// attribute has no value. Exactly one attribute must carry the pk option (an
// int or string kind); at most one may carry version (a non-nullable int used
// by storage collaborators for optimistic concurrency).
package record

import (
	"reflect"
	"strings"
	"sync"

	"github.com/code19m/errx"
)

const tagName = "record"

// Schema describes the attribute set of a record type.
// Schemas are immutable after inference and safe for concurrent use.
type Schema struct {
	name    string
	typ     reflect.Type
	attrs   []*Attribute
	byName  map[string]*Attribute
	pk      *Attribute
	version *Attribute
}

// schemaCache holds one schema per record type. reflect.Type -> *Schema.
var schemaCache sync.Map

// Infer builds (or returns the cached) schema for the record type T.
// It fails when T is not a struct, declares no identity attribute, declares
// duplicate attribute names, or uses field types outside the supported
// scalar set.
func Infer[T any]() (*Schema, error) {
	typ := reflect.TypeFor[T]()
	if cached, ok := schemaCache.Load(typ); ok {
		return cached.(*Schema), nil
	}

	s, err := inferType(typ)
	if err != nil {
		return nil, err
	}

	schemaCache.Store(typ, s)
	return s, nil
}

// MustInfer is like Infer but panics on error.
// Intended for package-level schema variables of statically known-good types.
func MustInfer[T any]() *Schema {
	s, err := Infer[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the record type's name.
func (s *Schema) Name() string {
	return s.name
}

// Attributes returns all attributes in declaration order.
func (s *Schema) Attributes() []*Attribute {
	attrs := make([]*Attribute, len(s.attrs))
	copy(attrs, s.attrs)
	return attrs
}

// Attribute looks up an attribute by name.
func (s *Schema) Attribute(name string) (*Attribute, bool) {
	a, ok := s.byName[name]
	return a, ok
}

// PK returns the identity attribute.
func (s *Schema) PK() *Attribute {
	return s.pk
}

// Version returns the version attribute, or nil when the record type does not
// declare one.
func (s *Schema) Version() *Attribute {
	return s.version
}

func inferType(typ reflect.Type) (*Schema, error) {
	if typ.Kind() != reflect.Struct {
		return nil, errx.New("[record]: record type must be a struct",
			errx.WithDetails(errx.D{"type": typ.String()}))
	}

	s := &Schema{
		name:   typ.Name(),
		typ:    typ,
		byName: make(map[string]*Attribute),
	}

	if err := s.collectFields(typ, nil); err != nil {
		return nil, err
	}

	if s.pk == nil {
		return nil, errx.New("[record]: record type declares no identity attribute",
			errx.WithDetails(errx.D{"type": typ.String()}))
	}

	return s, nil
}

func (s *Schema) collectFields(typ reflect.Type, path []int) error {
	for i := range typ.NumField() {
		f := typ.Field(i)
		idx := make([]int, 0, len(path)+1)
		idx = append(append(idx, path...), i)

		tag, hasTag := f.Tag.Lookup(tagName)
		if tag == "-" {
			continue
		}
		// Anonymous struct embeds are flattened. Exported fields promoted
		// through an unexported embedded type stay settable via reflect,
		// so the embed itself does not need to be exported.
		if f.Anonymous && !hasTag && f.Type.Kind() == reflect.Struct && f.Type != timeType {
			if err := s.collectFields(f.Type, idx); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() || !hasTag {
			continue
		}

		attr, err := parseAttribute(f, tag, idx, s.typ)
		if err != nil {
			return err
		}

		if _, dup := s.byName[attr.Name]; dup {
			return errx.New("[record]: duplicate attribute name",
				errx.WithDetails(errx.D{"type": s.name, "attribute": attr.Name}))
		}
		if attr.PK {
			if s.pk != nil {
				return errx.New("[record]: record type declares more than one identity attribute",
					errx.WithDetails(errx.D{"type": s.name, "attribute": attr.Name}))
			}
			s.pk = attr
		}
		if attr.Version {
			if s.version != nil {
				return errx.New("[record]: record type declares more than one version attribute",
					errx.WithDetails(errx.D{"type": s.name, "attribute": attr.Name}))
			}
			s.version = attr
		}

		s.attrs = append(s.attrs, attr)
		s.byName[attr.Name] = attr
	}

	return nil
}

func parseAttribute(f reflect.StructField, tag string, path []int, owner reflect.Type) (*Attribute, error) {
	parts := strings.Split(tag, ",")

	name := strings.TrimSpace(parts[0])
	if name == "" {
		return nil, errx.New("[record]: record tag must name the attribute",
			errx.WithDetails(errx.D{"field": f.Name}))
	}

	kind, nullable, unsigned, ok := kindOf(f.Type)
	if !ok {
		return nil, errx.New("[record]: unsupported attribute type",
			errx.WithDetails(errx.D{"field": f.Name, "type": f.Type.String()}))
	}

	attr := &Attribute{
		Name:       name,
		Kind:       kind,
		Nullable:   nullable,
		structType: owner,
		path:       path,
		unsigned:   unsigned,
	}

	for _, opt := range parts[1:] {
		switch strings.TrimSpace(opt) {
		case "pk":
			attr.PK = true
		case "version":
			attr.Version = true
		case "":
		default:
			return nil, errx.New("[record]: unknown record tag option",
				errx.WithDetails(errx.D{"field": f.Name, "option": opt}))
		}
	}

	if attr.PK {
		if attr.Version {
			return nil, errx.New("[record]: attribute cannot be both identity and version",
				errx.WithDetails(errx.D{"field": f.Name}))
		}
		if attr.Nullable || (kind != KindInt && kind != KindString) {
			return nil, errx.New("[record]: identity attribute must be a non-nullable int or string",
				errx.WithDetails(errx.D{"field": f.Name, "kind": kind.String()}))
		}
	}
	if attr.Version && (attr.Nullable || kind != KindInt) {
		return nil, errx.New("[record]: version attribute must be a non-nullable int",
			errx.WithDetails(errx.D{"field": f.Name, "kind": kind.String()}))
	}

	return attr, nil
}

func kindOf(t reflect.Type) (kind Kind, nullable bool, unsigned bool, ok bool) {
	if t.Kind() == reflect.Pointer {
		nullable = true
		t = t.Elem()
	}
	if t == timeType {
		return KindTime, nullable, false, true
	}

	switch t.Kind() {
	case reflect.String:
		return KindString, nullable, false, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return KindInt, nullable, false, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt, nullable, true, true
	case reflect.Float32, reflect.Float64:
		return KindFloat, nullable, false, true
	case reflect.Bool:
		return KindBool, nullable, false, true
	default:
		return 0, false, false, false
	}
}
