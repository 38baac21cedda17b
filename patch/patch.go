// Package patch represents partial-update intents with explicit per-attribute
// presence.
//
// Every attribute of a patch is in exactly one of two states: absent (leave
// the record's value alone) or present with a value. A present value may be
// an explicit null/zero set through Clear, which is deliberately
// distinguishable from absent: "clear this field" and "I never mentioned this
// field" are different instructions. Plain nullable values cannot express
// that difference; the presence flag can.
//
// Patches are built through a schema-bound API and validate eagerly: unknown
// attributes fail with CodeUnknownAttribute, the identity and version
// attributes fail with CodeImmutableField, incompatible values fail with
// record.CodeTypeMismatch. Merging is a pure function over record values and
// reports whether anything actually changed.
package patch

import (
	"sort"
	"strings"

	"github.com/code19m/errx"

	"github.com/rise-and-shine/repokit/record"
)

// Patch is a set of per-attribute update intents for one record type.
// The zero value is not usable; create patches with New or FromMap.
// A Patch is not safe for concurrent mutation.
type Patch struct {
	schema *record.Schema
	fields map[string]entry
	order  []string
}

// entry is a present attribute. A nil value means an explicit clear.
type entry struct {
	value any
}

// New returns an empty patch bound to the given schema.
func New(schema *record.Schema) *Patch {
	if schema == nil {
		panic("patch: nil schema")
	}
	return &Patch{
		schema: schema,
		fields: make(map[string]entry),
	}
}

// FromMap builds a patch from raw attribute/value pairs, for example a
// decoded JSON request body. Nil map values become explicit clears.
// Attributes are recorded in schema declaration order, so the result is
// independent of map iteration order. Keys outside the schema fail with
// CodeUnknownAttribute, never silently dropped.
func FromMap(schema *record.Schema, m map[string]any) (*Patch, error) {
	p := New(schema)

	seen := 0
	for _, a := range schema.Attributes() {
		v, ok := m[a.Name]
		if !ok {
			continue
		}
		if err := p.Set(a.Name, v); err != nil {
			return nil, err
		}
		seen++
	}

	if seen != len(m) {
		unknown := make([]string, 0, len(m)-seen)
		for k := range m {
			if _, ok := schema.Attribute(k); !ok {
				unknown = append(unknown, k)
			}
		}
		sort.Strings(unknown)

		return nil, errx.New("patch contains attributes not defined on the record schema",
			errx.WithCode(CodeUnknownAttribute),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{
				"attributes": strings.Join(unknown, ", "),
				"record":     schema.Name(),
			}),
		)
	}

	return p, nil
}

// Set marks an attribute present with the given value. A nil value (typed or
// untyped) is equivalent to Clear. Setting the same attribute again
// overwrites the earlier intent in place.
func (p *Patch) Set(attr string, value any) error {
	a, err := p.resolve(attr)
	if err != nil {
		return err
	}

	norm := any(nil)
	if v, isNil := record.Indirect(value); !isNil {
		norm, err = a.Normalize(v)
		if err != nil {
			return err
		}
	}

	if _, exists := p.fields[attr]; !exists {
		p.order = append(p.order, attr)
	}
	p.fields[attr] = entry{value: norm}
	return nil
}

// Clear marks an attribute present with an explicit null/zero value:
// nullable attributes merge to nil, others to their kind's zero value.
func (p *Patch) Clear(attr string) error {
	return p.Set(attr, nil)
}

// Has reports whether the attribute is present in the patch.
func (p *Patch) Has(attr string) bool {
	_, ok := p.fields[attr]
	return ok
}

// Value returns the normalized value recorded for the attribute and whether
// the attribute is present. Cleared attributes return (nil, true).
func (p *Patch) Value(attr string) (any, bool) {
	e, ok := p.fields[attr]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Attrs returns the present attribute names in the order they were first set.
func (p *Patch) Attrs() []string {
	attrs := make([]string, len(p.order))
	copy(attrs, p.order)
	return attrs
}

// Len returns the number of present attributes.
func (p *Patch) Len() int {
	return len(p.fields)
}

// IsEmpty reports whether no attribute is present.
func (p *Patch) IsEmpty() bool {
	return len(p.fields) == 0
}

// Schema returns the schema the patch is bound to.
func (p *Patch) Schema() *record.Schema {
	return p.schema
}

func (p *Patch) resolve(attr string) (*record.Attribute, error) {
	a, ok := p.schema.Attribute(attr)
	if !ok {
		return nil, errx.New("attribute is not defined on the record schema",
			errx.WithCode(CodeUnknownAttribute),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"attribute": attr, "record": p.schema.Name()}),
		)
	}

	if a.PK || a.Version {
		return nil, errx.New("attribute cannot be modified through a patch",
			errx.WithCode(CodeImmutableField),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"attribute": attr, "record": p.schema.Name()}),
		)
	}

	return a, nil
}
