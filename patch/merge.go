package patch

import (
	"github.com/code19m/errx"

	"github.com/rise-and-shine/repokit/record"
)

// Merge applies a patch to an existing record value and returns the merged
// copy together with a flag reporting whether any attribute actually changed
// value. The existing record is never mutated. The result is deterministic:
// each present attribute is applied exactly once, so iteration order cannot
// influence it. Merging the same patch twice is idempotent, and an empty (or
// nil) patch returns the record unchanged with changed=false.
//
// The changed flag is computed here, attribute by attribute, rather than
// taken from a storage row count: a patch that only restates current values
// merges successfully and reports changed=false.
func Merge[T any](existing T, p *Patch) (T, bool, error) {
	var zero T

	if p == nil || p.IsEmpty() {
		return existing, false, nil
	}

	schema, err := record.Infer[T]()
	if err != nil {
		return zero, false, err
	}
	if schema != p.schema {
		return zero, false, errx.New("[patch]: patch schema does not match the record type",
			errx.WithDetails(errx.D{"patch": p.schema.Name(), "record": schema.Name()}))
	}

	merged := existing
	changed := false

	for _, name := range p.order {
		a, _ := schema.Attribute(name)
		e := p.fields[name]

		oldV, oldPresent, err := a.ValueOf(&merged)
		if err != nil {
			return zero, false, err
		}

		if err := a.SetValue(&merged, e.value); err != nil {
			return zero, false, err
		}

		newV, newPresent, err := a.ValueOf(&merged)
		if err != nil {
			return zero, false, err
		}

		if oldPresent != newPresent || (oldPresent && !record.ValuesEqual(oldV, newV)) {
			changed = true
		}
	}

	return merged, changed, nil
}
