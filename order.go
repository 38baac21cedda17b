package repokit

import (
	"fmt"
	"strings"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/predicate"
	"github.com/rise-and-shine/repokit/record"
)

// Order is a single storage-neutral sort key. Stores map it onto their own
// ordering mechanism (a comparator in memstore, an ORDER BY clause in
// pgstore).
type Order struct {
	// Attr is the schema attribute name to sort by.
	Attr string
	// Desc flips the direction from ascending to descending.
	Desc bool
}

// Asc returns an ascending sort key for attr.
func Asc(attr string) Order {
	return Order{Attr: attr}
}

// Desc returns a descending sort key for attr.
func Desc(attr string) Order {
	return Order{Attr: attr, Desc: true}
}

// String returns the "attr:direction" form accepted by ParseOrder.
func (o Order) String() string {
	if o.Desc {
		return o.Attr + ":desc"
	}
	return o.Attr + ":asc"
}

// ParseOrder parses a sorting string (e.g. "name:asc,created_at:desc") into
// sort keys. The direction is optional and defaults to ascending; empty
// segments are skipped. Unlike lenient parsers that silently drop what they
// do not recognize, ParseOrder rejects unknown attributes and malformed
// directions outright, so a typo in a sort string surfaces before it
// reaches a store.
func ParseOrder(schema *record.Schema, s string) ([]Order, error) {
	if schema == nil {
		return nil, errx.New("[repokit]: schema must not be nil")
	}
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var orders []Order
	for pair := range strings.SplitSeq(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		attr, dir, hasDir := strings.Cut(pair, ":")
		attr = strings.TrimSpace(attr)
		if err := checkOrderAttr(schema, attr); err != nil {
			return nil, err
		}

		desc := false
		if hasDir {
			switch strings.ToLower(strings.TrimSpace(dir)) {
			case "asc":
			case "desc":
				desc = true
			default:
				return nil, errx.New(
					fmt.Sprintf("invalid sort direction %q for attribute %q", dir, attr),
					errx.WithType(errx.T_Validation),
				)
			}
		}

		orders = append(orders, Order{Attr: attr, Desc: desc})
	}

	return orders, nil
}

// validOrders checks every sort key against the schema.
func validOrders(schema *record.Schema, orders []Order) error {
	for _, o := range orders {
		if err := checkOrderAttr(schema, o.Attr); err != nil {
			return err
		}
	}
	return nil
}

func checkOrderAttr(schema *record.Schema, attr string) error {
	if _, ok := schema.Attribute(attr); !ok {
		return errx.New(
			fmt.Sprintf("unknown sort attribute %q on record %s", attr, schema.Name()),
			errx.WithCode(predicate.CodeInvalidAttribute),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"attribute": attr, "record": schema.Name()}),
		)
	}
	return nil
}
