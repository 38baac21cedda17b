// Package val provides schema validation helpers built on go-playground/validator.
// Config structs across this module declare their constraints with `validate`
// tags and run them through ValidateSchema.
package val

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate //nolint: gochecknoglobals // shared instance, configured once in init

func init() { //nolint: gochecknoinits // single place to configure the shared validator
	validate = validator.New()
	validate.RegisterTagNameFunc(getTagName)
}

// getTagName returns the name of a struct field based on its struct tags.
// It prefers the 'yaml' tag configs are written in, then 'json', and falls
// back to the field name when neither has a usable name component.
func getTagName(fld reflect.StructField) string {
	for _, tagName := range []string{"yaml", "json"} {
		name := strings.SplitN(fld.Tag.Get(tagName), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}

	return fld.Name
}

func getValidator() *validator.Validate {
	return validate
}
