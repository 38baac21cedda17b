package patch

const (
	// CodeUnknownAttribute is returned when a patch names an attribute that
	// is not defined on the record schema.
	CodeUnknownAttribute = "UNKNOWN_ATTRIBUTE"

	// CodeImmutableField is returned when a patch tries to modify the
	// identity or version attribute of a record.
	CodeImmutableField = "IMMUTABLE_FIELD"
)
