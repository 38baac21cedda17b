package predicate

const (
	// CodeInvalidAttribute is returned when a leaf references an attribute
	// that is not defined on the record schema.
	CodeInvalidAttribute = "INVALID_ATTRIBUTE"
)
