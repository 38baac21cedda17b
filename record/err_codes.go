package record

const (
	// CodeTypeMismatch is returned when a literal value is incompatible with
	// an attribute's declared kind, or with the operator applied to it.
	CodeTypeMismatch = "TYPE_MISMATCH"
)
