package repokit

// Error codes returned by Repository operations and Store implementations.
// Validation-layer codes (INVALID_ATTRIBUTE, TYPE_MISMATCH, UNKNOWN_ATTRIBUTE,
// IMMUTABLE_FIELD) live in the predicate, record and patch packages that
// raise them.
const (
	// CodeNotFound indicates that no record matched an identity lookup or a
	// find-one query. Repositories can override the code per record type via
	// WithNotFoundCode; the errx type stays T_NotFound either way.
	CodeNotFound = "NOT_FOUND"

	// CodeConflict indicates that a persist collided with concurrent work:
	// a version mismatch, a vanished record, or a unique constraint
	// violation in the backing store.
	CodeConflict = "CONFLICT"

	// CodeMultipleFound indicates that FindUnique matched more than one
	// record. It usually points at a predicate that is not as selective as
	// the caller believed.
	CodeMultipleFound = "MULTIPLE_FOUND"
)
