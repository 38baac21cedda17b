package repokit

import "github.com/code19m/errx"

// IsNotFound reports whether err is a not-found error, regardless of the
// concrete code it carries. It matches by errx type, so repositories
// configured with WithNotFoundCode are still recognized.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errx.GetType(err) == errx.T_NotFound
}

// IsConflict reports whether err is a conflict error (version mismatch,
// concurrent delete, unique constraint violation).
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	return errx.GetType(err) == errx.T_Conflict
}
