package repokit

import (
	"github.com/rise-and-shine/repokit/logger"
)

// Option configures a Repository at construction time.
type Option func(*config)

type config struct {
	log          logger.Logger
	notFoundCode string
}

// WithNotFoundCode overrides the error code used when a record of this
// repository's type cannot be found (e.g. "USER_NOT_FOUND"). The errx type
// remains T_NotFound, so IsNotFound keeps working.
func WithNotFoundCode(code string) Option {
	return func(c *config) {
		if code != "" {
			c.notFoundCode = code
		}
	}
}

// WithLogger attaches a logger to the repository. Operations log at debug
// level; conflict retries log at warn level. Without it the repository
// stays silent.
func WithLogger(log logger.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// UpdateOption configures a single Update call.
type UpdateOption func(*updateConfig)

type updateConfig struct {
	attempts uint
}

// WithRetryOnConflict makes Update re-run its whole fetch-merge-persist
// sequence against fresh state when the persist step hits a CONFLICT.
// attempts is the total number of tries, including the first one. Conflicts
// are never retried implicitly; this option is the caller's explicit opt-in.
func WithRetryOnConflict(attempts uint) UpdateOption {
	return func(c *updateConfig) {
		if attempts > 1 {
			c.attempts = attempts
		}
	}
}
