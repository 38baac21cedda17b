package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/rise-and-shine/repokit/logger"
)

// slowQueryThreshold is the duration past which a successful query is
// logged at warn level instead of debug.
const slowQueryThreshold = 100 * time.Millisecond

var _ bun.QueryHook = (*queryLogHook)(nil)

// queryLogHook logs every query executed on the handle. It is attached by
// NewDB when Config.Debug is set.
type queryLogHook struct {
	log logger.Logger
}

func newQueryLogHook(log logger.Logger) *queryLogHook {
	if log == nil {
		log = logger.NewNop()
	}
	return &queryLogHook{log: log.Named("pgstore.query")}
}

// BeforeQuery implements bun.QueryHook.
func (h *queryLogHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

// AfterQuery implements bun.QueryHook. Failed queries log at error level,
// slow ones at warn, the rest at debug. sql.ErrNoRows and sql.ErrTxDone are
// expected outcomes of normal operation and are not treated as failures.
func (h *queryLogHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	duration := time.Since(event.StartTime)

	failed := event.Err != nil &&
		!errors.Is(event.Err, sql.ErrNoRows) &&
		!errors.Is(event.Err, sql.ErrTxDone)

	fields := []any{
		"query", formatQuery(event.Query),
		"duration", duration.Round(time.Microsecond),
	}
	if len(event.QueryArgs) > 0 {
		fields = append(fields, "args", event.QueryArgs)
	}

	switch {
	case failed:
		h.log.Errorw(event.Operation(), append(fields, "error", event.Err)...)
	case duration >= slowQueryThreshold:
		h.log.Warnw(event.Operation(), fields...)
	default:
		h.log.Debugw(event.Operation(), fields...)
	}
}

// formatQuery strips identifier quoting for more readable log lines.
func formatQuery(query string) string {
	return strings.ReplaceAll(query, `"`, "")
}
