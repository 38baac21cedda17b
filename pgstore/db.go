package pgstore

import (
	"context"

	"github.com/code19m/errx"
	"github.com/creasty/defaults"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/extra/bunotel"

	"github.com/rise-and-shine/repokit/logger"
	"github.com/rise-and-shine/repokit/val"
)

// NewDB opens a pgx connection pool for the given config and wraps it in a
// bun database handle ready to be passed to New.
//
// The config is defaulted and validated first, so an incomplete Config fails
// fast with val.CodeValidationFailed instead of surfacing as a connection
// error later. Every handle gets an OpenTelemetry query hook; a logging hook
// is added on top when cfg.Debug is set.
func NewDB(cfg Config, log logger.Logger) (*bun.DB, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, errx.Wrap(err)
	}
	if err := val.ValidateSchema(cfg); err != nil {
		return nil, errx.Wrap(err)
	}

	pool, err := newPool(cfg)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	sqldb := stdlib.OpenDBFromPool(pool)

	db := bun.NewDB(sqldb, pgdialect.New())
	applyHooks(db, cfg, log)

	return db, nil
}

// newPool builds a pgxpool.Pool from the config.
func newPool(cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.dsn())
	if err != nil {
		return nil, errx.Wrap(err)
	}

	poolConfig.MaxConns = cfg.PoolMaxConns
	poolConfig.MinConns = cfg.PoolMinConns
	poolConfig.MaxConnLifetime = cfg.PoolMaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.PoolMaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	return pool, nil
}

// applyHooks attaches query hooks to the handle. The OpenTelemetry hook is
// always on; the logging hook only when debugging is enabled.
func applyHooks(db *bun.DB, cfg Config, log logger.Logger) {
	if cfg.Debug {
		db.AddQueryHook(newQueryLogHook(log))
	}

	db.AddQueryHook(bunotel.NewQueryHook())
}
