// Package store opens the sqlite database shared by the registry and the extensions
package store

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Memory is the path of a private in memory database
const Memory = ":memory:"

// Open opens the sqlite database at path and waits until it answers, retrying with an
// exponential backoff
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	dsn := path
	if path != Memory && !strings.Contains(path, "?") {
		dsn = path + "?_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	if path == Memory {
		// Every connection gets its own in memory database
		db.SetMaxOpenConns(1)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	err = backoff.Retry(func() error {
		err := db.PingContext(ctx)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("database not ready")
		}
		return err
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "ping %s", path)
	}

	return db, nil
}

// Migrate runs the create statements in order, they are expected to be idempotent
func Migrate(ctx context.Context, db *sqlx.DB, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate")
		}
	}
	return nil
}
