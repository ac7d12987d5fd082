// Package registry persists the known extensions and whether they are enabled per guild
package registry

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/flifloo/administrator/store"
)

var schema = []string{
	`create table if not exists extensions (
		name text primary key
	)`,
	`create table if not exists extension_states (
		extension_name text not null,
		guild_id text not null,
		enabled boolean not null default 1,
		primary key (extension_name, guild_id)
	)`,
	`create index if not exists extension_states_guild on extension_states (guild_id)`,
}

// Change tells whether SetEnabled modified the stored state
type Change int

const (
	Unchanged Change = iota
	Changed
)

// Registry is the only writer of the extensions and extension_states tables
type Registry struct {
	db    *sqlx.DB
	locks stripedLocks
}

// New creates the tables if needed and returns a registry backed by db
func New(ctx context.Context, db *sqlx.DB) (*Registry, error) {
	if err := store.Migrate(ctx, db, schema...); err != nil {
		return nil, errors.WithMessage(err, "registry")
	}

	return &Registry{db: db}, nil
}

// ListKnownExtensions returns every extension ever registered, sorted by name
func (r *Registry) ListKnownExtensions(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.SelectContext(ctx, &names, `select name from extensions order by name`)
	if err != nil {
		return nil, errors.Wrap(err, "list extensions")
	}
	return names, nil
}

// RegisterIfAbsent records the extension, reporting whether it was new
func (r *Registry) RegisterIfAbsent(ctx context.Context, name string) (bool, error) {
	defer r.locks.lock(name)()

	var count int
	err := r.db.GetContext(ctx, &count, `select count(*) from extensions where name = ?`, name)
	if err != nil {
		return false, errors.Wrapf(err, "lookup extension %s", name)
	}
	if count > 0 {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx, `insert into extensions (name) values (?)`, name)
	if err != nil {
		return false, errors.Wrapf(err, "register extension %s", name)
	}

	log.Debug().Str("extension", name).Msg("registered extension")
	return true, nil
}

// IsEnabled returns the stored state of the extension in the guild, extensions without
// state are enabled
func (r *Registry) IsEnabled(ctx context.Context, name, guildID string) (bool, error) {
	enabled, found, err := r.state(ctx, name, guildID)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	return enabled, nil
}

func (r *Registry) state(ctx context.Context, name, guildID string) (enabled, found bool, err error) {
	err = r.db.GetContext(ctx, &enabled,
		`select enabled from extension_states where extension_name = ? and guild_id = ?`, name, guildID)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, errors.Wrapf(err, "lookup state of %s in %s", name, guildID)
	}
	return enabled, true, nil
}

// SetEnabled updates the state of the extension in the guild. It fails with a NotFoundError
// when the pair has no state, setting the current value again reports Unchanged.
func (r *Registry) SetEnabled(ctx context.Context, name, guildID string, value bool) (Change, error) {
	defer r.locks.lock(name, guildID)()

	current, found, err := r.state(ctx, name, guildID)
	if err != nil {
		return Unchanged, err
	}
	if !found {
		return Unchanged, &NotFoundError{Extension: name, GuildID: guildID}
	}
	if current == value {
		return Unchanged, nil
	}

	_, err = r.db.ExecContext(ctx,
		`update extension_states set enabled = ? where extension_name = ? and guild_id = ?`, value, name, guildID)
	if err != nil {
		return Unchanged, errors.Wrapf(err, "update state of %s in %s", name, guildID)
	}

	log.Info().Str("extension", name).Str("guild", guildID).Bool("enabled", value).Msg("extension state changed")
	return Changed, nil
}

// EnsureState creates the enabled state of the extension in the guild if it is missing,
// reporting whether it was created
func (r *Registry) EnsureState(ctx context.Context, name, guildID string) (bool, error) {
	defer r.locks.lock(name, guildID)()

	_, found, err := r.state(ctx, name, guildID)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx,
		`insert into extension_states (extension_name, guild_id, enabled) values (?, ?, 1)`, name, guildID)
	if err != nil {
		return false, errors.Wrapf(err, "create state of %s in %s", name, guildID)
	}
	return true, nil
}

// ListEnabledState returns the state of every extension known in the guild
func (r *Registry) ListEnabledState(ctx context.Context, guildID string) (map[string]bool, error) {
	rows := []struct {
		Name    string `db:"extension_name"`
		Enabled bool   `db:"enabled"`
	}{}

	err := r.db.SelectContext(ctx, &rows,
		`select extension_name, enabled from extension_states where guild_id = ?`, guildID)
	if err != nil {
		return nil, errors.Wrapf(err, "list states in %s", guildID)
	}

	out := make(map[string]bool, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Enabled
	}
	return out, nil
}

// DeleteGuild removes every state scoped to the guild, returning how many were removed
func (r *Registry) DeleteGuild(ctx context.Context, guildID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `delete from extension_states where guild_id = ?`, guildID)
	if err != nil {
		return 0, errors.Wrapf(err, "delete states of %s", guildID)
	}

	n, _ := res.RowsAffected()
	return n, nil
}
