package warn

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/flifloo/administrator/store"
)

var schema = []string{
	`create table if not exists warns (
		id integer primary key autoincrement,
		guild_id text not null,
		user_id text not null,
		author_id text not null,
		description text not null,
		created_at integer not null
	)`,
	`create index if not exists warns_guild_user on warns (guild_id, user_id)`,
	`create table if not exists warn_actions (
		guild_id text not null,
		count integer not null,
		action text not null,
		duration integer,
		primary key (guild_id, count)
	)`,
}

type Warn struct {
	ID          int64  `db:"id"`
	GuildID     string `db:"guild_id"`
	UserID      string `db:"user_id"`
	AuthorID    string `db:"author_id"`
	Description string `db:"description"`
	CreatedAt   int64  `db:"created_at"`
}

func (w *Warn) Created() time.Time { return time.Unix(w.CreatedAt, 0) }

// Action is applied to a member once their warn count reaches Count
type Action struct {
	GuildID string        `db:"guild_id"`
	Count   int64         `db:"count"`
	Action  string        `db:"action"`
	Seconds sql.NullInt64 `db:"duration"`
}

// Duration of the action, zero when it has none
func (a *Action) Duration() time.Duration {
	if !a.Seconds.Valid {
		return 0
	}
	return time.Duration(a.Seconds.Int64) * time.Second
}

type Store struct {
	db *sqlx.DB
}

func NewStore(ctx context.Context, db *sqlx.DB) (*Store, error) {
	if err := store.Migrate(ctx, db, schema...); err != nil {
		return nil, errors.WithMessage(err, "warn")
	}
	return &Store{db: db}, nil
}

func (s *Store) Add(ctx context.Context, w *Warn) error {
	_, err := s.db.NamedExecContext(ctx, `insert into warns (guild_id, user_id, author_id, description, created_at)
		values (:guild_id, :user_id, :author_id, :description, :created_at)`, w)
	return errors.Wrap(err, "add warn")
}

// List returns the warns of the guild in creation order, only those of userID if not empty
func (s *Store) List(ctx context.Context, guildID, userID string) ([]*Warn, error) {
	var warns []*Warn
	var err error
	if userID == "" {
		err = s.db.SelectContext(ctx, &warns, `select * from warns where guild_id = ? order by id`, guildID)
	} else {
		err = s.db.SelectContext(ctx, &warns, `select * from warns where guild_id = ? and user_id = ? order by id`, guildID, userID)
	}
	return warns, errors.Wrap(err, "list warns")
}

func (s *Store) Count(ctx context.Context, guildID, userID string) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `select count(*) from warns where guild_id = ? and user_id = ?`, guildID, userID)
	return n, errors.Wrap(err, "count warns")
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `delete from warns where id = ?`, id)
	return errors.Wrapf(err, "delete warn %d", id)
}

// Purge deletes every warn of the member and returns how many were deleted
func (s *Store) Purge(ctx context.Context, guildID, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from warns where guild_id = ? and user_id = ?`, guildID, userID)
	if err != nil {
		return 0, errors.Wrap(err, "purge warns")
	}
	return res.RowsAffected()
}

// Action returns the action for count warns, nil if there is none
func (s *Store) Action(ctx context.Context, guildID string, count int64) (*Action, error) {
	var a Action
	err := s.db.GetContext(ctx, &a, `select * from warn_actions where guild_id = ? and count = ?`, guildID, count)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get warn action")
	}
	return &a, nil
}

func (s *Store) Actions(ctx context.Context, guildID string) ([]*Action, error) {
	var actions []*Action
	err := s.db.SelectContext(ctx, &actions, `select * from warn_actions where guild_id = ? order by count`, guildID)
	return actions, errors.Wrap(err, "list warn actions")
}

func (s *Store) SetAction(ctx context.Context, a *Action) error {
	_, err := s.db.NamedExecContext(ctx, `insert into warn_actions (guild_id, count, action, duration)
		values (:guild_id, :count, :action, :duration)
		on conflict (guild_id, count) do update set action = excluded.action, duration = excluded.duration`, a)
	return errors.Wrap(err, "set warn action")
}

// DeleteAction reports whether an action existed for count
func (s *Store) DeleteAction(ctx context.Context, guildID string, count int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `delete from warn_actions where guild_id = ? and count = ?`, guildID, count)
	if err != nil {
		return false, errors.Wrap(err, "delete warn action")
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteGuild forgets the warns and the actions of a guild the bot left
func (s *Store) DeleteGuild(ctx context.Context, guildID string) error {
	if _, err := s.db.ExecContext(ctx, `delete from warns where guild_id = ?`, guildID); err != nil {
		return errors.Wrapf(err, "delete warns of %s", guildID)
	}
	_, err := s.db.ExecContext(ctx, `delete from warn_actions where guild_id = ?`, guildID)
	return errors.Wrapf(err, "delete warn actions of %s", guildID)
}
