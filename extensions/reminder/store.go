package reminder

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/flifloo/administrator/store"
)

var schema = []string{
	`create table if not exists reminders (
		id integer primary key autoincrement,
		user_id text not null,
		channel_id text not null,
		message text not null,
		due_at integer not null,
		created_at integer not null
	)`,
	`create index if not exists reminders_due on reminders (due_at)`,
}

type Reminder struct {
	ID        int64  `db:"id"`
	UserID    string `db:"user_id"`
	ChannelID string `db:"channel_id"`
	Message   string `db:"message"`
	DueAt     int64  `db:"due_at"`
	CreatedAt int64  `db:"created_at"`
}

func (r *Reminder) Due() time.Time     { return time.Unix(r.DueAt, 0) }
func (r *Reminder) Created() time.Time { return time.Unix(r.CreatedAt, 0) }

type Store struct {
	db *sqlx.DB
}

func NewStore(ctx context.Context, db *sqlx.DB) (*Store, error) {
	if err := store.Migrate(ctx, db, schema...); err != nil {
		return nil, errors.WithMessage(err, "reminder")
	}
	return &Store{db: db}, nil
}

func (s *Store) Add(ctx context.Context, r *Reminder) (int64, error) {
	res, err := s.db.NamedExecContext(ctx, `insert into reminders (user_id, channel_id, message, due_at, created_at)
		values (:user_id, :channel_id, :message, :due_at, :created_at)`, r)
	if err != nil {
		return 0, errors.Wrap(err, "add reminder")
	}
	return res.LastInsertId()
}

func (s *Store) ListUser(ctx context.Context, userID string) ([]*Reminder, error) {
	var reminders []*Reminder
	err := s.db.SelectContext(ctx, &reminders, `select * from reminders where user_id = ? order by due_at, id`, userID)
	return reminders, errors.Wrap(err, "list reminders")
}

// Due returns the reminders due at or before t
func (s *Store) Due(ctx context.Context, t time.Time) ([]*Reminder, error) {
	var reminders []*Reminder
	err := s.db.SelectContext(ctx, &reminders, `select * from reminders where due_at <= ? order by due_at, id`, t.Unix())
	return reminders, errors.Wrap(err, "list due reminders")
}

// Delete deletes the reminder if it belongs to userID, an empty userID matches any owner
func (s *Store) Delete(ctx context.Context, id int64, userID string) (bool, error) {
	query, args := `delete from reminders where id = ?`, []interface{}{id}
	if userID != "" {
		query += ` and user_id = ?`
		args = append(args, userID)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, errors.Wrapf(err, "delete reminder %d", id)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
