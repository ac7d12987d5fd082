package greetings

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/flifloo/administrator/store"
)

// Kind selects the join or the leave message
type Kind int

const (
	Join Kind = iota
	Leave
)

func (k Kind) String() string {
	if k == Leave {
		return "leave"
	}
	return "join"
}

// ParseKind parses "join" or "leave"
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "join":
		return Join, nil
	case "leave":
		return Leave, nil
	}
	return Join, errors.Errorf("unknown greeting kind %q", s)
}

type Message struct {
	Enabled bool
	Text    string
}

// Render replaces every {} in the message with user
func (m Message) Render(user string) string {
	return strings.ReplaceAll(m.Text, "{}", user)
}

// Greeting holds the join and leave messages of a guild
type Greeting struct {
	GuildID string
	Join    Message
	Leave   Message
}

// Message returns the message of the given kind
func (g *Greeting) Message(k Kind) *Message {
	switch k {
	case Leave:
		return &g.Leave
	default:
		return &g.Join
	}
}

var schema = []string{
	`create table if not exists greetings (
		guild_id text primary key,
		join_enabled boolean not null default 0,
		join_message text not null default '',
		leave_enabled boolean not null default 0,
		leave_message text not null default ''
	)`,
}

type row struct {
	GuildID      string `db:"guild_id"`
	JoinEnabled  bool   `db:"join_enabled"`
	JoinMessage  string `db:"join_message"`
	LeaveEnabled bool   `db:"leave_enabled"`
	LeaveMessage string `db:"leave_message"`
}

// Store persists the greetings of every guild
type Store struct {
	db *sqlx.DB
}

func NewStore(ctx context.Context, db *sqlx.DB) (*Store, error) {
	if err := store.Migrate(ctx, db, schema...); err != nil {
		return nil, errors.WithMessage(err, "greetings")
	}
	return &Store{db: db}, nil
}

// Get returns the greeting of the guild, nil if none was ever set
func (s *Store) Get(ctx context.Context, guildID string) (*Greeting, error) {
	var r row
	err := s.db.GetContext(ctx, &r, `select * from greetings where guild_id = ?`, guildID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get greetings of %s", guildID)
	}

	return &Greeting{
		GuildID: r.GuildID,
		Join:    Message{Enabled: r.JoinEnabled, Text: r.JoinMessage},
		Leave:   Message{Enabled: r.LeaveEnabled, Text: r.LeaveMessage},
	}, nil
}

func (s *Store) Save(ctx context.Context, g *Greeting) error {
	_, err := s.db.NamedExecContext(ctx, `insert into greetings
		(guild_id, join_enabled, join_message, leave_enabled, leave_message)
		values (:guild_id, :join_enabled, :join_message, :leave_enabled, :leave_message)
		on conflict (guild_id) do update set
			join_enabled = excluded.join_enabled,
			join_message = excluded.join_message,
			leave_enabled = excluded.leave_enabled,
			leave_message = excluded.leave_message`, row{
		GuildID:      g.GuildID,
		JoinEnabled:  g.Join.Enabled,
		JoinMessage:  g.Join.Text,
		LeaveEnabled: g.Leave.Enabled,
		LeaveMessage: g.Leave.Text,
	})
	return errors.Wrapf(err, "save greetings of %s", g.GuildID)
}
