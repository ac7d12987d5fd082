// Package greetings sends a message to members joining or leaving a server
package greetings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/flifloo/administrator"
	"github.com/flifloo/administrator/lifecycle"
)

const Name = "greetings"

var kindArg = &administrator.ArgDef{Name: "Type", Type: &administrator.ChoiceArg{Choices: []string{"join", "leave"}}, Help: "The join or leave message"}

type Extension struct {
	DB        *sqlx.DB
	Enabled   administrator.EnabledChecker
	Messenger administrator.MessengerFactory

	store *Store
	log   *zerolog.Logger
}

var _ lifecycle.Extension = (*Extension)(nil)

func (e *Extension) Description() string { return "Setup join and leave message" }

func (e *Extension) Setup(ctx context.Context, scope *lifecycle.Scope) error {
	st, err := NewStore(ctx, e.DB)
	if err != nil {
		return err
	}
	e.store = st
	e.log = scope.Logger()
	if e.Messenger == nil {
		e.Messenger = administrator.SessionMessenger
	}

	guards, err := administrator.Guards(administrator.GuardOptions{
		Enabled:     e.Enabled,
		GuildOnly:   true,
		Permissions: map[string]bool{"manage_guild": true},
	})
	if err != nil {
		return err
	}

	group := scope.Group(Name)
	group.Description = e.Description()
	group.NotFound = &administrator.StdHelpCommand{Formatter: &administrator.StdHelpFormatter{}, Container: group}

	group.AddCommand(&administrator.FuncCmd{
		Short:        "Set the greetings message, `{}` will be replaced by the username",
		Args:         []*administrator.ArgDef{kindArg, {Name: "Message", Type: administrator.String, Help: "The message"}},
		RequiredArgs: 2,
		RunFunc:      e.set,
	}, administrator.NewTrigger("set").SetMiddlewares(guards...))

	group.AddCommand(&administrator.FuncCmd{
		Short:        "Show the greetings message",
		Args:         []*administrator.ArgDef{kindArg},
		RequiredArgs: 1,
		RunFunc:      e.show,
	}, administrator.NewTrigger("show").SetMiddlewares(guards...))

	group.AddCommand(&administrator.FuncCmd{
		Short:        "Enable or disable the greetings message",
		Args:         []*administrator.ArgDef{kindArg},
		RequiredArgs: 1,
		RunFunc:      e.toggle,
	}, administrator.NewTrigger("toggle").SetMiddlewares(guards...))

	scope.AddHandler(e.handleMemberAdd)
	scope.AddHandler(e.handleMemberRemove)
	return nil
}

func (e *Extension) Teardown(ctx context.Context) error { return nil }

func (e *Extension) set(data *administrator.Data) (interface{}, error) {
	kind, err := ParseKind(data.Arg(0).Str())
	if err != nil {
		return nil, err
	}

	g, err := e.store.Get(data.Context(), data.GuildID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		g = &Greeting{GuildID: data.GuildID}
	}

	m := g.Message(kind)
	m.Enabled = true
	m.Text = strings.ReplaceAll(rawMessage(data), `\n`, "\n")

	if err := e.store.Save(data.Context(), g); err != nil {
		return nil, err
	}
	return administrator.ReactionSuccess, nil
}

// rawMessage returns the message argument as typed, before argument splitting
func rawMessage(data *administrator.Data) string {
	text := strings.TrimSpace(data.MsgStrippedPrefix)
	if i := strings.IndexAny(text, " \n\t"); i >= 0 {
		return strings.TrimSpace(text[i:])
	}
	return data.Arg(1).Str()
}

func (e *Extension) show(data *administrator.Data) (interface{}, error) {
	kind, err := ParseKind(data.Arg(0).Str())
	if err != nil {
		return nil, err
	}

	g, err := e.store.Get(data.Context(), data.GuildID)
	if err != nil {
		return nil, err
	}
	if g == nil || g.Message(kind).Text == "" {
		return fmt.Sprintf("No %s message set !", kind), nil
	}

	author := "<@" + data.AuthorID + ">"
	return render(kind, g, guildName(data.Session, data.GuildID), author), nil
}

func (e *Extension) toggle(data *administrator.Data) (interface{}, error) {
	kind, err := ParseKind(data.Arg(0).Str())
	if err != nil {
		return nil, err
	}

	g, err := e.store.Get(data.Context(), data.GuildID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return fmt.Sprintf("No %s message set !", kind), nil
	}

	m := g.Message(kind)
	m.Enabled = !m.Enabled
	if err := e.store.Save(data.Context(), g); err != nil {
		return nil, err
	}

	state := "disable"
	if m.Enabled {
		state = "enable"
	}
	return fmt.Sprintf("%s message is %s", capitalize(kind.String()), state), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// render builds the message sent for kind, the join message is an embed
func render(kind Kind, g *Greeting, guild, user string) *discordgo.MessageSend {
	text := g.Message(kind).Render(user)
	if kind == Leave {
		return &discordgo.MessageSend{Content: text}
	}

	return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{{
		Title:       "Welcome to " + guild,
		Description: text,
	}}}
}

func guildName(s *discordgo.Session, guildID string) string {
	if s != nil && s.State != nil {
		if g, err := s.State.Guild(guildID); err == nil {
			return g.Name
		}
	}
	return "the server"
}

func (e *Extension) handleMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	e.greet(s, Join, m.Member)
}

func (e *Extension) handleMemberRemove(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
	e.greet(s, Leave, m.Member)
}

func (e *Extension) greet(s *discordgo.Session, kind Kind, member *discordgo.Member) {
	if member == nil || member.User == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := e.log.With().Str("guild", member.GuildID).Str("member", member.User.ID).Str("kind", kind.String()).Logger()

	if e.Enabled != nil {
		enabled, err := e.Enabled.IsEnabled(ctx, Name, member.GuildID)
		if err != nil {
			logger.Error().Err(err).Msg("failed checking extension state")
			return
		}
		if !enabled {
			return
		}
	}

	g, err := e.store.Get(ctx, member.GuildID)
	if err != nil {
		logger.Error().Err(err).Msg("failed retrieving greetings")
		return
	}
	if g == nil || !g.Message(kind).Enabled {
		return
	}

	messenger := e.Messenger(s)
	msg := render(kind, g, guildName(s, member.GuildID), member.User.Username)

	if kind == Join {
		err = messenger.DirectMessage(member.User.ID, msg)
		if err == nil {
			return
		}
		logger.Debug().Err(err).Msg("dm refused, falling back to the system channel")
		msg.Content = "<@" + member.User.ID + ">"
	}

	if err := messenger.SystemChannelMessage(member.GuildID, msg); err != nil {
		logger.Error().Err(err).Msg("failed sending greeting")
	}
}
