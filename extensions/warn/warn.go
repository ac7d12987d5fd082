// Package warn lets moderators warn members, and sanction them automatically once their
// warn count reaches a configured number
package warn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/flifloo/administrator"
	"github.com/flifloo/administrator/internal/duration"
	"github.com/flifloo/administrator/lifecycle"
)

const Name = "warn"

const (
	ActionKick    = "kick"
	ActionBan     = "ban"
	ActionMute    = "mute"
	ActionNothing = "nothing"
)

const dmClosed = "Fail to send warn notification to the user, DM close " + string(administrator.ReactionWarning)

var userArg = &administrator.ArgDef{Name: "User", Type: administrator.UserID, Help: "The user"}

type Extension struct {
	DB        *sqlx.DB
	Enabled   administrator.EnabledChecker
	Messenger administrator.MessengerFactory
	Moderator ModeratorFactory
	// Now defaults to time.Now
	Now func() time.Time

	store *Store
	log   *zerolog.Logger
}

var _ lifecycle.Extension = (*Extension)(nil)

func (e *Extension) Description() string {
	return "Send warning to user and make custom action after a number of warn"
}

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
	if e.Moderator == nil {
		e.Moderator = SessionModerator
	}
	if e.Now == nil {
		e.Now = time.Now
	}

	moderate, err := administrator.Guards(administrator.GuardOptions{
		Enabled:     e.Enabled,
		GuildOnly:   true,
		Permissions: map[string]bool{"kick_members": true, "ban_members": true, "mute_members": true},
	})
	if err != nil {
		return err
	}
	admin, err := administrator.Guards(administrator.GuardOptions{
		Enabled:     e.Enabled,
		GuildOnly:   true,
		Permissions: map[string]bool{"administrator": true},
	})
	if err != nil {
		return err
	}

	group := scope.Group(Name)
	group.Description = e.Description()
	group.NotFound = &administrator.StdHelpCommand{Formatter: &administrator.StdHelpFormatter{}, Container: group}

	group.AddCommand(&administrator.FuncCmd{
		Short:        "Send a warn to a user",
		Args:         []*administrator.ArgDef{userArg, {Name: "Description", Type: administrator.String, Help: "The description"}},
		RequiredArgs: 2,
		RunFunc:      e.add,
	}, administrator.NewTrigger("add").SetMiddlewares(moderate...))

	group.AddCommand(&administrator.FuncCmd{
		Short:        "Remove a warn of a user",
		Args:         []*administrator.ArgDef{userArg, {Name: "Number", Type: administrator.Int, Help: "The warn to remove, as shown in the list"}},
		RequiredArgs: 2,
		RunFunc:      e.remove,
	}, administrator.NewTrigger("remove").SetMiddlewares(moderate...))

	group.AddCommand(&administrator.FuncCmd{
		Short:        "Remove all warn of a user",
		Args:         []*administrator.ArgDef{userArg},
		RequiredArgs: 1,
		RunFunc:      e.purge,
	}, administrator.NewTrigger("purge").SetMiddlewares(moderate...))

	group.AddCommand(&administrator.FuncCmd{
		Short:   "List warn of the guild or a specified user",
		Args:    []*administrator.ArgDef{userArg},
		RunFunc: e.list,
	}, administrator.NewTrigger("list").SetMiddlewares(moderate...))

	group.AddCommand(&administrator.FuncCmd{
		Short:   "List all the actions of the guild",
		RunFunc: e.actions,
	}, administrator.NewTrigger("actions").SetMiddlewares(moderate...))

	group.AddCommand(&administrator.FuncCmd{
		Short: "Set an action for a count of warn, nothing removes it",
		Args: []*administrator.ArgDef{
			{Name: "Count", Type: &administrator.IntArg{Min: 1, Max: 1000}, Help: "The number of warns"},
			{Name: "Action", Type: &administrator.ChoiceArg{Choices: []string{ActionMute, ActionKick, ActionBan, ActionNothing}}, Help: "The action"},
			{Name: "Time", Type: administrator.Duration, Help: "The duration of a mute"},
		},
		RequiredArgs: 2,
		RunFunc:      e.setAction,
	}, administrator.NewTrigger("action").SetMiddlewares(admin...))

	scope.AddHandler(e.handleGuildDelete)
	return nil
}

func (e *Extension) Teardown(ctx context.Context) error { return nil }

func (e *Extension) add(data *administrator.Data) (interface{}, error) {
	target, description := data.Arg(0).Str(), data.Arg(1).Str()

	err := e.store.Add(data.Context(), &Warn{
		GuildID:     data.GuildID,
		UserID:      target,
		AuthorID:    data.AuthorID,
		Description: description,
		CreatedAt:   e.Now().Unix(),
	})
	if err != nil {
		return nil, err
	}

	var reply administrator.MultiResponse
	dm := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{{
		Title:       "You get warned !",
		Description: "A moderator send you a warn",
		Color:       0xff0000,
		Fields:      []*discordgo.MessageEmbedField{{Name: "Description:", Value: description}},
	}}}
	if err := e.Messenger(data.Session).DirectMessage(target, dm); err != nil {
		e.log.Debug().Err(err).Str("user", target).Msg("warn notification refused")
		reply = append(reply, dmClosed)
	} else {
		reply = append(reply, administrator.ReactionSuccess)
	}

	if msg := e.applyAction(data.Context(), data.Session, data.GuildID, target); msg != "" {
		reply = append(reply, msg)
	}

	return reply, nil
}

// applyAction sanctions the member if an action matches their warn count, it returns a
// message for the moderator when the sanction failed
func (e *Extension) applyAction(ctx context.Context, s *discordgo.Session, guildID, userID string) string {
	count, err := e.store.Count(ctx, guildID, userID)
	if err != nil {
		e.log.Error().Err(err).Msg("failed counting warns")
		return ""
	}

	action, err := e.store.Action(ctx, guildID, count)
	if err != nil {
		e.log.Error().Err(err).Msg("failed retrieving warn action")
		return ""
	}
	if action == nil {
		return ""
	}

	reason := fmt.Sprintf("Action after %d warns", count)
	moderator := e.Moderator(s)

	switch action.Action {
	case ActionKick:
		err = moderator.Kick(guildID, userID, reason)
	case ActionBan:
		err = moderator.Ban(guildID, userID, reason)
	case ActionMute:
		d := action.Duration()
		if d <= 0 {
			d = DefaultMute
		}
		if d > MaxMute {
			d = MaxMute
		}
		err = moderator.Mute(guildID, userID, e.Now().Add(d))
	}

	if err != nil {
		e.log.Error().Err(err).Str("guild", guildID).Str("user", userID).Str("action", action.Action).Msg("failed applying warn action")
		return fmt.Sprintf("Failed to %s the user %s", action.Action, administrator.ReactionWarning)
	}
	return ""
}

func (e *Extension) remove(data *administrator.Data) (interface{}, error) {
	warns, err := e.store.List(data.Context(), data.GuildID, data.Arg(0).Str())
	if err != nil {
		return nil, err
	}

	n := data.Arg(1).Int64()
	if n <= 0 || n > int64(len(warns)) {
		return nil, &administrator.OutOfRangeError{ArgName: "Number", Min: 1, Max: int64(len(warns)), Got: n}
	}

	if err := e.store.Delete(data.Context(), warns[n-1].ID); err != nil {
		return nil, err
	}
	return administrator.ReactionSuccess, nil
}

func (e *Extension) purge(data *administrator.Data) (interface{}, error) {
	if _, err := e.store.Purge(data.Context(), data.GuildID, data.Arg(0).Str()); err != nil {
		return nil, err
	}
	return administrator.ReactionSuccess, nil
}

func (e *Extension) list(data *administrator.Data) (interface{}, error) {
	warns, err := e.store.List(data.Context(), data.GuildID, data.Arg(0).Str())
	if err != nil {
		return nil, err
	}

	var order []string
	byUser := make(map[string][]string)
	for _, w := range warns {
		if _, ok := byUser[w.UserID]; !ok {
			order = append(order, w.UserID)
		}
		line := fmt.Sprintf("<@%s> - %s```%s```", w.AuthorID, w.Created().UTC().Format("02/01/2006 15:04"), w.Description)
		byUser[w.UserID] = append(byUser[w.UserID], line)
	}

	embed := &discordgo.MessageEmbed{Title: "Warn list"}
	for _, u := range order {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  userName(data.Session, data.GuildID, u),
			Value: strings.Join(byUser[u], "\n"),
		})
	}
	if len(order) == 0 {
		embed.Description = "No warn"
	}

	return embed, nil
}

func (e *Extension) actions(data *administrator.Data) (interface{}, error) {
	actions, err := e.store.Actions(data.Context(), data.GuildID)
	if err != nil {
		return nil, err
	}

	embed := &discordgo.MessageEmbed{Title: "Actions list"}
	for _, a := range actions {
		value := a.Action
		if d := a.Duration(); d > 0 {
			value = fmt.Sprintf("%s for %s", a.Action, duration.Format(d))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: fmt.Sprintf("%d warn(s)", a.Count), Value: value})
	}
	if len(actions) == 0 {
		embed.Description = "No action"
	}

	return embed, nil
}

func (e *Extension) setAction(data *administrator.Data) (interface{}, error) {
	count, action := data.Arg(0).Int64(), data.Arg(1).Str()

	if action == ActionNothing {
		existed, err := e.store.DeleteAction(data.Context(), data.GuildID, count)
		if err != nil {
			return nil, err
		}
		if !existed {
			return fmt.Sprintf("No action for %d warn(s)", count), nil
		}
		return administrator.ReactionSuccess, nil
	}

	a := &Action{GuildID: data.GuildID, Count: count, Action: action}
	if d := data.Arg(2).Duration(); d > 0 {
		a.Seconds.Int64, a.Seconds.Valid = int64(d/time.Second), true
	}

	if err := e.store.SetAction(data.Context(), a); err != nil {
		return nil, err
	}
	return administrator.ReactionSuccess, nil
}

func (e *Extension) handleGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Guild == nil || g.Unavailable {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.store.DeleteGuild(ctx, g.ID); err != nil {
		e.log.Error().Err(err).Str("guild", g.ID).Msg("failed deleting guild warns")
	}
}

func userName(s *discordgo.Session, guildID, userID string) string {
	if s != nil && s.State != nil {
		if m, err := s.State.Member(guildID, userID); err == nil && m.User != nil {
			return m.User.Username
		}
	}
	return userID
}
