// Package reminder lets users schedule a message sent back to them after a delay
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/flifloo/administrator"
	"github.com/flifloo/administrator/internal/duration"
	"github.com/flifloo/administrator/lifecycle"
)

const (
	Name            = "reminder"
	DefaultInterval = time.Minute
)

const dateLayout = "02/01/2006 15:04"

// UnknownReminderError is returned when removing a reminder that does not exist or belongs
// to someone else
type UnknownReminderError struct {
	ID int64
}

func (u *UnknownReminderError) Error() string {
	return fmt.Sprintf("You have no reminder N°%d", u.ID)
}

func (u *UnknownReminderError) IsRejection() bool { return true }

type Extension struct {
	DB        *sqlx.DB
	Enabled   administrator.EnabledChecker
	Messenger administrator.MessengerFactory
	// Session the due reminders are delivered through
	Session *discordgo.Session
	// Interval between two deliveries, DefaultInterval if zero
	Interval time.Duration
	// Now defaults to time.Now
	Now func() time.Time

	store *Store
	log   *zerolog.Logger
}

var _ lifecycle.Extension = (*Extension)(nil)

func (e *Extension) Description() string { return "Create and manage reminders" }

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
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.Interval <= 0 {
		e.Interval = DefaultInterval
	}

	guards, err := administrator.Guards(administrator.GuardOptions{Enabled: e.Enabled})
	if err != nil {
		return err
	}

	group := scope.Group(Name, "remind")
	group.Description = e.Description()
	group.NotFound = &administrator.StdHelpCommand{Formatter: &administrator.StdHelpFormatter{}, Container: group}

	group.AddCommand(&administrator.FuncCmd{
		Short: "Add a reminder to your reminders list",
		Args: []*administrator.ArgDef{
			{Name: "Time", Type: administrator.Duration, Help: "When, ?W?D?H?M?S"},
			{Name: "Message", Type: administrator.String, Help: "The message"},
		},
		RequiredArgs: 2,
		RunFunc:      e.add,
	}, administrator.NewTrigger("add").SetMiddlewares(guards...))

	group.AddCommand(&administrator.FuncCmd{
		Short:   "Show your reminders list",
		RunFunc: e.list,
	}, administrator.NewTrigger("list").SetMiddlewares(guards...))

	group.AddCommand(&administrator.FuncCmd{
		Short:        "Remove the reminder with the matching id",
		Args:         []*administrator.ArgDef{{Name: "ID", Type: administrator.Int, Help: "The reminder id"}},
		RequiredArgs: 1,
		RunFunc:      e.remove,
	}, administrator.NewTrigger("remove").SetMiddlewares(guards...))

	scope.Go(e.loop)
	return nil
}

func (e *Extension) Teardown(ctx context.Context) error { return nil }

func (e *Extension) add(data *administrator.Data) (interface{}, error) {
	d := data.Arg(0).Duration()
	now := e.Now()

	_, err := e.store.Add(data.Context(), &Reminder{
		UserID:    data.AuthorID,
		ChannelID: data.ChannelID,
		Message:   data.Arg(1).Str(),
		DueAt:     now.Add(d).Unix(),
		CreatedAt: now.Unix(),
	})
	if err != nil {
		return nil, err
	}

	return fmt.Sprintf("Remind you in %s !", duration.Format(d)), nil
}

func (e *Extension) list(data *administrator.Data) (interface{}, error) {
	reminders, err := e.store.ListUser(data.Context(), data.AuthorID)
	if err != nil {
		return nil, err
	}

	embed := &discordgo.MessageEmbed{Title: "Reminders list"}
	for _, r := range reminders {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("N°%d | %s", r.ID, r.Due().UTC().Format(dateLayout)),
			Value: r.Message,
		})
	}
	if len(reminders) == 0 {
		embed.Description = "No reminder"
	}

	return embed, nil
}

func (e *Extension) remove(data *administrator.Data) (interface{}, error) {
	id := data.Arg(0).Int64()

	deleted, err := e.store.Delete(data.Context(), id, data.AuthorID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, &UnknownReminderError{ID: id}
	}

	return administrator.ReactionSuccess, nil
}

// loop delivers the due reminders every interval until the extension is unloaded
func (e *Extension) loop(ctx context.Context) {
	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.deliverDue(ctx)
		}
	}
}

// deliverDue sends and forgets every due reminder, a reminder that fails to send is dropped
func (e *Extension) deliverDue(ctx context.Context) int {
	due, err := e.store.Due(ctx, e.Now())
	if err != nil {
		e.log.Error().Err(err).Msg("failed retrieving due reminders")
		return 0
	}

	messenger := e.Messenger(e.Session)
	sent := 0
	for _, r := range due {
		if _, err := e.store.Delete(ctx, r.ID, ""); err != nil {
			e.log.Error().Err(err).Int64("reminder", r.ID).Msg("failed deleting reminder")
			continue
		}

		err := messenger.ChannelMessage(r.ChannelID, &discordgo.MessageSend{
			Content: "<@" + r.UserID + ">",
			Embeds: []*discordgo.MessageEmbed{{
				Title:  "You have a reminder !",
				Fields: []*discordgo.MessageEmbedField{{Name: r.Created().UTC().Format(dateLayout), Value: r.Message}},
			}},
			AllowedMentions: &discordgo.MessageAllowedMentions{Users: []string{r.UserID}},
		})
		if err != nil {
			e.log.Warn().Err(err).Int64("reminder", r.ID).Str("channel", r.ChannelID).Msg("failed delivering reminder")
			continue
		}
		sent++
	}

	return sent
}
