// Package utils provides small informational commands
package utils

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"github.com/flifloo/administrator"
	"github.com/flifloo/administrator/lifecycle"
)

const Name = "utils"

type Extension struct {
	Enabled administrator.EnabledChecker
	// Loaded lists the loaded extensions for the about command
	Loaded func() []string
}

var _ lifecycle.Extension = (*Extension)(nil)

func (e *Extension) Description() string { return "Bunch of useful commands" }

func (e *Extension) Setup(ctx context.Context, scope *lifecycle.Scope) error {
	guarded, err := administrator.Guards(administrator.GuardOptions{Enabled: e.Enabled})
	if err != nil {
		return err
	}
	guildOnly, err := administrator.Guards(administrator.GuardOptions{Enabled: e.Enabled, GuildOnly: true})
	if err != nil {
		return err
	}

	scope.AddCommand(&administrator.FuncCmd{
		Short:   "Return the ping with the discord API",
		RunFunc: e.ping,
	}, administrator.NewTrigger("ping").SetMiddlewares(guarded...))

	scope.AddCommand(&administrator.FuncCmd{
		Short:   "Show information about the bot",
		RunFunc: e.about,
	}, administrator.NewTrigger("about").SetMiddlewares(guarded...))

	scope.AddCommand(&administrator.FuncCmd{
		Short:   "Show information on this server",
		RunFunc: e.info,
	}, administrator.NewTrigger("info").SetMiddlewares(guildOnly...))

	return nil
}

func (e *Extension) Teardown(ctx context.Context) error { return nil }

func (e *Extension) ping(data *administrator.Data) (interface{}, error) {
	latency := data.Session.HeartbeatLatency()
	return fmt.Sprintf("Discord WebSocket latency: `%dms`", latency.Milliseconds()), nil
}

func (e *Extension) about(data *administrator.Data) (interface{}, error) {
	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{Name: "Administrator", URL: "https://github.com/flifloo"},
	}

	if s := data.Session; s != nil && s.State != nil {
		if s.State.User != nil {
			embed.Title = s.State.User.Username
		}
		embed.Fields = append(embed.Fields, field("Guilds", strconv.Itoa(len(s.State.Guilds))))
	}

	if e.Loaded != nil {
		embed.Fields = append(embed.Fields, field("Extensions", strconv.Itoa(len(e.Loaded()))))
	}

	if len(data.ContainerChain) > 0 {
		embed.Fields = append(embed.Fields, field("Commands", strconv.Itoa(countCommands(data.ContainerChain[0]))))
	}

	if data.Session != nil {
		embed.Fields = append(embed.Fields, field("Latency", fmt.Sprintf("%d ms", data.Session.HeartbeatLatency().Milliseconds())))
	}

	return embed, nil
}

func (e *Extension) info(data *administrator.Data) (interface{}, error) {
	if data.Session == nil || data.Session.State == nil {
		return nil, errors.New("no state available")
	}

	g, err := data.Session.State.Guild(data.GuildID)
	if err != nil {
		return nil, errors.Wrapf(err, "guild %s", data.GuildID)
	}

	created, err := discordgo.SnowflakeTimestamp(g.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "guild %s", data.GuildID)
	}

	embed := &discordgo.MessageEmbed{
		Title:  g.Name,
		Author: &discordgo.MessageEmbedAuthor{Name: "Guild infos"},
		Fields: []*discordgo.MessageEmbedField{
			field("Owner", "<@"+g.OwnerID+">"),
			field("Members", strconv.Itoa(g.MemberCount)),
			field("Channels", strconv.Itoa(len(g.Channels))),
			field("Roles", strconv.Itoa(len(g.Roles))),
			field("Emojis", strconv.Itoa(len(g.Emojis))),
			field("Premium", fmt.Sprintf("Tier: %d | Boosts %d", g.PremiumTier, g.PremiumSubscriptionCount)),
			field("Created at", created.UTC().Format(time.RFC1123)),
		},
	}

	if g.Description != "" {
		embed.Description = g.Description
	}

	return embed, nil
}

func field(name, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: true}
}

// countCommands counts the runnable commands of c and its sub containers
func countCommands(c *administrator.Container) int {
	n := 0
	for _, rc := range c.Commands() {
		if sub, ok := rc.Command.(*administrator.Container); ok {
			n += countCommands(sub)
			continue
		}
		n++
	}
	return n
}
