package help

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flifloo/administrator"
	"github.com/flifloo/administrator/lifecycle"
)

type disabledSet map[string]bool

func (d disabledSet) IsEnabled(ctx context.Context, extension, guildID string) (bool, error) {
	return !d[extension], nil
}

type groupExtension string

func (g groupExtension) Setup(ctx context.Context, scope *lifecycle.Scope) error {
	group := scope.Group(string(g))
	group.AddCommand(&administrator.FuncCmd{Short: "Does things", RunFunc: func(*administrator.Data) (interface{}, error) { return nil, nil }},
		administrator.NewTrigger("show"))
	return nil
}

func (g groupExtension) Teardown(ctx context.Context) error { return nil }

func TestHelpHidesDisabled(t *testing.T) {
	root := &administrator.Container{}
	ctl := lifecycle.NewController(root, nil)
	ctl.Register(Name, func() lifecycle.Extension { return &Extension{Enabled: disabledSet{"warn": true}} })
	ctl.Register("warn", func() lifecycle.Extension { return groupExtension("warn") })
	ctl.Register("greetings", func() lifecycle.Extension { return groupExtension("greetings") })
	for _, name := range ctl.Available() {
		require.NoError(t, ctl.Load(context.Background(), name))
	}

	resp, err := root.Run(&administrator.Data{MsgStrippedPrefix: "help", Source: administrator.PrefixSource, GuildID: "1"})
	require.NoError(t, err)
	embeds := resp.([]*discordgo.MessageEmbed)
	titles := make([]string, 0, len(embeds))
	for _, e := range embeds {
		titles = append(titles, e.Title)
	}
	assert.Equal(t, []string{"Greetings help", "Help help"}, titles)

	// Direct messages list everything
	resp, err = root.Run(&administrator.Data{MsgStrippedPrefix: "h", Source: administrator.PrefixSource})
	require.NoError(t, err)
	assert.Len(t, resp, 3)

	_, err = root.Run(&administrator.Data{MsgStrippedPrefix: "help warn show", Source: administrator.PrefixSource, GuildID: "1"})
	assert.IsType(t, &administrator.CommandNotFoundError{}, err)
}
