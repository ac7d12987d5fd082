package administrator

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionBit(t *testing.T) {
	cases := []struct {
		name string
		bit  int64
	}{
		{"kick_members", discordgo.PermissionKickMembers},
		{"ban_members", discordgo.PermissionBanMembers},
		{"administrator", discordgo.PermissionAdministrator},
		{"manage_guild", discordgo.PermissionManageServer},
		{"mute_members", discordgo.PermissionVoiceMuteMembers},
		{"view_channel", discordgo.PermissionViewChannel},
		{"read_messages", discordgo.PermissionViewChannel},
		{"moderate_members", discordgo.PermissionModerateMembers},
	}

	for k, v := range cases {
		t.Run(fmt.Sprintf("#%d-%s", k, v.name), func(t *testing.T) {
			bit, ok := PermissionBit(v.name)
			require.True(t, ok)
			assert.Equal(t, v.bit, bit)
		})
	}

	_, ok := PermissionBit("manage_everything")
	assert.False(t, ok)
}

func TestAdministratorGrantsEverything(t *testing.T) {
	assert.Equal(t, ^int64(0), EffectivePermissions(discordgo.PermissionAdministrator))
	assert.Equal(t, int64(discordgo.PermissionKickMembers), EffectivePermissions(discordgo.PermissionKickMembers))

	missing, err := MissingPermissions(discordgo.PermissionAdministrator, map[string]bool{"ban_members": true, "manage_guild": true})
	require.NoError(t, err)
	assert.Empty(t, missing)
}
