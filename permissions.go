package administrator

import (
	"sort"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// Discord permission bits, keyed by the names used in permission requirements
var permissionFlags = map[string]int64{
	"create_instant_invite":    discordgo.PermissionCreateInstantInvite,
	"kick_members":             discordgo.PermissionKickMembers,
	"ban_members":              discordgo.PermissionBanMembers,
	"administrator":            discordgo.PermissionAdministrator,
	"manage_channels":          discordgo.PermissionManageChannels,
	"manage_guild":             discordgo.PermissionManageServer,
	"add_reactions":            discordgo.PermissionAddReactions,
	"view_audit_log":           discordgo.PermissionViewAuditLogs,
	"priority_speaker":         discordgo.PermissionVoicePrioritySpeaker,
	"stream":                   discordgo.PermissionVoiceStreamVideo,
	"read_messages":            discordgo.PermissionViewChannel,
	"view_channel":             discordgo.PermissionViewChannel,
	"send_messages":            discordgo.PermissionSendMessages,
	"send_tts_messages":        discordgo.PermissionSendTTSMessages,
	"manage_messages":          discordgo.PermissionManageMessages,
	"embed_links":              discordgo.PermissionEmbedLinks,
	"attach_files":             discordgo.PermissionAttachFiles,
	"read_message_history":     discordgo.PermissionReadMessageHistory,
	"mention_everyone":         discordgo.PermissionMentionEveryone,
	"external_emojis":          discordgo.PermissionUseExternalEmojis,
	"view_guild_insights":      discordgo.PermissionViewGuildInsights,
	"connect":                  discordgo.PermissionVoiceConnect,
	"speak":                    discordgo.PermissionVoiceSpeak,
	"mute_members":             discordgo.PermissionVoiceMuteMembers,
	"deafen_members":           discordgo.PermissionVoiceDeafenMembers,
	"move_members":             discordgo.PermissionVoiceMoveMembers,
	"use_voice_activation":     discordgo.PermissionVoiceUseVAD,
	"change_nickname":          discordgo.PermissionChangeNickname,
	"manage_nicknames":         discordgo.PermissionManageNicknames,
	"manage_roles":             discordgo.PermissionManageRoles,
	"manage_webhooks":          discordgo.PermissionManageWebhooks,
	"manage_emojis":            discordgo.PermissionManageEmojis,
	"use_application_commands": discordgo.PermissionUseSlashCommands,
	"request_to_speak":         discordgo.PermissionVoiceRequestToSpeak,
	"manage_events":            discordgo.PermissionManageEvents,
	"manage_threads":           discordgo.PermissionManageThreads,
	"create_public_threads":    discordgo.PermissionCreatePublicThreads,
	"create_private_threads":   discordgo.PermissionCreatePrivateThreads,
	"external_stickers":        discordgo.PermissionUseExternalStickers,
	"send_messages_in_threads": discordgo.PermissionSendMessagesInThreads,
	"use_embedded_activities":  discordgo.PermissionUseActivities,
	"moderate_members":         discordgo.PermissionModerateMembers,
}

var ErrUnknownPermission = errors.New("unknown permission flag")

// PermissionBit returns the bit of the named permission flag
func PermissionBit(name string) (int64, bool) {
	bit, ok := permissionFlags[name]
	return bit, ok
}

// ValidPermissionFlags returns every known flag name, sorted
func ValidPermissionFlags() []string {
	out := make([]string, 0, len(permissionFlags))
	for k := range permissionFlags {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// EffectivePermissions expands a raw permission snapshot, administrator grants everything
func EffectivePermissions(perms int64) int64 {
	if perms&discordgo.PermissionAdministrator != 0 {
		return ^int64(0)
	}
	return perms
}

// MissingPermissions returns the sorted names in required whose value does not match perms
func MissingPermissions(perms int64, required map[string]bool) ([]string, error) {
	effective := EffectivePermissions(perms)

	var missing []string
	for name, want := range required {
		bit, ok := permissionFlags[name]
		if !ok {
			return nil, errors.Wrap(ErrUnknownPermission, name)
		}

		if (effective&bit != 0) != want {
			missing = append(missing, name)
		}
	}

	sort.Strings(missing)
	return missing, nil
}
