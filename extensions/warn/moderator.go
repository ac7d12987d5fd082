package warn

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// MaxMute is the longest timeout discord accepts
const MaxMute = 28 * 24 * time.Hour

// DefaultMute is used for mute actions configured without a duration
const DefaultMute = 24 * time.Hour

// Moderator applies the sanctions of warn actions
type Moderator interface {
	Kick(guildID, userID, reason string) error
	Ban(guildID, userID, reason string) error
	Mute(guildID, userID string, until time.Time) error
}

type ModeratorFactory func(s *discordgo.Session) Moderator

// SessionModerator sanctions through the discord REST api of s
func SessionModerator(s *discordgo.Session) Moderator {
	return &sessionModerator{s: s}
}

type sessionModerator struct {
	s *discordgo.Session
}

func (m *sessionModerator) Kick(guildID, userID, reason string) error {
	return errors.Wrapf(m.s.GuildMemberDeleteWithReason(guildID, userID, reason), "kick %s", userID)
}

func (m *sessionModerator) Ban(guildID, userID, reason string) error {
	return errors.Wrapf(m.s.GuildBanCreateWithReason(guildID, userID, reason, 0), "ban %s", userID)
}

func (m *sessionModerator) Mute(guildID, userID string, until time.Time) error {
	return errors.Wrapf(m.s.GuildMemberTimeout(guildID, userID, &until), "mute %s", userID)
}
