package administrator

import (
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// Messenger sends messages outside of a command reply, from event handlers and loops
type Messenger interface {
	ChannelMessage(channelID string, msg *discordgo.MessageSend) error
	DirectMessage(userID string, msg *discordgo.MessageSend) error
	// SystemChannelMessage sends to the system channel of the guild
	SystemChannelMessage(guildID string, msg *discordgo.MessageSend) error
}

// MessengerFactory creates the messenger used for a session, extensions keep it as a
// field so tests can replace it
type MessengerFactory func(s *discordgo.Session) Messenger

// SessionMessenger sends through the discord REST api of s
func SessionMessenger(s *discordgo.Session) Messenger {
	return &sessionMessenger{s: s}
}

type sessionMessenger struct {
	s *discordgo.Session
}

func (m *sessionMessenger) ChannelMessage(channelID string, msg *discordgo.MessageSend) error {
	_, err := m.s.ChannelMessageSendComplex(channelID, msg)
	return errors.Wrapf(err, "send to channel %s", channelID)
}

func (m *sessionMessenger) DirectMessage(userID string, msg *discordgo.MessageSend) error {
	ch, err := m.s.UserChannelCreate(userID)
	if err != nil {
		return errors.Wrapf(err, "open dm with %s", userID)
	}

	return m.ChannelMessage(ch.ID, msg)
}

func (m *sessionMessenger) SystemChannelMessage(guildID string, msg *discordgo.MessageSend) error {
	var (
		g   *discordgo.Guild
		err error
	)
	if m.s.State != nil {
		g, err = m.s.State.Guild(guildID)
	}
	if g == nil || err != nil {
		g, err = m.s.Guild(guildID)
		if err != nil {
			return errors.Wrapf(err, "guild %s", guildID)
		}
	}

	if g.SystemChannelID == "" {
		return errors.Errorf("guild %s has no system channel", guildID)
	}

	return m.ChannelMessage(g.SystemChannelID, msg)
}
