package administrator

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type System struct {
	Root           *Container
	Prefix         PrefixProvider
	ResponseSender ResponseSender
	Log            zerolog.Logger
}

func NewStandardSystem(staticPrefix string) (system *System) {
	logger := log.With().Str("component", "commands").Logger()

	sys := &System{
		Root:           &Container{HelpTitleEmoji: "ℹ️", HelpColor: 0xbeff7a, RunInDM: true, IgnoreBots: true},
		ResponseSender: &StdResponseSender{Log: logger},
		Log:            logger,
	}
	if staticPrefix != "" {
		sys.Prefix = NewSimplePrefixProvider(staticPrefix)
	}

	return sys
}

// You can add this as a handler directly to discordgo, it will recover from any panics that occured in commands
// and log errors
func (sys *System) HandleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Set up handler to recover from panics
	defer func() {
		if r := recover(); r != nil {
			sys.handlePanic(r)
		}
	}()

	err := sys.CheckMessage(s, m)
	if err != nil {
		sys.Log.Error().Err(err).Str("channel", m.ChannelID).Msg("failed checking message")
	}
}

// CheckMessage checks the message for commands, and triggers any command that the message should trigger
// you should not add this as an discord handler directly, if you want to do that you should add "system.HandleMessageCreate" instead.
func (sys *System) CheckMessage(s *discordgo.Session, m *discordgo.MessageCreate) error {
	if m.Author == nil || (s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID) {
		// Never respond to ourselves
		return nil
	}

	data := sys.FillData(s, m.Message)
	if !sys.FindPrefix(data) {
		// No prefix found in the message for a command to be triggered
		return nil
	}

	data.Permissions = sys.authorPermissions(s, data)

	response, err := sys.runCommand(data)
	return sys.ResponseSender.SendResponse(data, response, err)
}

// runCommand runs the root container, a panic in a command becomes an unclassified error
// so the author still gets the generic reply with the invocation id
func (sys *System) runCommand(data *Data) (response interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			sys.Log.Error().Str("invocation", data.InvocationID).Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).Msg("recovered from panic in command")
			response, err = nil, errors.Errorf("panic in command: %v", r)
		}
	}()

	return sys.Root.Run(data)
}

// FindPrefix checks if the message has a proper command prefix (either from the PrefixProvider or a direction mention to the bot)
// It sets the source field, and MsgStripped in data if found
func (sys *System) FindPrefix(data *Data) (found bool) {
	defer func() {
		if found && !data.InGuild() {
			data.Source = DMSource
		}
	}()

	if sys.FindMentionPrefix(data) {
		return true
	}

	// Check for custom prefix
	if sys.Prefix == nil {
		return false
	}

	prefix := sys.Prefix.Prefix(data)
	if prefix == "" {
		return false
	}

	if strings.HasPrefix(data.Msg.Content, prefix) {
		data.PrefixUsed = prefix
		data.Source = PrefixSource
		data.MsgStrippedPrefix = strings.TrimSpace(strings.TrimPrefix(data.Msg.Content, prefix))
		found = true
	}

	return
}

func (sys *System) FindMentionPrefix(data *Data) (found bool) {
	if data.Session == nil || data.Session.State == nil || data.Session.State.User == nil {
		return false
	}

	// Normal and nickname mentions
	id := data.Session.State.User.ID
	for _, mention := range []string{"<@" + id + ">", "<@!" + id + ">"} {
		if !strings.HasPrefix(data.Msg.Content, mention) {
			continue
		}

		data.PrefixUsed = mention
		data.MsgStrippedPrefix = strings.TrimSpace(strings.TrimPrefix(data.Msg.Content, mention))
		data.Source = MentionSource
		return true
	}

	return false
}

// FillData creates the invocation data for m, the invocation id is used to correlate the
// logs of an invocation with the reply given to its author
func (sys *System) FillData(s *discordgo.Session, m *discordgo.Message) *Data {
	data := &Data{
		Msg:          m,
		Session:      s,
		System:       sys,
		GuildID:      m.GuildID,
		ChannelID:    m.ChannelID,
		InvocationID: uuid.NewString(),
	}

	if m.Author != nil {
		data.AuthorID = m.Author.ID
	}

	if m.GuildID == "" {
		data.Source = DMSource
	}

	return data
}

// authorPermissions looks up the author permissions in the origin channel, from the state
// cache when possible
func (sys *System) authorPermissions(s *discordgo.Session, data *Data) int64 {
	if !data.InGuild() || s == nil {
		return 0
	}

	if s.State != nil {
		perms, err := s.State.UserChannelPermissions(data.AuthorID, data.ChannelID)
		if err == nil {
			return perms
		}
	}

	perms, err := s.UserChannelPermissions(data.AuthorID, data.ChannelID)
	if err != nil {
		sys.Log.Warn().Err(errors.WithStack(err)).Str("channel", data.ChannelID).Msg("failed retrieving permissions")
		return 0
	}

	return perms
}

func (sys *System) handlePanic(r interface{}) {
	sys.Log.Error().Str("panic", fmt.Sprint(r)).Bytes("stack", debug.Stack()).Msg("recovered from panic while handling message")
}

// Retrieves the prefix that might be different on a per server basis
type PrefixProvider interface {
	Prefix(data *Data) string
}

// Simple Prefix provider for global fixed prefixes
type SimplePrefixProvider struct {
	prefix string
}

func NewSimplePrefixProvider(prefix string) PrefixProvider {
	return &SimplePrefixProvider{prefix: prefix}
}

func (pp *SimplePrefixProvider) Prefix(d *Data) string {
	return pp.prefix
}
