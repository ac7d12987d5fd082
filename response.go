package administrator

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	ReactionNotFound Reaction = "❓"
	ReactionBadArg   Reaction = "❌"
	ReactionRejected Reaction = "⛔"
	ReactionWarning  Reaction = "⚠"
	ReactionSuccess  Reaction = "\U0001f44d"
)

// GenericErrorFormat is sent for unclassified errors, with the invocation id
const GenericErrorFormat = "An error occurred ! (ref `%s`)"

type Response interface {
	// Channel, session, command etc can all be found in this context
	Send(data *Data) ([]*discordgo.Message, error)
}

func SendResponseInterface(data *Data, reply interface{}, escapeEveryoneMention bool) ([]*discordgo.Message, error) {
	allowedMentions := &discordgo.MessageAllowedMentions{}
	if !escapeEveryoneMention {
		allowedMentions.Parse = []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeRoles, discordgo.AllowedMentionTypeUsers}
	}

	switch t := reply.(type) {
	case Response:
		return t.Send(data)
	case string:
		if t != "" {
			return SplitSendMessage(data.Session, data.ChannelID, t, allowedMentions)
		}
		return []*discordgo.Message{}, nil
	case error:
		if t != nil {
			return SplitSendMessage(data.Session, data.ChannelID, t.Error(), allowedMentions)
		}
		return []*discordgo.Message{}, nil
	case *discordgo.MessageEmbed:
		m, err := data.Session.ChannelMessageSendEmbed(data.ChannelID, t)
		return []*discordgo.Message{m}, err
	case []*discordgo.MessageEmbed:
		msgs := make([]*discordgo.Message, 0, len(t))
		for _, embed := range t {
			m, err := data.Session.ChannelMessageSendEmbed(data.ChannelID, embed)
			if err != nil {
				return msgs, err
			}
			msgs = append(msgs, m)
		}
		return msgs, nil
	case *discordgo.MessageSend:
		m, err := data.Session.ChannelMessageSendComplex(data.ChannelID, t)
		return []*discordgo.Message{m}, err
	}

	return nil, errors.New("Unknown reply type: " + reflect.TypeOf(reply).String() + " (Does not implement Response)")
}

// Reaction reacts to the invoking message with the emoji, or sends it as text when there
// is no message to react to
type Reaction string

func (r Reaction) Send(data *Data) ([]*discordgo.Message, error) {
	if data.Msg == nil {
		return SendResponseInterface(data, string(r), true)
	}

	err := data.Session.MessageReactionAdd(data.ChannelID, data.Msg.ID, string(r))
	return nil, errors.Wrap(err, "add reaction")
}

// MultiResponse sends every response in order, stopping at the first failure
type MultiResponse []interface{}

func (m MultiResponse) Send(data *Data) ([]*discordgo.Message, error) {
	var out []*discordgo.Message
	for _, v := range m {
		msgs, err := SendResponseInterface(data, v, true)
		out = append(out, msgs...)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// Rejection is implemented by errors refusing a command for a reason the author is expected
// to fix, they get a rejected reaction and are not logged
type Rejection interface {
	error
	IsRejection() bool
}

// ErrorClass is how an error returned by a command is presented to its author
type ErrorClass int

const (
	// Unclassified errors are failures of the bot, they are logged and answered with a generic message
	ErrorClassUnclassified ErrorClass = iota
	ErrorClassNotFound
	ErrorClassBadArgument
	ErrorClassRejected
)

// ClassifyError looks at the cause of err to decide how it should be reported
func ClassifyError(err error) ErrorClass {
	switch t := errors.Cause(err).(type) {
	case *CommandNotFoundError:
		return ErrorClassNotFound
	case *InvalidInt, *InvalidDuration, *InvalidChoice, *ImproperMention, *OutOfRangeError:
		return ErrorClassBadArgument
	case *NotOwnerError, *NoPrivateContextError, *MissingPermissionsError:
		return ErrorClassRejected
	case Rejection:
		if t.IsRejection() {
			return ErrorClassRejected
		}
	}

	if errors.Cause(err) == ErrNotEnoughArguments {
		return ErrorClassBadArgument
	}

	return ErrorClassUnclassified
}

// ErrorReply returns the reply for a failed invocation
func ErrorReply(data *Data, err error) interface{} {
	switch ClassifyError(err) {
	case ErrorClassNotFound:
		return ReactionNotFound
	case ErrorClassBadArgument:
		return ReactionBadArg
	case ErrorClassRejected:
		return ReactionRejected
	default:
		return fmt.Sprintf(GenericErrorFormat, data.InvocationID)
	}
}

type ResponseSender interface {
	SendResponse(cmdData *Data, resp interface{}, err error) error
}

// StdResponseSender sends command responses, expected errors are answered with a reaction
// and unclassified ones are logged with the invocation id given to the author
type StdResponseSender struct {
	Log zerolog.Logger
}

var _ ResponseSender = (*StdResponseSender)(nil)

func (s *StdResponseSender) SendResponse(cmdData *Data, resp interface{}, err error) error {
	if err != nil {
		if ClassifyError(err) == ErrorClassUnclassified {
			s.Log.Error().Err(err).
				Str("invocation", cmdData.InvocationID).
				Str("command", commandName(cmdData)).
				Str("guild", cmdData.GuildID).
				Str("author", cmdData.AuthorID).
				Msg("command failed")
		} else {
			s.Log.Debug().Err(err).Str("invocation", cmdData.InvocationID).Str("command", commandName(cmdData)).Msg("command rejected")
		}

		resp = ErrorReply(cmdData, err)
	}

	if resp == nil {
		return nil
	}

	_, errR := SendResponseInterface(cmdData, resp, false)
	return errR
}

func commandName(data *Data) string {
	if data.Cmd == nil {
		return ""
	}
	return data.Cmd.FormatNames(false, "/")
}

// SplitSendMessage uses SplitString to make sure each message is within 2k characters and splits at last newline before that (if possible)
func SplitSendMessage(s *discordgo.Session, channelID string, contents string, allowedMentions *discordgo.MessageAllowedMentions) ([]*discordgo.Message, error) {
	result := make([]*discordgo.Message, 0, 1)

	split := SplitString(contents, 2000)
	for _, v := range split {
		m, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Content:         v,
			AllowedMentions: allowedMentions,
		})
		if err != nil {
			return result, err
		}

		result = append(result, m)
	}

	return result, nil
}

// SplitString uses StrSplitNext to split a string at the last newline before maxLen, throwing away leading and ending whitespaces in the process
func SplitString(s string, maxLen int) []string {
	result := make([]string, 0, 1)

	rest := s
	for strings.TrimSpace(rest) != "" {
		var split string
		split, rest = StrSplitNext(rest, maxLen)

		split = strings.TrimSpace(split)
		if split == "" {
			continue
		}

		result = append(result, split)
	}

	return result
}

// StrSplitNext Will split "s" before runecount at last possible newline, whitespace or just at "runecount" if there is no whitespace
// If the runecount in "s" is less than "runeCount" then "rest" will be empty
func StrSplitNext(s string, runeCount int) (split, rest string) {
	if utf8.RuneCountInString(s) <= runeCount {
		return s, ""
	}

	beforeIndex := runeOffset(s, runeCount)
	firstPart := s[:beforeIndex]

	// Split at newline if possible, then at any whitespace
	lastIndex := strings.LastIndex(firstPart, "\n")
	if lastIndex == -1 {
		lastIndex = strings.LastIndexFunc(firstPart, unicode.IsSpace)
	}

	if lastIndex <= 0 {
		return s[:beforeIndex], s[beforeIndex:]
	}

	// Remove the whitespace we split at
	_, rLen := utf8.DecodeRuneInString(s[lastIndex:])
	return s[:lastIndex], s[lastIndex+rLen:]
}

// runeOffset returns the byte offset of the rune at runePos
func runeOffset(s string, runePos int) int {
	i := 0
	for k := range s {
		if i == runePos {
			return k
		}
		i++
	}
	return len(s)
}
