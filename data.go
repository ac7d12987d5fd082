package administrator

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Data is the context of a single command invocation
type Data struct {
	Cmd  *RegisteredCommand
	Args []*ParsedArg

	Msg     *discordgo.Message
	Session *discordgo.Session
	Source  TriggerSource

	AuthorID string
	// GuildID is empty when the command was sent in a direct message
	GuildID   string
	ChannelID string
	// Permissions of the author in ChannelID when the message was received
	Permissions int64

	PrefixUsed string

	// The message with the prefix removed (either mention or command prefix)
	MsgStrippedPrefix string

	// The chain of containers we went through, first element is always root
	ContainerChain []*Container

	// The system that triggered this command
	System *System

	// InvocationID identifies this invocation in logs and in error replies
	InvocationID string

	context context.Context
}

// Context returns an always non-nil context
func (d *Data) Context() context.Context {
	if d.context == nil {
		return context.Background()
	}

	return d.context
}

// WithContext creates a copy of d with the context set to ctx
func (d *Data) WithContext(ctx context.Context) *Data {
	cop := new(Data)
	*cop = *d
	cop.context = ctx
	return cop
}

// Extension returns the extension owning the invoked command, if any
func (d *Data) Extension() string {
	if d.Cmd == nil {
		return ""
	}
	return d.Cmd.Extension
}

// InGuild reports whether the invocation comes from a guild channel
func (d *Data) InGuild() bool {
	return d.GuildID != ""
}

// Arg returns the parsed argument at index i, or nil if there is none
func (d *Data) Arg(i int) *ParsedArg {
	if i < 0 || i >= len(d.Args) {
		return nil
	}
	return d.Args[i]
}

// Where this command comes from
type TriggerSource int

const (
	DMSource TriggerSource = iota
	MentionSource
	PrefixSource
)
