package administrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// HelpFormatter is a interface for help formatters, for an example see StdHelpFormatter
type HelpFormatter interface {
	// Called when there is help generated for 2 or more commands
	ShortCmdHelp(rc *RegisteredCommand, data *Data) string

	// Called when help is only generated for 1 command
	// You are supposed to dump all command details such as arguments and the long description
	FullCmdHelp(rc *RegisteredCommand, data *Data) string
}

// HelpFilter decides whether a command is listed in help, it is given the invocation data
// so it can look at the origin guild
type HelpFilter func(rc *RegisteredCommand, data *Data) bool

// HelpSet is the commands of one extension as shown in the help overview
type HelpSet struct {
	Extension string
	Container *Container
	Commands  []*RegisteredCommand
}

// SortCommands walks container and its sub containers, grouping the leaf commands by the
// extension owning them. Commands hidden from help or refused by filter are skipped.
func SortCommands(container *Container, data *Data, filter HelpFilter) []*HelpSet {
	sets := make(map[string]*HelpSet)
	var order []string

	var walk func(c *Container)
	walk = func(c *Container) {
		for _, rc := range c.Commands() {
			if rc.Trigger.HideFromHelp {
				continue
			}

			if filter != nil && !filter(rc, data) {
				continue
			}

			if sub, ok := rc.Command.(*Container); ok {
				walk(sub)
				continue
			}

			set, ok := sets[rc.Extension]
			if !ok {
				set = &HelpSet{Extension: rc.Extension, Container: c}
				sets[rc.Extension] = set
				order = append(order, rc.Extension)
			}
			set.Commands = append(set.Commands, rc)
		}
	}
	walk(container)

	sort.Strings(order)
	out := make([]*HelpSet, 0, len(order))
	for _, ext := range order {
		out = append(out, sets[ext])
	}
	return out
}

// GenerateHelp generates the help overview of a container, one embed per extension
func GenerateHelp(d *Data, container *Container, formatter HelpFormatter, filter HelpFilter) (embeds []*discordgo.MessageEmbed) {
	for _, set := range SortCommands(container, d, filter) {
		title := set.Extension
		if title == "" {
			title = "General"
		}

		embed := &discordgo.MessageEmbed{
			Title: strings.TrimSpace(container.HelpTitleEmoji+" "+capitalize(title)) + " help",
			Color: container.HelpColor,
			Footer: &discordgo.MessageEmbedFooter{
				Text: "Do `" + invokedPrefix(d) + "help <command>` for more detailed information on a command or group of commands",
			},
		}

		for _, rc := range set.Commands {
			embed.Description += formatter.ShortCmdHelp(rc, d)
		}

		embeds = append(embeds, embed)
	}

	return
}

// GenerateTargetedHelp generates help for the command or container at path, nil if there is none
func GenerateTargetedHelp(path string, d *Data, container *Container, formatter HelpFormatter, filter HelpFilter) []*discordgo.MessageEmbed {
	current := container
	var found *RegisteredCommand

	rest := path
	for strings.TrimSpace(rest) != "" {
		if current == nil {
			// Extra words after a leaf command
			return nil
		}

		rc, r := current.findCommand(rest)
		if rc == nil || rc.Trigger.HideFromHelp || (filter != nil && !filter(rc, d)) {
			return nil
		}

		found, rest = rc, r
		current, _ = rc.Command.(*Container)
	}

	if found == nil {
		return nil
	}

	if current != nil {
		return GenerateHelp(d, current, formatter, filter)
	}

	return []*discordgo.MessageEmbed{{
		Title:       strings.TrimSpace(container.HelpTitleEmoji+" "+found.QualifiedName()) + " help",
		Color:       container.HelpColor,
		Description: formatter.FullCmdHelp(found, d),
	}}
}

func invokedPrefix(d *Data) string {
	if d == nil {
		return ""
	}
	if d.Source == MentionSource {
		return d.PrefixUsed + " "
	}
	return d.PrefixUsed
}

// capitalize upper cases the first letter of an ascii name
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type StdHelpFormatter struct{}

var _ HelpFormatter = (*StdHelpFormatter)(nil)

func (s *StdHelpFormatter) ShortCmdHelp(rc *RegisteredCommand, data *Data) string {
	short, _ := descriptions(rc.Command)
	if short != "" {
		short = ": " + short
	}

	return fmt.Sprintf("`%s%s`%s\n", invokedPrefix(data), s.usage(rc, data), short)
}

func (s *StdHelpFormatter) FullCmdHelp(rc *RegisteredCommand, data *Data) string {
	short, long := descriptions(rc.Command)
	if long == "" {
		long = short
	}

	var b strings.Builder
	fmt.Fprintf(&b, "```\n%s%s\n```\n", invokedPrefix(data), s.usage(rc, data))
	if len(rc.Trigger.Names) > 1 {
		fmt.Fprintf(&b, "Aliases: %s\n", strings.Join(rc.Trigger.Names[1:], ", "))
	}
	if long != "" {
		b.WriteString(long + "\n")
	}

	if argCmd, ok := rc.Command.(CmdWithArgDefs); ok {
		defs, _ := argCmd.ArgDefs(data)
		for _, def := range defs {
			if def.Help == "" {
				continue
			}
			fmt.Fprintf(&b, "**%s**: %s\n", def.Name, def.Help)
		}
	}

	return b.String()
}

// usage renders "group name <Arg:Type> [Optional:Type]"
func (s *StdHelpFormatter) usage(rc *RegisteredCommand, data *Data) string {
	out := rc.FormatNames(true, "/")

	argCmd, ok := rc.Command.(CmdWithArgDefs)
	if !ok {
		return out
	}

	defs, required := argCmd.ArgDefs(data)
	for i, def := range defs {
		if i < required {
			out += fmt.Sprintf(" <%s:%s>", def.Name, def.Type.HelpName())
		} else {
			out += fmt.Sprintf(" [%s:%s]", def.Name, def.Type.HelpName())
		}
	}

	return out
}

func descriptions(cmd Cmd) (short, long string) {
	if cast, ok := cmd.(CmdWithDescriptions); ok {
		return cast.Descriptions()
	}
	return "", ""
}

// StdHelpCommand shows the help overview, or the targeted help of its argument
type StdHelpCommand struct {
	Formatter HelpFormatter
	// Filter hides commands from the help, for example those of disabled extensions
	Filter HelpFilter
	// Container to show the help of, defaults to the root container
	Container *Container
}

var (
	_ Cmd                 = (*StdHelpCommand)(nil)
	_ CmdWithDescriptions = (*StdHelpCommand)(nil)
	_ CmdWithArgDefs      = (*StdHelpCommand)(nil)
)

func NewStdHelpCommand() *StdHelpCommand {
	return &StdHelpCommand{
		Formatter: &StdHelpFormatter{},
	}
}

func (h *StdHelpCommand) Descriptions() (string, string) {
	return "Shows short help for all commands, or a longer help for a specific command", "Shows help for all or a specific command" +
		"\nExamples: \n`help` - Shows a short summary about all commands\n`help extension enable` - Shows a longer help message for extension enable"
}

func (h *StdHelpCommand) ArgDefs(data *Data) ([]*ArgDef, int) {
	return []*ArgDef{{Name: "Command", Type: String, Help: "The command or group to show help for"}}, 0
}

func (h *StdHelpCommand) Run(d *Data) (interface{}, error) {
	root := h.Container
	if root == nil && len(d.ContainerChain) > 0 {
		root = d.ContainerChain[0]
	}

	if target := d.Arg(0).Str(); target != "" {
		help := GenerateTargetedHelp(target, d, root, h.Formatter, h.Filter)
		if help == nil {
			return nil, &CommandNotFoundError{Name: target}
		}
		return help, nil
	}

	return GenerateHelp(d, root, h.Formatter, h.Filter), nil
}
