package administrator

import (
	"strings"
)

// Cmd is the interface all commands must implement to be considered a command
type Cmd interface {
	// Run the command, the returned response is passed to the system's ResponseSender
	Run(data *Data) (interface{}, error)
}

// CmdWithDescriptions commands have a short description shown in the help overview and a
// long one for targeted help
type CmdWithDescriptions interface {
	Cmd

	Descriptions() (short, long string)
}

// CmdWithArgDefs commands get their arguments parsed before Run is called
type CmdWithArgDefs interface {
	Cmd

	// ArgDefs returns the argument definitions and how many of them are required
	ArgDefs(data *Data) (args []*ArgDef, required int)
}

// RegisteredCommand is a command added to a container together with its trigger
type RegisteredCommand struct {
	Command Cmd
	Trigger *Trigger

	// Extension owning this command, empty for commands registered by the host itself
	Extension string

	container *Container
}

// FormatNames returns the command names, prefixed by the names of its parent containers
func (r *RegisteredCommand) FormatNames(includeAliases bool, aliasSep string) string {
	names := r.Trigger.Names[0]
	if includeAliases && len(r.Trigger.Names) > 1 {
		names = strings.Join(r.Trigger.Names, aliasSep)
	}

	if r.container == nil {
		return names
	}

	if parent := r.container.FullName(false); parent != "" {
		return parent + " " + names
	}

	return names
}

// QualifiedName is the full space separated path to the command, e.g. "extension enable"
func (r *RegisteredCommand) QualifiedName() string {
	return r.FormatNames(false, "")
}

// FuncCmd is a command built from a run function and its help metadata
type FuncCmd struct {
	Short, Long string

	Args         []*ArgDef
	RequiredArgs int

	RunFunc RunFunc
}

// Compile time assertions, will not compile unless FuncCmd implements these interfaces
var (
	_ Cmd                 = (*FuncCmd)(nil)
	_ CmdWithDescriptions = (*FuncCmd)(nil)
	_ CmdWithArgDefs      = (*FuncCmd)(nil)
)

func (f *FuncCmd) Descriptions() (string, string)      { return f.Short, f.Long }
func (f *FuncCmd) ArgDefs(data *Data) ([]*ArgDef, int) { return f.Args, f.RequiredArgs }
func (f *FuncCmd) Run(data *Data) (interface{}, error) { return f.RunFunc(data) }
