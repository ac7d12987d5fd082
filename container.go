package administrator

import (
	"strings"
	"sync"
)

type MiddleWareFunc func(next RunFunc) RunFunc
type RunFunc func(data *Data) (interface{}, error)

// Container is the standard muxer
// Containers can be nested by calling Container.Sub(...)
type Container struct {
	// Called when a sub container is invoked without a matching sub command,
	// if nil a CommandNotFoundError is returned
	NotFound Cmd

	// Set to ignore bots
	IgnoreBots bool
	// Set to also run this muxer in dm's
	RunInDM bool

	// Extension owning this container, inherited by the commands added to it
	Extension string

	// The muxer names
	Names []string
	// The muxer description
	Description     string
	LongDescription string

	HelpColor      int
	HelpTitleEmoji string

	Parent *Container

	mu          sync.RWMutex
	commands    []*RegisteredCommand
	middlewares []MiddleWareFunc
}

var (
	_ Cmd                 = (*Container)(nil)
	_ CmdWithDescriptions = (*Container)(nil)
)

func (c *Container) Descriptions() (string, string) { return c.Description, c.LongDescription }

func (c *Container) Run(data *Data) (interface{}, error) {
	if c.shouldIgnore(data) {
		return nil, nil
	}

	matching, rest := c.findCommand(data.MsgStrippedPrefix)
	data.ContainerChain = append(data.ContainerChain, c)

	if matching == nil {
		isSub := len(data.ContainerChain) > 1
		if isSub && c.NotFound != nil {
			data.Cmd = &RegisteredCommand{Command: c.NotFound, Trigger: NewTrigger("help"), Extension: c.Extension, container: c}
			return c.NotFound.Run(data)
		}

		if !isSub && strings.TrimSpace(data.MsgStrippedPrefix) == "" {
			// Only the prefix or a mention, nothing to run
			return nil, nil
		}

		return nil, &CommandNotFoundError{Name: firstWord(data.MsgStrippedPrefix)}
	}

	data.MsgStrippedPrefix = rest
	data.Cmd = matching

	if matching.Trigger.DisableInDM && data.Source == DMSource {
		return nil, nil
	}

	if sub, ok := matching.Command.(*Container); ok {
		return c.chain(matching, sub.Run)(data)
	}

	// Arguments are parsed last so rejected invocations never see parse errors
	return c.chain(matching, withArgParsing(matching.Command.Run))(data)
}

// chain builds the run chain for a command found in this container: the container chain
// middlewares (root first) wrap the trigger middlewares, which wrap inner
func (c *Container) chain(cmd *RegisteredCommand, inner RunFunc) RunFunc {
	last := inner
	for i := len(cmd.Trigger.Middlewares) - 1; i >= 0; i-- {
		last = cmd.Trigger.Middlewares[i](last)
	}

	// Sub containers apply their own middlewares when they run
	return c.buildMiddlewareChain(last)
}

func (c *Container) shouldIgnore(data *Data) bool {
	if c.IgnoreBots && data.Msg != nil && data.Msg.Author != nil && data.Msg.Author.Bot {
		return true
	}

	if data.Source == DMSource && !c.RunInDM {
		return true
	}

	return false
}

func (c *Container) findCommand(stripped string) (cmd *RegisteredCommand, rest string) {
	stripped = strings.TrimSpace(stripped)
	if stripped == "" {
		return nil, ""
	}

	name := firstWord(stripped)

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, rc := range c.commands {
		for _, n := range rc.Trigger.Names {
			if strings.EqualFold(n, name) {
				return rc, strings.TrimSpace(stripped[len(name):])
			}
		}
	}

	return nil, stripped
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) < 1 {
		return ""
	}
	return fields[0]
}

// Commands returns a snapshot of the commands registered on this container
func (c *Container) Commands() []*RegisteredCommand {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*RegisteredCommand, len(c.commands))
	copy(out, c.commands)
	return out
}

// Sub creates a new container, registers it as a command on c and returns it
// The sub container inherits the settings of c but no commands or middlewares
func (c *Container) Sub(mainName string, aliases ...string) (*Container, *RegisteredCommand) {
	sub := &Container{
		IgnoreBots:     c.IgnoreBots,
		RunInDM:        c.RunInDM,
		Extension:      c.Extension,
		HelpColor:      c.HelpColor,
		HelpTitleEmoji: c.HelpTitleEmoji,
		Names:          append([]string{mainName}, aliases...),
		Parent:         c,
	}

	rc := c.AddCommand(sub, NewTrigger(mainName, aliases...))
	return sub, rc
}

// AddCommand registers cmd under the names of trigger
func (c *Container) AddCommand(cmd Cmd, trigger *Trigger) *RegisteredCommand {
	return c.AddExtensionCommand(c.Extension, cmd, trigger)
}

// AddExtensionCommand registers cmd on behalf of extension
func (c *Container) AddExtensionCommand(extension string, cmd Cmd, trigger *Trigger) *RegisteredCommand {
	rc := &RegisteredCommand{
		Command:   cmd,
		Trigger:   trigger,
		Extension: extension,
		container: c,
	}

	c.mu.Lock()
	c.commands = append(c.commands, rc)
	c.mu.Unlock()

	return rc
}

// RemoveCommand removes a previously registered command, reporting whether it was found
func (c *Container) RemoveCommand(rc *RegisteredCommand) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, v := range c.commands {
		if v != rc {
			continue
		}

		c.commands = append(c.commands[:i:i], c.commands[i+1:]...)
		return true
	}

	return false
}

func (c *Container) AddMidlewares(mw ...MiddleWareFunc) {
	c.mu.Lock()
	c.middlewares = append(c.middlewares, mw...)
	c.mu.Unlock()
}

func (c *Container) buildMiddlewareChain(r RunFunc) RunFunc {
	c.mu.RLock()
	mws := c.middlewares
	c.mu.RUnlock()

	for i := range mws {
		r = mws[len(mws)-1-i](r)
	}

	return r
}

// FullName returns the space separated names of this container and its parents
func (c *Container) FullName(includeAliases bool) string {
	name := ""
	if len(c.Names) > 0 {
		name = c.Names[0]
		if includeAliases {
			name = strings.Join(c.Names, "/")
		}
	}

	if c.Parent == nil {
		return name
	}

	parent := c.Parent.FullName(includeAliases)
	if parent == "" {
		return name
	}

	return parent + " " + name
}
