package administrator

import (
	"fmt"
	"strings"
)

type InvalidInt struct {
	Part string
}

func (i *InvalidInt) Error() string {
	return fmt.Sprintf("%q is not a whole number", i.Part)
}

type InvalidDuration struct {
	Part string
}

func (i *InvalidDuration) Error() string {
	return fmt.Sprintf("%q is not a duration, expected ?W?D?H?M?S", i.Part)
}

type InvalidChoice struct {
	Part    string
	Choices []string
}

func (i *InvalidChoice) Error() string {
	return fmt.Sprintf("%q is not one of %s", i.Part, strings.Join(i.Choices, ", "))
}

type ImproperMention struct {
	Part string
}

func (i *ImproperMention) Error() string {
	return fmt.Sprintf("Improper mention %q", i.Part)
}

type OutOfRangeError struct {
	ArgName  string
	Min, Max int64
	Got      int64
}

func (o *OutOfRangeError) Error() string {
	preStr := "too big"
	if o.Got < o.Min {
		preStr = "too small"
	}

	return fmt.Sprintf("%s is %s (has to be %d - %d)", o.ArgName, preStr, o.Min, o.Max)
}

// CommandNotFoundError is returned by the root container when nothing matched the input
type CommandNotFoundError struct {
	Name string
}

func (c *CommandNotFoundError) Error() string {
	return fmt.Sprintf("Command %q not found", c.Name)
}

// NotOwnerError is returned by OwnerGuard when the author does not own the bot
type NotOwnerError struct{}

func (n *NotOwnerError) Error() string {
	return "You do not own this bot."
}

// NoPrivateContextError is returned by GuildOnlyGuard for direct messages
type NoPrivateContextError struct{}

func (n *NoPrivateContextError) Error() string {
	return "This command cannot be used in private messages."
}

// MissingPermissionsError lists every required permission flag whose effective value in
// the origin channel differs from the required one
type MissingPermissionsError struct {
	Missing []string
}

func (m *MissingPermissionsError) Error() string {
	return fmt.Sprintf("You are missing %s permission(s) to run this command.", strings.Join(m.Missing, ", "))
}
