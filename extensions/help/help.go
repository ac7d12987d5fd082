// Package help provides the help command, listing only the commands usable in the server
package help

import (
	"context"

	"github.com/flifloo/administrator"
	"github.com/flifloo/administrator/lifecycle"
)

const Name = "help"

type Extension struct {
	// Enabled hides the commands of extensions disabled in the server, may be nil
	Enabled administrator.EnabledChecker
}

var _ lifecycle.Extension = (*Extension)(nil)

func (e *Extension) Description() string { return "Give help and command list" }

func (e *Extension) Setup(ctx context.Context, scope *lifecycle.Scope) error {
	cmd := administrator.NewStdHelpCommand()
	cmd.Filter = e.filter
	scope.AddCommand(cmd, administrator.NewTrigger(Name, "h"))
	return nil
}

func (e *Extension) Teardown(ctx context.Context) error { return nil }

func (e *Extension) filter(rc *administrator.RegisteredCommand, data *administrator.Data) bool {
	if e.Enabled == nil || data == nil || !data.InGuild() || rc.Extension == "" {
		return true
	}

	enabled, err := e.Enabled.IsEnabled(data.Context(), rc.Extension, data.GuildID)
	if err != nil {
		// Listing too much beats failing the help
		return true
	}
	return enabled
}
