// Package extension provides the commands managing extensions: per guild enable and
// disable for server managers, and load, unload and reload for the bot owners
package extension

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/flifloo/administrator"
	"github.com/flifloo/administrator/lifecycle"
	"github.com/flifloo/administrator/reconcile"
	"github.com/flifloo/administrator/registry"
)

const Name = "extension"

// Lifecycle is the part of the lifecycle controller driven by the owner commands
type Lifecycle interface {
	Load(ctx context.Context, name string) error
	Unload(ctx context.Context, name string) error
	Reload(ctx context.Context, name string) error
	ListLoaded() []string
	Available() []string
	Describe(name string) string
}

// States is the part of the registry used by the guild commands
type States interface {
	ListEnabledState(ctx context.Context, guildID string) (map[string]bool, error)
	SetEnabled(ctx context.Context, name, guildID string, value bool) (registry.Change, error)
}

// Reconciler creates the guild states of extensions loaded at runtime
type Reconciler interface {
	OnLoad(ctx context.Context, name string) *reconcile.Report
}

type Extension struct {
	Lifecycle  Lifecycle
	States     States
	Reconciler Reconciler
	Owners     administrator.Owners

	log *zerolog.Logger
}

var _ lifecycle.Extension = (*Extension)(nil)

func (e *Extension) Description() string { return "Manage bot's extensions" }

func (e *Extension) Setup(ctx context.Context, scope *lifecycle.Scope) error {
	e.log = scope.Logger()

	group := scope.Group(Name)
	group.Description = e.Description()
	group.NotFound = &administrator.StdHelpCommand{Formatter: &administrator.StdHelpFormatter{}, Container: group}

	manage := administrator.MustGuards(administrator.GuardOptions{
		GuildOnly:   true,
		Permissions: map[string]bool{"manage_guild": true},
	})
	owner := administrator.OwnerGuard(e.Owners)

	nameArg := []*administrator.ArgDef{{Name: "Name", Type: administrator.String, Help: "Name of the extension"}}

	group.AddCommand(&administrator.StdHelpCommand{Formatter: &administrator.StdHelpFormatter{}, Container: group},
		administrator.NewTrigger("help"))

	group.AddCommand(&administrator.FuncCmd{
		Short:   "List the extensions of this server and whether they are enabled",
		RunFunc: e.list,
	}, administrator.NewTrigger("list").SetMiddlewares(manage...))

	group.AddCommand(&administrator.FuncCmd{
		Short:        "Enable an extension on this server",
		Args:         nameArg,
		RequiredArgs: 1,
		RunFunc:      e.toggle(true),
	}, administrator.NewTrigger("enable").SetMiddlewares(manage...))

	group.AddCommand(&administrator.FuncCmd{
		Short:        "Disable an extension on this server",
		Args:         nameArg,
		RequiredArgs: 1,
		RunFunc:      e.toggle(false),
	}, administrator.NewTrigger("disable").SetMiddlewares(manage...))

	group.AddCommand(&administrator.FuncCmd{
		Short:        "Load an extension",
		Args:         nameArg,
		RequiredArgs: 1,
		RunFunc:      e.lifecycleOp("load", e.Lifecycle.Load, true),
	}, administrator.NewTrigger("load").SetMiddlewares(owner))

	group.AddCommand(&administrator.FuncCmd{
		Short:        "Unload an extension",
		Args:         nameArg,
		RequiredArgs: 1,
		RunFunc:      e.lifecycleOp("unload", e.Lifecycle.Unload, false),
	}, administrator.NewTrigger("unload").SetMiddlewares(owner))

	group.AddCommand(&administrator.FuncCmd{
		Short:        "Reload an extension, it stays unloaded if loading it again fails",
		Args:         nameArg,
		RequiredArgs: 1,
		RunFunc:      e.lifecycleOp("reload", e.Lifecycle.Reload, true),
	}, administrator.NewTrigger("reload").SetMiddlewares(owner))

	group.AddCommand(&administrator.FuncCmd{
		Short:   "List the loaded extensions",
		RunFunc: e.loaded,
	}, administrator.NewTrigger("loaded").SetMiddlewares(owner))

	return nil
}

func (e *Extension) Teardown(ctx context.Context) error { return nil }

func (e *Extension) list(data *administrator.Data) (interface{}, error) {
	states, err := e.States.ListEnabledState(data.Context(), data.GuildID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)

	embed := &discordgo.MessageEmbed{Title: "Extensions list"}
	for _, name := range names {
		state := "Disabled"
		if states[name] {
			state = "Enabled"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: name, Value: state})
	}

	if len(names) == 0 {
		embed.Description = "No extension can be toggled on this server"
	}

	return embed, nil
}

func (e *Extension) toggle(value bool) administrator.RunFunc {
	word := "disabled"
	if value {
		word = "enabled"
	}

	return func(data *administrator.Data) (interface{}, error) {
		name := data.Arg(0).Str()

		change, err := e.States.SetEnabled(data.Context(), name, data.GuildID, value)
		if err != nil {
			return nil, err
		}

		if change == registry.Unchanged {
			return fmt.Sprintf("Extension `%s` already %s", name, word), nil
		}

		return fmt.Sprintf("Extension `%s` %s", name, word), nil
	}
}

// lifecycleOp runs op on the named extension. Failures are answered with a warning and
// the diagnostic of the fault, they never reach the generic error reply.
func (e *Extension) lifecycleOp(verb string, op func(context.Context, string) error, reconcileAfter bool) administrator.RunFunc {
	return func(data *administrator.Data) (interface{}, error) {
		name := data.Arg(0).Str()

		err := op(data.Context(), name)
		if err != nil {
			e.log.Error().Err(err).Str("extension", name).Str("invocation", data.InvocationID).Msgf("%s failed", verb)
			return administrator.MultiResponse{administrator.ReactionWarning, lifecycle.Diagnostic(err)}, nil
		}

		if reconcileAfter && e.Reconciler != nil {
			report := e.Reconciler.OnLoad(data.Context(), name)
			for _, f := range report.Failures {
				e.log.Error().Err(f.Err).Str("extension", f.Extension).Str("guild", f.GuildID).Msg("reconciliation failed")
			}
		}

		return administrator.ReactionSuccess, nil
	}
}

func (e *Extension) loaded(data *administrator.Data) (interface{}, error) {
	loaded := make(map[string]bool)
	for _, name := range e.Lifecycle.ListLoaded() {
		loaded[name] = true
	}

	embed := &discordgo.MessageEmbed{Title: "Loaded extensions"}
	var unloaded []string
	for _, name := range e.Lifecycle.Available() {
		if !loaded[name] {
			unloaded = append(unloaded, name)
			continue
		}

		desc := e.Lifecycle.Describe(name)
		if desc == "" {
			desc = "Loaded"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: name, Value: desc})
	}

	if len(unloaded) > 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Not loaded: " + strings.Join(unloaded, ", ")}
	}

	return embed, nil
}
