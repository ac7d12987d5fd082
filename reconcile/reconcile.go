// Package reconcile keeps the per guild extension states in line with the loaded
// extensions and the guilds the bot is in
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultExempt are the extensions that can never be toggled per guild
var DefaultExempt = []string{"extension", "help"}

// Registry is the part of the extension registry the reconciler writes through
type Registry interface {
	ListKnownExtensions(ctx context.Context) ([]string, error)
	RegisterIfAbsent(ctx context.Context, name string) (bool, error)
	EnsureState(ctx context.Context, name, guildID string) (bool, error)
	DeleteGuild(ctx context.Context, guildID string) (int64, error)
}

// LoadedLister lists the extensions currently loaded in the process
type LoadedLister interface {
	ListLoaded() []string
}

// PairError is the failure to reconcile one extension in one guild
type PairError struct {
	Extension string
	GuildID   string
	Err       error
}

func (p *PairError) Error() string {
	return fmt.Sprintf("reconcile %s in %s: %s", p.Extension, p.GuildID, p.Err)
}

func (p *PairError) Cause() error { return p.Err }

// Report sums up a reconciliation, failures of single pairs do not stop the others
type Report struct {
	Created  int
	Failures []*PairError
}

func (r *Report) fail(ext, guildID string, err error) {
	r.Failures = append(r.Failures, &PairError{Extension: ext, GuildID: guildID, Err: err})
}

// Err returns nil if every pair was reconciled
func (r *Report) Err() error {
	if r == nil || len(r.Failures) == 0 {
		return nil
	}

	msgs := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		msgs[i] = f.Error()
	}
	return errors.Errorf("%d reconciliation failure(s): %s", len(r.Failures), strings.Join(msgs, "; "))
}

type Reconciler struct {
	registry Registry
	loaded   LoadedLister
	exempt   map[string]bool
	log      zerolog.Logger

	mu     sync.RWMutex
	guilds map[string]struct{}
}

// New creates a reconciler, exempt defaults to DefaultExempt
func New(registry Registry, loaded LoadedLister, exempt ...string) *Reconciler {
	if len(exempt) == 0 {
		exempt = DefaultExempt
	}

	r := &Reconciler{
		registry: registry,
		loaded:   loaded,
		exempt:   make(map[string]bool),
		log:      log.With().Str("component", "reconcile").Logger(),
		guilds:   make(map[string]struct{}),
	}
	for _, e := range exempt {
		r.exempt[e] = true
	}
	return r
}

// Guilds returns the guilds the bot is known to be in, sorted
func (r *Reconciler) Guilds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.guilds))
	for g := range r.guilds {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Exempt reports whether the extension can not be toggled per guild
func (r *Reconciler) Exempt(name string) bool {
	return r.exempt[name]
}

// OnReady registers every loaded extension and creates its state in every guild
func (r *Reconciler) OnReady(ctx context.Context, guildIDs []string) *Report {
	r.mu.Lock()
	r.guilds = make(map[string]struct{}, len(guildIDs))
	for _, g := range guildIDs {
		r.guilds[g] = struct{}{}
	}
	r.mu.Unlock()

	report := &Report{}
	for _, name := range r.loaded.ListLoaded() {
		r.reconcileExtension(ctx, report, name, guildIDs)
	}
	return report
}

// OnLoad registers an extension loaded at runtime and creates its state in every known guild
func (r *Reconciler) OnLoad(ctx context.Context, name string) *Report {
	report := &Report{}
	r.reconcileExtension(ctx, report, name, r.Guilds())
	return report
}

func (r *Reconciler) reconcileExtension(ctx context.Context, report *Report, name string, guildIDs []string) {
	if r.exempt[name] {
		return
	}

	if _, err := r.registry.RegisterIfAbsent(ctx, name); err != nil {
		// Still try the states, they do not depend on the extension row
		report.fail(name, "", err)
	}

	for _, g := range guildIDs {
		r.ensure(ctx, report, name, g)
	}
}

// OnGuildJoin creates the state of every known extension in the new guild
func (r *Reconciler) OnGuildJoin(ctx context.Context, guildID string) *Report {
	r.mu.Lock()
	r.guilds[guildID] = struct{}{}
	r.mu.Unlock()

	report := &Report{}
	known, err := r.registry.ListKnownExtensions(ctx)
	if err != nil {
		report.fail("", guildID, err)
		return report
	}

	for _, name := range known {
		if r.exempt[name] {
			continue
		}
		r.ensure(ctx, report, name, guildID)
	}
	return report
}

func (r *Reconciler) ensure(ctx context.Context, report *Report, name, guildID string) {
	created, err := r.registry.EnsureState(ctx, name, guildID)
	if err != nil {
		report.fail(name, guildID, err)
		return
	}
	if created {
		report.Created++
	}
}

// OnGuildLeave deletes every state scoped to the guild, there is no retry on failure
func (r *Reconciler) OnGuildLeave(ctx context.Context, guildID string) error {
	r.mu.Lock()
	delete(r.guilds, guildID)
	r.mu.Unlock()

	n, err := r.registry.DeleteGuild(ctx, guildID)
	if err != nil {
		return errors.WithMessagef(err, "guild %s left", guildID)
	}

	r.log.Debug().Str("guild", guildID).Int64("states", n).Msg("removed guild states")
	return nil
}

// known reports whether the guild was already seen
func (r *Reconciler) known(guildID string) bool {
	r.mu.RLock()
	_, ok := r.guilds[guildID]
	r.mu.RUnlock()
	return ok
}

func (r *Reconciler) logReport(report *Report, event string) {
	for _, f := range report.Failures {
		r.log.Error().Err(f.Err).Str("event", event).Str("extension", f.Extension).Str("guild", f.GuildID).Msg("reconciliation failed")
	}

	r.log.Info().Str("event", event).Int("created", report.Created).Int("failures", len(report.Failures)).Msg("reconciled extension states")
}
