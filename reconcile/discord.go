package reconcile

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

// HandlerTimeout bounds the store work done for a single gateway event
var HandlerTimeout = 30 * time.Second

// HandleReady reconciles the loaded extensions against the guilds of the ready event
func (r *Reconciler) HandleReady(s *discordgo.Session, ready *discordgo.Ready) {
	ctx, cancel := context.WithTimeout(context.Background(), HandlerTimeout)
	defer cancel()

	guildIDs := make([]string, 0, len(ready.Guilds))
	for _, g := range ready.Guilds {
		guildIDs = append(guildIDs, g.ID)
	}

	r.logReport(r.OnReady(ctx, guildIDs), "ready")
}

// HandleGuildCreate treats guilds not part of the ready event as joined. Guilds becoming
// available after startup are already known and skipped.
func (r *Reconciler) HandleGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || r.known(g.ID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), HandlerTimeout)
	defer cancel()

	r.logReport(r.OnGuildJoin(ctx, g.ID), "guild join")
}

// HandleGuildDelete cascades the guild states when the bot left the guild, outages are ignored
func (r *Reconciler) HandleGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Guild == nil || g.Unavailable {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), HandlerTimeout)
	defer cancel()

	if err := r.OnGuildLeave(ctx, g.ID); err != nil {
		r.log.Error().Err(err).Str("guild", g.ID).Msg("failed removing guild states")
	}
}
