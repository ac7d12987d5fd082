// Command administrator runs the bot: it loads the configured extensions, then serves
// commands and gateway events until interrupted
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/flifloo/administrator"
	"github.com/flifloo/administrator/config"
	"github.com/flifloo/administrator/extensions/extension"
	"github.com/flifloo/administrator/extensions/greetings"
	"github.com/flifloo/administrator/extensions/help"
	"github.com/flifloo/administrator/extensions/reminder"
	"github.com/flifloo/administrator/extensions/utils"
	"github.com/flifloo/administrator/extensions/warn"
	"github.com/flifloo/administrator/lifecycle"
	"github.com/flifloo/administrator/reconcile"
	"github.com/flifloo/administrator/registry"
	"github.com/flifloo/administrator/store"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed loading config")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("bot stopped")
	}
	log.Info().Msg("bot exited cleanly")
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	reg, err := registry.New(ctx, db)
	if err != nil {
		return err
	}

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return err
	}
	session.Identify.Intents = discordgo.IntentsAll

	owners := administrator.NewOwnerSet(cfg.OwnerIDs...)
	sys := administrator.NewStandardSystem(cfg.Prefix)
	ctl := lifecycle.NewController(sys.Root, session)
	rec := reconcile.New(reg, ctl)

	registerExtensions(ctl, db, reg, rec, owners, session, cfg)

	for _, name := range cfg.Extensions {
		if err := ctl.Load(ctx, name); err != nil {
			// The bot still starts, an owner can fix and load it at runtime
			log.Error().Err(err).Str("extension", name).Msg("failed loading extension")
		}
	}

	session.AddHandler(sys.HandleMessageCreate)
	session.AddHandler(rec.HandleReady)
	session.AddHandler(rec.HandleGuildCreate)
	session.AddHandler(rec.HandleGuildDelete)
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("connected")
		if owners.Len() == 0 {
			resolveOwner(s, owners)
		}
	})

	if err := session.Open(); err != nil {
		return err
	}
	log.Info().Msg("running, ctrl-c to stop")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	if err := ctl.UnloadAll(context.Background()); err != nil {
		log.Error().Err(err).Msg("failed unloading extensions")
	}
	return session.Close()
}

func registerExtensions(ctl *lifecycle.Controller, db *sqlx.DB, reg *registry.Registry, rec *reconcile.Reconciler,
	owners administrator.Owners, session *discordgo.Session, cfg *config.Config) {

	ctl.Register(extension.Name, func() lifecycle.Extension {
		return &extension.Extension{Lifecycle: ctl, States: reg, Reconciler: rec, Owners: owners}
	})
	ctl.Register(help.Name, func() lifecycle.Extension {
		return &help.Extension{Enabled: reg}
	})
	ctl.Register(utils.Name, func() lifecycle.Extension {
		return &utils.Extension{Enabled: reg, Loaded: ctl.ListLoaded}
	})
	ctl.Register(greetings.Name, func() lifecycle.Extension {
		return &greetings.Extension{DB: db, Enabled: reg}
	})
	ctl.Register(warn.Name, func() lifecycle.Extension {
		return &warn.Extension{DB: db, Enabled: reg}
	})
	ctl.Register(reminder.Name, func() lifecycle.Extension {
		return &reminder.Extension{DB: db, Enabled: reg, Session: session, Interval: cfg.ReminderInterval}
	})
}

// resolveOwner makes the owner of the bot application its only owner
func resolveOwner(s *discordgo.Session, owners *administrator.OwnerSet) {
	app, err := s.Application("@me")
	if err != nil {
		log.Error().Err(err).Msg("failed retrieving the application owner")
		return
	}
	if app.Owner != nil {
		owners.Add(app.Owner.ID)
		log.Info().Str("owner", app.Owner.ID).Msg("owner resolved from the application")
	}
}
