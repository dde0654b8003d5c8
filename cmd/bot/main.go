// Command bot runs the Valorant match tracker: it opens the SQLite store,
// connects to Discord, and drives the alert poll loop until the process is
// signaled to stop.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"valbot/internal/bot"
	"valbot/internal/config"
	"valbot/internal/metrics"
	"valbot/internal/poller"
	"valbot/internal/repo"
	"valbot/internal/services"
	"valbot/internal/sysutil"
	"valbot/internal/valorant"
)

func main() {
	// Load .env when present; real environments set variables directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)

	if cfg.DiscordToken == "" {
		log.Fatal().Msg("DISCORD_TOKEN is not set")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("opening database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrating schema failed")
	}

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatal().Err(err).Msg("creating discord session failed")
	}
	if err := session.Open(); err != nil {
		log.Fatal().Err(err).Msg("opening discord session failed")
	}
	defer session.Close()

	client := valorant.NewClient(cfg.Upstream)
	matches := services.NewMatchService(db)
	notifier := bot.NewNotifier(db, session)
	loop := poller.New(db, client, matches, notifier, cfg.Poll.Interval, cfg.Poll.AliasDelay)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	loop.Start(ctx)

	log.Info().Str("db", cfg.DBPath).Msg("bot running")
	<-ctx.Done()

	log.Info().Msg("shutting down")
	loop.Stop()
	os.Exit(0)
}
