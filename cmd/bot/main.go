package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/tilepairs/bot"
	"github.com/domino14/tilepairs/config"
	"github.com/domino14/tilepairs/store"
)

const (
	GracefulShutdownTimeout = 20 * time.Second
)

func main() {
	cfg := &config.Config{}
	if _, err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.Info().Msgf("Loaded config: %v", cfg.SanitizedSettings())

	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st *store.SolutionStore
	if path := cfg.GetString(config.ConfigSolutionDBPath); path != "" {
		var err error
		st, err = store.Open(ctx, path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("could-not-open-solution-store")
		}
		defer st.Close()
	}

	nc, err := bot.Connect(ctx, cfg.GetString(config.ConfigNatsURL))
	if err != nil {
		log.Fatal().AnErr("natsConnectErr", err).Msg(":(")
	}

	b := bot.NewBot(cfg, st)
	if err := bot.Main(ctx, nc, cfg.GetString(config.ConfigNatsChannel), b); err != nil {
		log.Fatal().Err(err).Msg("bot-failed")
	}
	log.Info().Msg("got quit signal...")

	// Let in-flight replies go out before closing.
	if err := nc.FlushTimeout(GracefulShutdownTimeout); err != nil {
		log.Err(err).Msg("flush")
	}
	nc.Close()
	log.Info().Msg("server gracefully shutting down")
}
