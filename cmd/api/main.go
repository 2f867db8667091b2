package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/v78582514-blip/notes-app-clean/internal/config"
	"github.com/v78582514-blip/notes-app-clean/internal/kv"
	"github.com/v78582514-blip/notes-app-clean/internal/server"
	"github.com/v78582514-blip/notes-app-clean/internal/share"
	"github.com/v78582514-blip/notes-app-clean/internal/store"
	"github.com/v78582514-blip/notes-app-clean/internal/ws"
)

func main() {
	cfg := config.Load()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx := context.Background()

	var (
		kvs kv.Store
		err error
	)
	if cfg.DatabaseURL != "" {
		kvs, err = kv.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("opening postgres state store failed")
		}
	} else {
		log.Warn().Msg("DATABASE_URL not set, state is kept in memory only")
		kvs = kv.NewMemory()
	}
	defer kvs.Close()

	st := store.New(kvs, log)
	if err := st.Load(ctx); err != nil {
		// Not fatal: the server starts with an empty store and the
		// client retries through POST /reload.
		log.Error().Err(err).Msg("initial load failed, starting empty")
	}

	hub := ws.NewHub(log)
	go hub.Run()
	st.Subscribe(hub.Broadcast)

	srv := server.New(st, hub, share.LogSink{Log: log}, []byte(cfg.JWTSecret), log)
	srv.RegisterRoutes()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("notes api listening")
	if err := srv.Listen(cfg.HTTPAddr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
