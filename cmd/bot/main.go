package main

import (
	"context"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/you/tg-thumbnailer/internal/bot"
	"github.com/you/tg-thumbnailer/internal/config"
	"github.com/you/tg-thumbnailer/internal/ffmpeg"
	"github.com/you/tg-thumbnailer/internal/gate"
	"github.com/you/tg-thumbnailer/internal/logx"
	"github.com/you/tg-thumbnailer/internal/pipeline"
	"github.com/you/tg-thumbnailer/internal/store"
)

func main() {
	logx.Setup(logx.FromEnv("bot"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration invalid")
	}

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("store open failed")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram auth failed")
	}
	api.Debug = false
	log.Info().Str("username", api.Self.UserName).Msg("bot authorized")

	// health endpoint
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"ok":true}`)) })
		log.Info().Msg("bot health on :8080/health")
		log.Error().Err(http.ListenAndServe(":8080", nil)).Msg("health server stopped")
	}()

	tc := bot.NewTelegramClient(api)
	g := gate.New(db, tc, cfg.ForceSubChannel)
	mux := ffmpeg.New(cfg.FfmpegPath)
	runner := pipeline.NewRunner(db, tc, tc, mux, cfg.TempDir, cfg.DefaultCaption)

	srv := bot.New(cfg, api, tc, db, g, runner)
	if err := srv.Run(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("update loop ended")
	}
}
