// Package bot wires Telegram updates to the store, gate and pipeline.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/you/tg-thumbnailer/internal/config"
	"github.com/you/tg-thumbnailer/internal/gate"
	"github.com/you/tg-thumbnailer/internal/logx"
	"github.com/you/tg-thumbnailer/internal/pipeline"
	"github.com/you/tg-thumbnailer/internal/store"
)

// transport is everything the handlers need from Telegram besides the
// update stream itself.
type transport interface {
	pipeline.Messenger
	SendPhoto(chatID int64, replyTo int, fileID, caption string) error
}

type Server struct {
	cfg   config.Config
	api   *tgbotapi.BotAPI
	tg    transport
	store *store.Store
	gate  *gate.Gate
	pipe  *pipeline.Runner
}

func New(cfg config.Config, api *tgbotapi.BotAPI, tg transport, s *store.Store, g *gate.Gate, p *pipeline.Runner) *Server {
	return &Server{cfg: cfg, api: api, tg: tg, store: s, gate: g, pipe: p}
}

// Run consumes the long-poll update stream until it closes. Each message is
// handled on its own goroutine; a panicking handler is logged and dropped,
// never allowed to take the loop down.
func (s *Server) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := s.api.GetUpdatesChan(u)

	for upd := range updates {
		if upd.Message == nil || upd.Message.From == nil {
			continue
		}
		m := upd.Message
		go func() {
			defer func() {
				if v := recover(); v != nil {
					log.Error().Interface("panic", v).Int64("user_id", m.From.ID).Msg("handler panicked")
				}
			}()
			mctx := logx.WithChat(logx.WithUser(ctx, m.From.ID), m.Chat.ID)
			s.onMessage(mctx, m)
		}()
	}
	return nil
}

func (s *Server) onMessage(ctx context.Context, m *tgbotapi.Message) {
	l := logx.FromCtx(ctx)
	l.Info().Msg("message received")

	switch {
	case m.IsCommand():
		s.onCommand(ctx, m)
	case len(m.Photo) > 0:
		s.onPhoto(ctx, m)
	default:
		if fileID, size, ok := extractVideo(m); ok {
			s.onVideo(ctx, m, fileID, size)
		}
	}
}

func (s *Server) onCommand(ctx context.Context, m *tgbotapi.Message) {
	switch m.Command() {
	case "start":
		s.cmdStart(ctx, m)
	case "viewthumb":
		s.cmdViewThumb(ctx, m)
	case "delthumb":
		s.cmdDelThumb(ctx, m)
	case "set_caption":
		s.cmdSetCaption(ctx, m)
	case "see_caption":
		s.cmdSeeCaption(ctx, m)
	case "del_caption":
		s.cmdDelCaption(ctx, m)
	case "myplan":
		s.cmdMyPlan(ctx, m)
	case "ping":
		s.reply(m, "🏓 Pong! Bot is running.")
	case "stats":
		if s.isOwner(m) {
			s.cmdStats(ctx, m)
		}
	case "ban":
		if s.isOwner(m) {
			s.cmdSetFlag(ctx, m, s.store.SetBanned, true, "User %d banned.")
		}
	case "unban":
		if s.isOwner(m) {
			s.cmdSetFlag(ctx, m, s.store.SetBanned, false, "User %d unbanned.")
		}
	case "addpremium":
		if s.isOwner(m) {
			s.cmdSetFlag(ctx, m, s.store.SetPremium, true, "Premium granted to %d.")
		}
	}
}

func (s *Server) isOwner(m *tgbotapi.Message) bool {
	return m.From.ID == s.cfg.OwnerID
}

// passGate runs the full gate and replies with the applicable notice on a
// deny. Used before every stateful handler.
func (s *Server) passGate(ctx context.Context, m *tgbotapi.Message) bool {
	d := s.gate.Check(ctx, m.From.ID)
	if d.Allowed {
		return true
	}
	switch d.Reason {
	case gate.ReasonBanned:
		s.reply(m, "❌ You are banned from using this bot.")
	case gate.ReasonNotSubscribed:
		s.reply(m, fmt.Sprintf("❌ Please join @%s to use this bot.", s.gate.Channel()))
	}
	return false
}

func (s *Server) reply(m *tgbotapi.Message, text string) {
	if _, err := s.tg.Reply(m.Chat.ID, m.MessageID, text); err != nil {
		log.Error().Err(err).Int64("chat_id", m.Chat.ID).Msg("reply failed")
	}
}
