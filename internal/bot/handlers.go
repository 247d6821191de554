package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/you/tg-thumbnailer/internal/logx"
	"github.com/you/tg-thumbnailer/internal/pipeline"
	"github.com/you/tg-thumbnailer/internal/store"
)

const startText = `🎬 Thumbnail Bot

Send me a photo to set as thumbnail
Send me a video to process with your thumbnail

Commands:
/viewthumb - View current thumbnail
/delthumb - Delete thumbnail
/set_caption - Set custom caption
/see_caption - View caption
/del_caption - Delete caption
/myplan - View your plan
/ping - Bot status

Limits: 2GB free, 4GB premium`

func (s *Server) cmdStart(ctx context.Context, m *tgbotapi.Message) {
	if !s.passGate(ctx, m) {
		return
	}
	from := m.From
	admin := from.ID == s.cfg.OwnerID
	if _, err := s.store.GetOrCreateUser(from.ID, from.UserName, from.FirstName, from.LastName, admin); err != nil {
		l := logx.FromCtx(ctx)
		l.Error().Err(err).Msg("get-or-create user failed")
		s.reply(m, "❌ Internal error. Try again.")
		return
	}
	s.reply(m, startText)
}

func (s *Server) cmdViewThumb(ctx context.Context, m *tgbotapi.Message) {
	if !s.passGate(ctx, m) {
		return
	}
	thumb, err := s.store.Thumbnail(m.From.ID)
	if errors.Is(err, store.ErrNotFound) {
		s.reply(m, "❌ No thumbnail set. Send me a photo first.")
		return
	}
	if err != nil {
		l := logx.FromCtx(ctx)
		l.Error().Err(err).Msg("thumbnail lookup failed")
		s.reply(m, "❌ Internal error. Try again.")
		return
	}
	if err := s.tg.SendPhoto(m.Chat.ID, m.MessageID, thumb.FileRef, "Your current thumbnail"); err != nil {
		l := logx.FromCtx(ctx)
		l.Error().Err(err).Msg("send thumbnail failed")
	}
}

func (s *Server) cmdDelThumb(ctx context.Context, m *tgbotapi.Message) {
	if !s.passGate(ctx, m) {
		return
	}
	if err := s.store.DeleteThumbnail(m.From.ID); err != nil {
		l := logx.FromCtx(ctx)
		l.Error().Err(err).Msg("delete thumbnail failed")
		s.reply(m, "❌ Internal error. Try again.")
		return
	}
	s.reply(m, "✅ Thumbnail deleted successfully.")
}

func (s *Server) cmdSetCaption(ctx context.Context, m *tgbotapi.Message) {
	if !s.passGate(ctx, m) {
		return
	}
	text := strings.TrimSpace(m.CommandArguments())
	if text == "" {
		s.reply(m, "Usage: /set_caption Your caption here")
		return
	}
	if err := s.store.SaveCaption(m.From.ID, text); err != nil {
		l := logx.FromCtx(ctx)
		l.Error().Err(err).Msg("save caption failed")
		s.reply(m, "❌ Internal error. Try again.")
		return
	}
	s.reply(m, "✅ Caption set successfully!")
}

func (s *Server) cmdSeeCaption(ctx context.Context, m *tgbotapi.Message) {
	if !s.passGate(ctx, m) {
		return
	}
	c, err := s.store.Caption(m.From.ID)
	if errors.Is(err, store.ErrNotFound) {
		s.reply(m, "❌ No caption set.")
		return
	}
	if err != nil {
		l := logx.FromCtx(ctx)
		l.Error().Err(err).Msg("caption lookup failed")
		s.reply(m, "❌ Internal error. Try again.")
		return
	}
	s.reply(m, "Your caption:\n\n"+c.CaptionText)
}

func (s *Server) cmdDelCaption(ctx context.Context, m *tgbotapi.Message) {
	if !s.passGate(ctx, m) {
		return
	}
	if err := s.store.DeleteCaption(m.From.ID); err != nil {
		l := logx.FromCtx(ctx)
		l.Error().Err(err).Msg("delete caption failed")
		s.reply(m, "❌ Internal error. Try again.")
		return
	}
	s.reply(m, "✅ Caption deleted successfully.")
}

func (s *Server) cmdMyPlan(ctx context.Context, m *tgbotapi.Message) {
	if !s.passGate(ctx, m) {
		return
	}
	u, err := s.store.User(m.From.ID)
	if errors.Is(err, store.ErrNotFound) {
		s.reply(m, "User not found. Send /start first.")
		return
	}
	if err != nil {
		l := logx.FromCtx(ctx)
		l.Error().Err(err).Msg("user lookup failed")
		s.reply(m, "❌ Internal error. Try again.")
		return
	}
	plan, limit := "Free 🆓", "2GB"
	if u.IsPremium {
		plan, limit = "Premium 💎", "4GB"
	}
	s.reply(m, fmt.Sprintf("Your Plan: %s\nFile Limit: %s", plan, limit))
}

func (s *Server) cmdStats(ctx context.Context, m *tgbotapi.Message) {
	st, err := s.store.Stats()
	if err != nil {
		l := logx.FromCtx(ctx)
		l.Error().Err(err).Msg("stats query failed")
		s.reply(m, "❌ Internal error. Try again.")
		return
	}
	s.reply(m, fmt.Sprintf("📊 Bot Stats\n👥 Total Users: %d\n💎 Premium: %d\n🚫 Banned: %d",
		st.Total, st.Premium, st.Banned))
}

// cmdSetFlag handles ban/unban/addpremium: one integer argument, one
// boolean mutation, idempotent under repetition.
func (s *Server) cmdSetFlag(ctx context.Context, m *tgbotapi.Message, apply func(int64, bool) error, value bool, okFormat string) {
	arg := strings.TrimSpace(m.CommandArguments())
	if arg == "" {
		s.reply(m, fmt.Sprintf("Usage: /%s <user_id>", m.Command()))
		return
	}
	targetID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		s.reply(m, "❌ Invalid user ID.")
		return
	}
	switch err := apply(targetID, value); {
	case errors.Is(err, store.ErrNotFound):
		s.reply(m, "❌ User not found.")
	case err != nil:
		l := logx.FromCtx(ctx)
		l.Error().Err(err).Int64("target", targetID).Msg("flag update failed")
		s.reply(m, "❌ Internal error. Try again.")
	default:
		s.reply(m, "✅ "+fmt.Sprintf(okFormat, targetID))
	}
}

func (s *Server) onPhoto(ctx context.Context, m *tgbotapi.Message) {
	if !s.passGate(ctx, m) {
		return
	}
	// Telegram sends multiple resolutions; the last entry is the largest.
	fileID := m.Photo[len(m.Photo)-1].FileID
	if err := s.store.SaveThumbnail(m.From.ID, fileID); err != nil {
		l := logx.FromCtx(ctx)
		l.Error().Err(err).Msg("save thumbnail failed")
		s.reply(m, "❌ Internal error. Try again.")
		return
	}
	s.reply(m, "✅ Thumbnail saved! Now send me a video to process.")
}

func (s *Server) onVideo(ctx context.Context, m *tgbotapi.Message, fileID string, size int64) {
	if !s.passGate(ctx, m) {
		return
	}
	job := pipeline.Job{
		UserID:    m.From.ID,
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		FileID:    fileID,
		FileSize:  size,
	}
	if err := s.pipe.Run(ctx, job); err != nil {
		l := logx.FromCtx(ctx)
		l.Warn().Err(err).Msg("pipeline run ended with error")
	}
}

// extractVideo accepts real videos and documents whose mime type says
// video/*; everything else is ignored.
func extractVideo(m *tgbotapi.Message) (fileID string, size int64, ok bool) {
	if m.Video != nil {
		return m.Video.FileID, int64(m.Video.FileSize), true
	}
	if m.Document != nil && strings.HasPrefix(strings.ToLower(m.Document.MimeType), "video/") {
		return m.Document.FileID, int64(m.Document.FileSize), true
	}
	return "", 0, false
}
