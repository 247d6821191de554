package logx

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ctxKey int

const (
	ctxKeyUserID ctxKey = iota
	ctxKeyChatID
)

// WithUser tags the context with the acting Telegram user id.
func WithUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// WithChat tags the context with the originating chat id.
func WithChat(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, ctxKeyChatID, chatID)
}

// FromCtx attaches standard fields (if present) to the global logger.
func FromCtx(ctx context.Context) zerolog.Logger {
	l := log.Logger
	if ctx == nil { return l }
	if v, ok := ctx.Value(ctxKeyUserID).(int64); ok {
		l = l.With().Int64("uid", v).Logger()
	}
	if v, ok := ctx.Value(ctxKeyChatID).(int64); ok {
		l = l.With().Int64("chat", v).Logger()
	}
	return l
}
