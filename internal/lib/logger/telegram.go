package logger

import (
	"context"
	"fmt"
	"log/slog"
)

// AlertSender delivers a plain-text alert to the operations channel.
type AlertSender interface {
	SendMessage(msg string)
}

// telegramHandler mirrors records at or above mirrorLevel to an AlertSender
// while delegating everything to the wrapped handler.
type telegramHandler struct {
	next   slog.Handler
	sender AlertSender
	level  slog.Level
}

// SetupTelegramHandler wraps the logger so that records at or above level are
// also pushed to the Telegram admin channel.
func SetupTelegramHandler(log *slog.Logger, sender AlertSender, level slog.Level) *slog.Logger {
	return slog.New(&telegramHandler{
		next:   log.Handler(),
		sender: sender,
		level:  level,
	})
}

func (h *telegramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *telegramHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level >= h.level && record.Level >= slog.LevelError {
		text := fmt.Sprintf("*%s* %s", record.Level, record.Message)
		record.Attrs(func(a slog.Attr) bool {
			text += fmt.Sprintf("\n%s: %s", a.Key, a.Value)
			return true
		})
		h.sender.SendMessage(text)
	}
	return h.next.Handle(ctx, record)
}

func (h *telegramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &telegramHandler{
		next:   h.next.WithAttrs(attrs),
		sender: h.sender,
		level:  h.level,
	}
}

func (h *telegramHandler) WithGroup(name string) slog.Handler {
	return &telegramHandler{
		next:   h.next.WithGroup(name),
		sender: h.sender,
		level:  h.level,
	}
}
