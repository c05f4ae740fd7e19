package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/subgate/core/logger"
	"github.com/m3rciful/subgate/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/subgate/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const (
	ridKey         = "rid"
	updateStartKey = "update_start"
)

// LoggerMiddleware logs a single receipt line per update and sets rid.
// When the middleware runs more than once for the same update (global chain
// plus route wrapper) only the first pass does any work.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if rid, _ := c.Get(ridKey).(string); rid != "" {
			return next(c)
		}

		upd := c.Update()
		user := c.Sender()
		chat := c.Chat()

		chatID, userID := int64(0), int64(0)
		if chat != nil {
			chatID = chat.ID
		}
		if user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set(ridKey, rid)
		c.Set(updateStartKey, time.Now())

		ctx := logger.WithRID(context.Background(), rid)
		ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.Component(logger.CompTG))
		tghelpers.StoreContext(c, ctx)

		if logger.ShouldSampleDebug() {
			logger.Debug(ctx, logger.CompTG, "update.received", receiptAttrs(c, upd, user, chat)...)
		}

		return next(c)
	}
}

func receiptAttrs(c tele.Context, upd tele.Update, user *tele.User, chat *tele.Chat) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user != nil {
		if user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if user.LanguageCode != "" {
			attrs = append(attrs, slog.String("locale", user.LanguageCode))
		}
	}

	switch {
	case upd.Callback != nil:
		key, payload := callbacks.Parse(upd.Callback)
		if key != "" {
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
		}
		if payload != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
		}
	case upd.Message != nil:
		if t := c.Text(); t != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
		}
	}
	return attrs
}
