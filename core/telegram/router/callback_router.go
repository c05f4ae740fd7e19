package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/subgate/core/telegram"
	"github.com/m3rciful/subgate/core/telegram/callbacks"
	"github.com/m3rciful/subgate/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callbacks through the registry.
// Handlers may answer the callback query themselves via callbacks.Answer;
// otherwise an empty answer is sent after the handler returns so the client
// stops showing a spinner.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key, _ := callbacks.Parse(c.Callback())
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		run, ok := reg.GetCallback(key)
		if !ok || run == nil {
			run = opts.NotFound
			if run == nil {
				run = reg.CallbackNotFound()
			}
			extras = append(extras, slog.String("reason", "not_found"))
		}

		err := handleWithSummary(c, name, start, func() error {
			if run == nil {
				return nil
			}
			return run(c)
		}, extras...)
		if !callbacks.Answered(c) {
			_ = callbacks.Answer(c, nil)
		}
		return err
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
