package router

import (
	"time"

	tg "github.com/m3rciful/subgate/core/telegram"
	"github.com/m3rciful/subgate/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls fallback behaviour for text updates.
type TextOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
	UnknownText   tele.HandlerFunc
}

// TextRoutes builds the handler for plain text: command aliases first,
// then the registry fallback, then UnknownText.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	adminOpts := middleware.AdminOptions{AdminID: opts.AdminID, OnReject: opts.OnAdminReject}

	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				run := cmd.Handler
				if cmd.AdminOnly {
					run = middleware.AdminOnlyMiddleware(adminOpts)(run)
				}
				return handleWithSummary(c, normalizeHandlerName(key), start, func() error {
					return run(c)
				})
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, nil, summary{status: "skip", outcome: "ok"})
		return nil
	}

	return []tg.Route{{
		Endpoint: tele.OnText,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}}
}
