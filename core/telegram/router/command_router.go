package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/subgate/core/logger"
	tg "github.com/m3rciful/subgate/core/telegram"
	"github.com/m3rciful/subgate/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	adminOpts := middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		name := normalizeHandlerName(cmd)
		run := def.Handler
		if def.AdminOnly {
			run = middleware.AdminOnlyMiddleware(adminOpts)(run)
		}
		h := func(c tele.Context) error {
			return handleWithSummary(c, name, time.Now(), func() error { return run(c) })
		}
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(h)),
		})
	}

	logger.Info(context.Background(), logger.CompTGWire, "complete",
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}
