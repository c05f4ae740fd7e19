package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/subgate/core/bootstrap"
	corecmd "github.com/m3rciful/subgate/core/cmd"
	"github.com/m3rciful/subgate/core/logger"
	tg "github.com/m3rciful/subgate/core/telegram"
	"github.com/m3rciful/subgate/core/telegram/router"
	tgsender "github.com/m3rciful/subgate/core/telegram/sender"
	"github.com/m3rciful/subgate/gate/bot"
	"github.com/m3rciful/subgate/gate/flow"
	"github.com/m3rciful/subgate/gate/metrics"
	"github.com/m3rciful/subgate/gate/provider"
	"github.com/m3rciful/subgate/gate/session"
	"github.com/m3rciful/subgate/gate/tasks"
)

const janitorInterval = time.Minute

// Services holds everything the bot needs at runtime.
type Services struct {
	Provider   provider.Provider
	Store      *session.MemoryStore
	Controller *flow.Controller
	Handlers   *bot.Handlers
}

// App implements cmd.TelegramApp for the gate bot.
type App struct {
	cfg      *Config
	services *Services
}

// Bootstrap initializes logging and builds the gate services.
func Bootstrap(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	res, err := bootstrap.Run(ctx, bootstrap.Options[*Services]{
		Config:    cfg.CoreConfig(),
		AppConfig: cfg,
		Services:  bootstrap.TypedServiceProviderFunc[*Services](ProvideServices),
	})
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, services: res.Services}, nil
}

// ProvideServices builds the provider client, session store, flow controller
// and handlers from a *Config.
func ProvideServices(ctx context.Context, raw any) (*Services, error) {
	cfg, ok := raw.(*Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("app: services need *Config, got %T", raw)
	}

	rec := metrics.New()
	client, err := provider.NewFlyerClient(provider.FlyerOptions{
		Key:               cfg.Flyer.Key,
		BaseURL:           cfg.Flyer.BaseURL,
		Timeout:           cfg.FlyerTimeout(),
		RequestsPerSecond: cfg.Flyer.RequestsPerSecond,
		Burst:             cfg.Flyer.Burst,
		Metrics:           rec,
	})
	if err != nil {
		return nil, err
	}
	return buildServices(cfg, client, rec)
}

func buildServices(cfg *Config, p provider.Provider, rec *metrics.Recorder) (*Services, error) {
	store := session.NewMemoryStore(session.MemoryOptions{TTL: cfg.SessionTTL()})
	ctrl, err := flow.New(flow.Options{
		BatchSize: cfg.Gate.BatchSize,
		RewardURL: cfg.Gate.RewardURL,
		Store:     store,
		Fetcher: tasks.NewFetcher(p, tasks.FetcherOptions{
			MaxAttempts: cfg.Gate.FetchAttempts,
			Margin:      cfg.Gate.FetchMargin,
			RetryDelay:  cfg.RetryDelay(),
		}),
		Verifier: tasks.NewVerifier(p, cfg.Gate.VerifyConcurrency),
		Metrics:  rec,
	})
	if err != nil {
		return nil, err
	}
	return &Services{
		Provider:   p,
		Store:      store,
		Controller: ctrl,
		Handlers:   bot.NewHandlers(ctrl),
	}, nil
}

// Services exposes the wired services, mainly for tests.
func (a *App) Services() *Services { return a.services }

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()
	h := a.services.Handlers

	reg := tg.NewRegistry()
	if err := h.Register(reg); err != nil {
		return tg.RunOptions{}, err
	}

	adminID := core.Telegram.AdminID
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{AdminID: adminID})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{
		AdminID:     adminID,
		UnknownText: h.UnknownText,
	})...)

	store := a.services.Store
	ctrl := a.services.Controller
	return tg.RunOptions{
		Config:   core,
		Registry: reg,
		DispatcherOptions: tgsender.Options{
			MaxRetries:   2,
			RetryBackoff: time.Second,
		},
		Middlewares: tg.DefaultMiddlewares(core, h.RateLimited),
		Routes:      routes,
		OnStart: func(ctx context.Context, _ tg.Runtime) error {
			store.StartJanitor(ctx, janitorInterval)
			logger.Info(ctx, logger.CompApp, "gate.config",
				slog.Int("batch_size", ctrl.BatchSize()),
				slog.Duration("session_ttl", a.cfg.SessionTTL()),
				slog.Bool("admin_stats", adminID != 0),
			)
			return nil
		},
		OnStop: func(ctx context.Context, rt tg.Runtime) error {
			st := ctrl.Stats()
			attrs := []slog.Attr{
				slog.Int("active_sessions", st.ActiveSessions),
				slog.Uint64("started", st.Started),
				slog.Uint64("completed", st.Completed),
			}
			if rt.Dispatcher != nil {
				attrs = append(attrs,
					slog.Uint64("sent", rt.Dispatcher.SentCount()),
					slog.Uint64("send_errors", rt.Dispatcher.ErrorCount()),
				)
			}
			logger.Info(ctx, logger.CompApp, "gate.stats", attrs...)
			return nil
		},
	}, nil
}
