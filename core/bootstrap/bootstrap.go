package bootstrap

import (
	"context"
	"fmt"

	coreconfig "github.com/m3rciful/subgate/core/config"
	"github.com/m3rciful/subgate/core/logger"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options[T any] struct {
	Config *coreconfig.Config
	// AppConfig is handed to the service provider untouched.
	AppConfig any

	LoggerInit func(*coreconfig.Config) error
	Services   TypedServiceProvider[T]
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result[T any] struct {
	Services T
}

// Run initializes the logger and then asks the provider to build services.
func Run[T any](ctx context.Context, opts Options[T]) (*Result[T], error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	if opts.Services == nil {
		return nil, fmt.Errorf("bootstrap: nil service provider")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	svc, err := opts.Services.ProvideTyped(ctx, opts.AppConfig)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: services: %w", err)
	}
	return &Result[T]{Services: svc}, nil
}
