package bootstrap

import "context"

// ServiceProvider wires application services from configuration.
type ServiceProvider interface {
	Provide(ctx context.Context, cfg any) (any, error)
}

// TypedServiceProvider allows callers to avoid manual type assertions.
type TypedServiceProvider[T any] interface {
	ServiceProvider
	ProvideTyped(ctx context.Context, cfg any) (T, error)
}

// TypedServiceProviderFunc adapts a typed function to both typed and untyped provider interfaces.
type TypedServiceProviderFunc[T any] func(ctx context.Context, cfg any) (T, error)

// Provide satisfies the ServiceProvider interface.
func (f TypedServiceProviderFunc[T]) Provide(ctx context.Context, cfg any) (any, error) {
	return f(ctx, cfg)
}

// ProvideTyped exposes the typed return value without casting.
func (f TypedServiceProviderFunc[T]) ProvideTyped(ctx context.Context, cfg any) (T, error) {
	return f(ctx, cfg)
}
