package bootstrap

import (
	"context"
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/subgate/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunBuildsServices(t *testing.T) {
	res, err := Run(context.Background(), Options[string]{
		Config:     &coreconfig.Config{},
		AppConfig:  42,
		LoggerInit: noLogger,
		Services: TypedServiceProviderFunc[string](func(_ context.Context, cfg any) (string, error) {
			if cfg.(int) != 42 {
				return "", errors.New("unexpected config")
			}
			return "ready", nil
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, "ready", res.Services)
}

func TestRunStopsOnLoggerError(t *testing.T) {
	called := false
	_, err := Run(context.Background(), Options[int]{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return errors.New("no log dir") },
		Services: TypedServiceProviderFunc[int](func(context.Context, any) (int, error) {
			called = true
			return 1, nil
		}),
	})
	assert.ErrorContains(t, err, "logger init failed")
	assert.False(t, called)
}

func TestRunRequiresConfigAndProvider(t *testing.T) {
	_, err := Run(context.Background(), Options[int]{})
	assert.Error(t, err)
	_, err = Run(context.Background(), Options[int]{Config: &coreconfig.Config{}, LoggerInit: noLogger})
	assert.Error(t, err)
}

func TestUntypedProvide(t *testing.T) {
	var p ServiceProvider = TypedServiceProviderFunc[int](func(context.Context, any) (int, error) { return 7, nil })
	v, err := p.Provide(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
