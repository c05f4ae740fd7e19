package cmd

import (
	"context"
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/subgate/core/config"
	coretelegram "github.com/m3rciful/subgate/core/telegram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type app struct{ opts coretelegram.RunOptions }

func (a app) TelegramRunOptions() (coretelegram.RunOptions, error) { return a.opts, nil }

func TestRunWiresHooks(t *testing.T) {
	t.Setenv("SUBGATE_TEST_CONFIG", "custom.yaml")

	var (
		loadedPath string
		events     []string
	)
	err := Run(Options{
		ConfigEnvVar:      "SUBGATE_TEST_CONFIG",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loadedPath = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error) {
			return app{opts: coretelegram.RunOptions{
				OnStart: func(context.Context, coretelegram.Runtime) error {
					events = append(events, "start")
					return nil
				},
				OnStop: func(context.Context, coretelegram.Runtime) error {
					events = append(events, "stop")
					return nil
				},
			}}, nil
		},
		ShutdownLogger: func() error {
			events = append(events, "logger")
			return nil
		},
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "custom.yaml", loadedPath)
	assert.Equal(t, []string{"start", "stop", "logger"}, events)
}

func TestRunRequiresLoaders(t *testing.T) {
	assert.Error(t, Run(Options{}))
	assert.Error(t, Run(Options{LoadConfig: func(string) (ConfigCarrier, error) { return nil, nil }}))
}

func TestRunPropagatesBootstrapError(t *testing.T) {
	boom := errors.New("boom")
	err := Run(Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return nil, boom
		},
		ShutdownLogger: func() error { return nil },
	})
	assert.ErrorIs(t, err, boom)
}
