package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/subgate/core/config"
	tg "github.com/m3rciful/subgate/core/telegram"
	"github.com/m3rciful/subgate/gate/flow"
	"github.com/m3rciful/subgate/gate/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BOT_TOKEN", "TELEGRAM_BOT_TOKEN", "TELEGRAM_ADMIN_ID", "TELEGRAM_RUN_MODE",
		"FLYER_KEY", "FLYER_BASE_URL", "BATCH_SIZE", "TARGET_BOT_URL",
		"SESSION_TTL_MINUTES", "FETCH_RETRY_DELAY_MS",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("FLYER_KEY", "flyer-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "flyer-key", cfg.Flyer.Key)
	assert.Equal(t, provider.DefaultBaseURL, cfg.Flyer.BaseURL)
	assert.Equal(t, flow.DefaultBatchSize, cfg.Gate.BatchSize)
	assert.Equal(t, flow.DefaultRewardURL, cfg.Gate.RewardURL)
	assert.Zero(t, cfg.SessionTTL())
	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestLoadReadsYAMLAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  admin_id: 42
flyer:
  key: from-yaml
  base_url: https://flyer.example
gate:
  batch_size: 3
  reward_url: https://t.me/reward_bot
  session_ttl_minutes: 30
  retry_delay_ms: 50
`)
	t.Setenv("BATCH_SIZE", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.EqualValues(t, 42, cfg.Telegram.AdminID)
	assert.Equal(t, "from-yaml", cfg.Flyer.Key)
	assert.Equal(t, "https://flyer.example", cfg.Flyer.BaseURL)
	assert.Equal(t, 7, cfg.Gate.BatchSize)
	assert.Equal(t, "https://t.me/reward_bot", cfg.Gate.RewardURL)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL())
	assert.Equal(t, 50*time.Millisecond, cfg.RetryDelay())
}

func TestLoadRequiresFlyerKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FLYER_KEY")
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"negative batch": "gate:\n  batch_size: -1\n",
		"negative ttl":   "gate:\n  session_ttl_minutes: -5\n",
		"bad base url":   "flyer:\n  base_url: not-a-url\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("BOT_TOKEN", "123:abc")
			t.Setenv("FLYER_KEY", "k")
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigReturnsCarrier(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("FLYER_KEY", "k")

	carrier, err := LoadConfig("")
	require.NoError(t, err)
	require.NotNil(t, carrier.CoreConfig())
	_, ok := carrier.(*Config)
	assert.True(t, ok)
}

type emptyProvider struct{}

func (emptyProvider) GetTasks(context.Context, int64, string, int) ([]provider.Task, error) {
	return nil, nil
}

func (emptyProvider) CheckTask(context.Context, int64, string) (bool, error) {
	return false, nil
}

func testConfig() *Config {
	cfg := &Config{}
	cfg.Telegram.Token = "123:abc"
	cfg.Telegram.AdminID = 42
	cfg.Telegram.RunMode = coreconfig.RunModeLongpoll
	cfg.RateLimit.IntervalMS = 500
	cfg.Flyer.Key = "k"
	cfg.Gate.BatchSize = 2
	cfg.Gate.RewardURL = "https://t.me/reward_bot"
	return cfg
}

func TestTelegramRunOptionsWiresRoutes(t *testing.T) {
	cfg := testConfig()
	svc, err := buildServices(cfg, emptyProvider{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, svc.Controller.BatchSize())

	a := &App{cfg: cfg, services: svc}
	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)

	assert.Same(t, cfg.CoreConfig(), opts.Config)
	require.NotNil(t, opts.Registry)
	assert.Contains(t, opts.Registry.Commands(), "/start")
	assert.Contains(t, opts.Registry.Commands(), "/stats")

	endpoints := make(map[any]bool)
	for _, r := range opts.Routes {
		endpoints[r.Endpoint] = true
	}
	assert.True(t, endpoints["/start"])
	assert.True(t, endpoints["/stats"])
	assert.True(t, endpoints[tele.OnCallback])
	assert.True(t, endpoints[tele.OnText])

	names := make([]string, 0, len(opts.Middlewares))
	for _, m := range opts.Middlewares {
		names = append(names, m.Name)
	}
	assert.Contains(t, names, "rate_limit")

	require.NotNil(t, opts.OnStart)
	require.NotNil(t, opts.OnStop)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.NoError(t, opts.OnStart(ctx, tg.Runtime{}))
	assert.NoError(t, opts.OnStop(ctx, tg.Runtime{}))
}

func TestBootstrapRejectsForeignConfig(t *testing.T) {
	_, err := Bootstrap(context.Background(), &foreignCarrier{})
	assert.Error(t, err)
}

func TestProvideServicesNeedsConfig(t *testing.T) {
	_, err := ProvideServices(context.Background(), "nope")
	assert.Error(t, err)
}

type foreignCarrier struct{}

func (*foreignCarrier) CoreConfig() *coreconfig.Config { return &coreconfig.Config{} }
