// Package app is the composition root: configuration, service wiring and
// the Telegram run options for the gate bot.
package app

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	corecmd "github.com/m3rciful/subgate/core/cmd"
	coreconfig "github.com/m3rciful/subgate/core/config"
	"github.com/m3rciful/subgate/gate/flow"
	"github.com/m3rciful/subgate/gate/provider"
	"github.com/m3rciful/subgate/gate/tasks"
)

// FlyerConfig configures the task provider client.
type FlyerConfig struct {
	Key               string  `yaml:"key" envconfig:"FLYER_KEY"`
	BaseURL           string  `yaml:"base_url" envconfig:"FLYER_BASE_URL"`
	TimeoutSeconds    int     `yaml:"timeout_seconds" envconfig:"FLYER_TIMEOUT_SECONDS"`
	RequestsPerSecond float64 `yaml:"requests_per_second" envconfig:"FLYER_REQUESTS_PER_SECOND"`
	Burst             int     `yaml:"burst" envconfig:"FLYER_BURST"`
}

// GateConfig configures the two-stage flow.
type GateConfig struct {
	BatchSize         int    `yaml:"batch_size" envconfig:"BATCH_SIZE"`
	RewardURL         string `yaml:"reward_url" envconfig:"TARGET_BOT_URL"`
	FetchMargin       int    `yaml:"fetch_margin" envconfig:"FETCH_MARGIN"`
	FetchAttempts     int    `yaml:"fetch_attempts" envconfig:"FETCH_ATTEMPTS"`
	RetryDelayMS      int    `yaml:"retry_delay_ms" envconfig:"FETCH_RETRY_DELAY_MS"`
	VerifyConcurrency int    `yaml:"verify_concurrency" envconfig:"VERIFY_CONCURRENCY"`
	// SessionTTLMinutes evicts idle sessions; 0 keeps them until completion.
	SessionTTLMinutes int `yaml:"session_ttl_minutes" envconfig:"SESSION_TTL_MINUTES"`
}

// Config is the full bot configuration: the reusable core plus gate settings.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Flyer FlyerConfig `yaml:"flyer"`
	Gate  GateConfig  `yaml:"gate"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// SessionTTL returns the idle eviction window; 0 disables it.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Gate.SessionTTLMinutes) * time.Minute
}

// RetryDelay returns the pause between failed fetch attempts.
func (c *Config) RetryDelay() time.Duration {
	if c.Gate.RetryDelayMS <= 0 {
		return tasks.DefaultRetryDelay
	}
	return time.Duration(c.Gate.RetryDelayMS) * time.Millisecond
}

// FlyerTimeout returns the per-request timeout of the provider client.
func (c *Config) FlyerTimeout() time.Duration {
	return time.Duration(c.Flyer.TimeoutSeconds) * time.Second
}

// Load reads YAML at path (optional), overlays env and validates.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig adapts Load to the core runner.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func normalize(cfg *Config) error {
	cfg.Flyer.Key = strings.TrimSpace(cfg.Flyer.Key)
	if cfg.Flyer.Key == "" {
		return fmt.Errorf("flyer key is required (FLYER_KEY)")
	}
	cfg.Flyer.BaseURL = strings.TrimSpace(cfg.Flyer.BaseURL)
	if cfg.Flyer.BaseURL == "" {
		cfg.Flyer.BaseURL = provider.DefaultBaseURL
	}
	if u, err := url.Parse(cfg.Flyer.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid flyer.base_url %q", cfg.Flyer.BaseURL)
	}
	if cfg.Flyer.TimeoutSeconds < 0 || cfg.Flyer.RequestsPerSecond < 0 || cfg.Flyer.Burst < 0 {
		return fmt.Errorf("flyer timeout, rate and burst must be >= 0")
	}

	g := &cfg.Gate
	if g.BatchSize == 0 {
		g.BatchSize = flow.DefaultBatchSize
	}
	if g.BatchSize < 0 {
		return fmt.Errorf("gate.batch_size must be > 0")
	}
	g.RewardURL = strings.TrimSpace(g.RewardURL)
	if g.RewardURL == "" {
		g.RewardURL = flow.DefaultRewardURL
	}
	if g.FetchMargin < 0 || g.FetchAttempts < 0 || g.RetryDelayMS < 0 || g.VerifyConcurrency < 0 {
		return fmt.Errorf("gate fetch and verify settings must be >= 0")
	}
	if g.SessionTTLMinutes < 0 {
		return fmt.Errorf("gate.session_ttl_minutes must be >= 0")
	}
	return nil
}
