// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Feed configures the status+listing endpoint that is polled for reveals.
type Feed struct {
	URL          string `yaml:"url"`
	PollInterval int    `yaml:"poll_interval_ms"`
	TimeoutMs    int    `yaml:"timeout_ms"`
	UserAgent    string `yaml:"user_agent"`
}

// Swap holds the fixed trade parameters used on every revealed mint.
// MaxRetries is a pointer so an explicit 0 disables client-side resubmission.
type Swap struct {
	AmountLamports   uint64 `yaml:"amount_lamports"`
	SlippageBps      int    `yaml:"slippage_bps"`
	MaxRetries       *uint  `yaml:"max_retries"`
	ConfirmPollMs    int    `yaml:"confirm_poll_ms"`
	ConfirmTimeoutMs int    `yaml:"confirm_timeout_ms"`
}

// Journal points at the JSONL file receiving swap outcomes. Empty path disables it.
type Journal struct {
	Path string `yaml:"path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App     App     `yaml:"app"`
	Feed    Feed    `yaml:"feed"`
	Dex     Dex     `yaml:"dex"`
	Wallet  Wallet  `yaml:"wallet"`
	Swap    Swap    `yaml:"swap"`
	Targets []int   `yaml:"targets"`
	Journal Journal `yaml:"journal"`
}

const (
	DefaultRPCURL        = "https://api.mainnet-beta.solana.com"
	DefaultJupiterBase   = "https://quote-api.jup.ag"
	DefaultCommitment    = "confirmed"
	DefaultPrivateKeyEnv = "SOLANA_PRIVATE_KEY_BASE58"
	DefaultPollInterval  = 100
	DefaultFeedTimeout   = 5000
	DefaultSlippageBps   = 5000
	DefaultMaxRetries    = 2
	DefaultConfirmPollMs = 500

	// DefaultConfirmTimeoutMs covers a full blockhash window with margin.
	DefaultConfirmTimeoutMs = 120_000

	// DefaultAmountLamports is one SOL.
	DefaultAmountLamports = 1_000_000_000
)

// DefaultTargets are the entity ids watched when no targets are configured.
var DefaultTargets = []int{6, 7}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields in place.
func (c *Config) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "revealbot"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Feed.PollInterval <= 0 {
		c.Feed.PollInterval = DefaultPollInterval
	}
	if c.Feed.TimeoutMs <= 0 {
		c.Feed.TimeoutMs = DefaultFeedTimeout
	}
	if c.Dex.Chain == "" {
		c.Dex.Chain = "solana"
	}
	if c.Dex.RpcURL == "" {
		c.Dex.RpcURL = DefaultRPCURL
	}
	if c.Dex.Commitment == "" {
		c.Dex.Commitment = DefaultCommitment
	}
	if c.Dex.JupiterBase == "" {
		c.Dex.JupiterBase = DefaultJupiterBase
	}
	if c.Wallet.PrivateKeyEnv == "" {
		c.Wallet.PrivateKeyEnv = DefaultPrivateKeyEnv
	}
	if c.Swap.AmountLamports == 0 {
		c.Swap.AmountLamports = DefaultAmountLamports
	}
	if c.Swap.SlippageBps <= 0 {
		c.Swap.SlippageBps = DefaultSlippageBps
	}
	if c.Swap.MaxRetries == nil {
		retries := uint(DefaultMaxRetries)
		c.Swap.MaxRetries = &retries
	}
	if c.Swap.ConfirmPollMs <= 0 {
		c.Swap.ConfirmPollMs = DefaultConfirmPollMs
	}
	if c.Swap.ConfirmTimeoutMs <= 0 {
		c.Swap.ConfirmTimeoutMs = DefaultConfirmTimeoutMs
	}
	if len(c.Targets) == 0 {
		c.Targets = append([]int(nil), DefaultTargets...)
	}
}

// PollEvery converts the configured poll interval to a duration.
func (f Feed) PollEvery() time.Duration {
	return time.Duration(f.PollInterval) * time.Millisecond
}

// Timeout converts the configured request timeout to a duration.
func (f Feed) Timeout() time.Duration {
	return time.Duration(f.TimeoutMs) * time.Millisecond
}

// Retries returns the submit retry count, falling back to the default when unset.
func (s Swap) Retries() uint {
	if s.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *s.MaxRetries
}

// ConfirmTimeout converts the confirmation deadline to a duration.
func (s Swap) ConfirmTimeout() time.Duration {
	return time.Duration(s.ConfirmTimeoutMs) * time.Millisecond
}

// ConfirmEvery converts the confirmation polling cadence to a duration.
func (s Swap) ConfirmEvery() time.Duration {
	return time.Duration(s.ConfirmPollMs) * time.Millisecond
}

// Load reads a YAML file from disk, hydrates a Config struct and applies defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.ApplyDefaults()
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
