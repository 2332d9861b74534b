package main

import (
	"context"
	"errors"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"revealbot-go/internal/config"
	dex "revealbot-go/internal/dex/solana"
	"revealbot-go/internal/execution"
	"revealbot-go/internal/feed"
	"revealbot-go/internal/journal"
	"revealbot-go/internal/metrics"
	"revealbot-go/internal/poller"
	"revealbot-go/internal/reveal"
	"revealbot-go/internal/util"
)

const defaultConfigPath = "config.yaml"

func main() {
	_ = godotenv.Load() // best-effort

	cfg, err := loadConfig(getEnv("REVEALBOT_CONFIG", defaultConfigPath))
	log := util.NewLogger(getEnv("LOG_LEVEL", cfg.App.LogLevel)).With().Str("app", cfg.App.Name).Logger()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	key, err := dex.LoadPrivateKey(cfg.Wallet.PrivateKeyEnv)
	if err != nil {
		log.Fatal().Err(err).Msg("wallet")
	}
	signer := dex.NewSigner(key)
	log.Info().Str("wallet", signer.PublicKey().String()).Msg("wallet loaded")

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	rec, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("journal")
	}
	defer rec.Close()

	chain := dex.NewChain(
		getEnv("SOLANA_RPC_URL", cfg.Dex.RpcURL),
		getEnv("SOLANA_COMMITMENT", cfg.Dex.Commitment),
	)
	chain.PollInterval = cfg.Swap.ConfirmEvery()

	executor := execution.NewExecutor(
		dex.NewJupiterClient(getEnv("JUPITER_BASE_URL", cfg.Dex.JupiterBase)),
		signer,
		chain,
		execution.Params{
			InputMint:      dex.NativeMint,
			AmountLamports: cfg.Swap.AmountLamports,
			SlippageBps:    cfg.Swap.SlippageBps,
			MaxRetries:     cfg.Swap.Retries(),
			ConfirmTimeout: cfg.Swap.ConfirmTimeout(),
		},
		util.Component(log, "executor"),
	)

	feedURL := getEnv("FEED_URL", cfg.Feed.URL)
	checkFeedURL(log, feedURL)
	source := feed.NewClient(
		feedURL,
		util.Component(log, "feed"),
		feed.WithTimeout(cfg.Feed.Timeout()),
		feed.WithUserAgent(cfg.Feed.UserAgent),
	)

	p := poller.New(poller.Config{
		Interval: cfg.Feed.PollEvery(),
		Targets:  reveal.Targets(cfg.Targets),
	}, source, executor, util.Component(log, "poller"))

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	outcomes, err := p.Run(ctx)
	if err != nil {
		log.Info().Err(err).Msg("shutting down before reveal")
		return
	}
	report(log, rec, outcomes)
}

func report(log zerolog.Logger, rec journal.Recorder, outcomes []execution.Outcome) {
	for _, out := range outcomes {
		if err := rec.Record(out); err != nil {
			log.Warn().Err(err).Msg("journal write failed")
		}
		ev := log.Info()
		if !out.Success && !out.Skipped {
			ev = log.Error()
		}
		ev.Int("target", int(out.Target)).
			Str("mint", out.Address).
			Str("result", out.Result()).
			Str("stage", string(out.Stage)).
			Str("sig", out.Signature).
			Str("explorer", out.Explorer).
			Str("error", out.Error).
			Dur("took", out.Finished.Sub(out.Started)).
			Msg("swap outcome")
	}
	log.Info().Int("outcomes", len(outcomes)).Msg("done")
}

// checkFeedURL warns once when no feed endpoint is configured. Polling still
// starts so a missing key stays the only fatal startup condition.
func checkFeedURL(log zerolog.Logger, url string) bool {
	if strings.TrimSpace(url) != "" {
		return true
	}
	log.Error().Msg("feed url not configured: set feed.url or FEED_URL, every poll will fail")
	return false
}

// loadConfig falls back to built-in defaults when the file does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	if err != nil {
		return config.Default(), err
	}
	return cfg, nil
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
