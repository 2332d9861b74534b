// Binary dexexec buys one mint immediately through the same executor the poller uses.
// The mint comes from SWAP_MINT; amount and slippage come from the config.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"revealbot-go/internal/config"
	dex "revealbot-go/internal/dex/solana"
	"revealbot-go/internal/execution"
	"revealbot-go/internal/reveal"
	"revealbot-go/internal/util"
)

func main() {
	cfg, err := config.Load(getEnv("REVEALBOT_CONFIG", "config.yaml"))
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	log := util.NewLogger(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	key, err := dex.LoadPrivateKey(cfg.Wallet.PrivateKeyEnv)
	if err != nil {
		log.Fatal().Err(err).Msg("wallet")
	}

	chain := dex.NewChain(
		getEnv("SOLANA_RPC_URL", cfg.Dex.RpcURL),
		getEnv("SOLANA_COMMITMENT", cfg.Dex.Commitment),
	)
	chain.PollInterval = cfg.Swap.ConfirmEvery()
	executor := execution.NewExecutor(
		dex.NewJupiterClient(getEnv("JUPITER_BASE_URL", cfg.Dex.JupiterBase)),
		dex.NewSigner(key),
		chain,
		execution.Params{
			AmountLamports: cfg.Swap.AmountLamports,
			SlippageBps:    cfg.Swap.SlippageBps,
			MaxRetries:     cfg.Swap.Retries(),
			ConfirmTimeout: cfg.Swap.ConfirmTimeout(),
		},
		log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	out := executor.Execute(ctx, reveal.Result{Address: os.Getenv("SWAP_MINT")})
	if !out.Success {
		log.Fatal().Str("stage", string(out.Stage)).Str("error", out.Error).Bool("skipped", out.Skipped).Msg("swap not completed")
	}
	log.Info().Str("sig", out.Signature).Str("explorer", out.Explorer).Msg("swap confirmed")
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
