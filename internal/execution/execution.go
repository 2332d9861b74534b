// Package execution drives the quote, build, sign, submit and confirm sequence for revealed mints.
package execution

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	dex "revealbot-go/internal/dex/solana"
	"revealbot-go/internal/metrics"
	"revealbot-go/internal/reveal"
)

// SwapAPI is the quote and swap-build service.
type SwapAPI interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*dex.Quote, error)
	GetSwapTransaction(ctx context.Context, quote *dex.Quote, user solana.PublicKey) (*dex.SwapResponse, error)
}

// Signer signs transactions for the wallet.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(tx *solana.Transaction) error
}

// Chain submits and confirms transactions.
type Chain interface {
	SendRawTransaction(ctx context.Context, raw []byte, opts dex.SendOptions) (solana.Signature, error)
	LatestBlockhash(ctx context.Context) (dex.BlockhashWindow, error)
	ConfirmTransaction(ctx context.Context, sig solana.Signature, window dex.BlockhashWindow) (*dex.ConfirmationResult, error)
}

// Params are the fixed trade knobs applied to every target.
// ConfirmTimeout bounds the confirm stage; zero leaves it to the chain adapter.
type Params struct {
	InputMint      string
	AmountLamports uint64
	SlippageBps    int
	MaxRetries     uint
	ConfirmTimeout time.Duration
}

// Executor runs swap sub-flows. It holds no mutable state, so concurrent Execute calls are safe.
type Executor struct {
	api    SwapAPI
	signer Signer
	chain  Chain
	params Params
	log    zerolog.Logger
}

func NewExecutor(api SwapAPI, signer Signer, chain Chain, params Params, log zerolog.Logger) *Executor {
	if params.InputMint == "" {
		params.InputMint = dex.NativeMint
	}
	return &Executor{api: api, signer: signer, chain: chain, params: params, log: log}
}

// Execute runs one target's sub-flow. Failures come back as a failed outcome, never as a panic or error.
func (e *Executor) Execute(ctx context.Context, c reveal.Result) (out Outcome) {
	c.Address = strings.TrimSpace(c.Address)
	log := e.log.With().Int("target", int(c.Target)).Str("mint", c.Address).Logger()
	out = Outcome{Target: c.Target, Address: c.Address, Started: time.Now().UTC()}
	defer func() {
		if out.Finished.IsZero() {
			out.Finished = time.Now().UTC()
		}
		if out.Stage == "" {
			return
		}
		metrics.SwapsTotal.WithLabelValues(strconv.Itoa(int(c.Target)), string(out.Stage), out.Result()).Inc()
	}()

	if c.Address == "" {
		log.Warn().Msg("no mint for target, skipping swap")
		out.Skipped = true
		out.Stage = StageSkipped
		return out
	}

	quote, err := e.api.GetQuote(ctx, e.params.InputMint, c.Address, e.params.AmountLamports, e.params.SlippageBps)
	if err == nil && quote == nil {
		err = errors.New("empty quote")
	}
	if err == nil && quote.Error != "" {
		err = errors.New(quote.Error)
	}
	if err != nil {
		return e.fail(log, out, StageQuote, ErrQuote, err)
	}
	log.Info().Str("in_amount", quote.InAmount).Str("out_amount", quote.OutAmount).Msg("quote received")

	swap, err := e.api.GetSwapTransaction(ctx, quote, e.signer.PublicKey())
	if err == nil && (swap == nil || swap.SwapTransaction == "") {
		err = errors.New("empty swap transaction")
	}
	if err == nil && swap.Error != "" {
		err = errors.New(swap.Error)
	}
	if err != nil {
		return e.fail(log, out, StageBuild, ErrSwapBuild, err)
	}

	tx, err := dex.DecodeTransaction(swap.SwapTransaction)
	if err != nil {
		return e.fail(log, out, StageBuild, ErrSwapBuild, err)
	}
	if err := e.signer.SignTransaction(tx); err != nil {
		return e.fail(log, out, StageSign, ErrSwapBuild, err)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return e.fail(log, out, StageSign, ErrSwapBuild, fmt.Errorf("serialize tx: %w", err))
	}

	sig, err := e.chain.SendRawTransaction(ctx, raw, dex.SendOptions{SkipPreflight: true, MaxRetries: e.params.MaxRetries})
	if err != nil {
		return e.fail(log, out, StageSubmit, ErrSubmission, err)
	}
	out.Signature = sig.String()
	log = log.With().Str("sig", out.Signature).Logger()
	log.Info().Msg("transaction submitted")

	confirmCtx := ctx
	if e.params.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		confirmCtx, cancel = context.WithTimeout(ctx, e.params.ConfirmTimeout)
		defer cancel()
	}
	window, err := e.chain.LatestBlockhash(confirmCtx)
	if err != nil {
		return e.fail(log, out, StageConfirm, ErrConfirmation, err)
	}
	conf, err := e.chain.ConfirmTransaction(confirmCtx, sig, window)
	if err != nil {
		return e.fail(log, out, StageConfirm, ErrConfirmation, err)
	}

	started := out.Started
	out = Interpret(c, sig, conf)
	out.Started = started
	if out.Success {
		log.Info().Str("explorer", out.Explorer).Msg("swap confirmed")
	} else {
		log.Error().Str("detail", out.Error).Msg("swap failed on chain")
	}
	return out
}

func (e *Executor) fail(log zerolog.Logger, out Outcome, stage Stage, kind, err error) Outcome {
	out.Stage = stage
	out.Err = fmt.Errorf("%w: %w", kind, err)
	out.Error = out.Err.Error()
	log.Error().Err(err).Str("stage", string(stage)).Str("kind", kind.Error()).Msg("swap failed")
	return out
}
