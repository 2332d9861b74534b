package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrBlockHeightExceeded means the blockhash window closed before the signature reached the target commitment.
var ErrBlockHeightExceeded = errors.New("block height exceeded")

// ErrRPCUnavailable means confirmation polling saw too many failed rounds in a row.
var ErrRPCUnavailable = errors.New("rpc unavailable")

const (
	defaultConfirmPoll  = 500 * time.Millisecond
	defaultMaxRPCErrors = 20
)

// SendOptions mirrors the sendTransaction knobs the bot uses.
type SendOptions struct {
	SkipPreflight bool
	MaxRetries    uint
}

// BlockhashWindow bounds how long a transaction can still land.
type BlockhashWindow struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// ConfirmationResult carries the ledger's verdict; Err is nil when the transaction succeeded.
type ConfirmationResult struct {
	Slot uint64
	Err  any
}

// Chain is the thin RPC surface used for submission and confirmation.
// MaxRPCErrors bounds consecutive failed polling rounds during confirmation.
type Chain struct {
	RPC          *rpc.Client
	Commit       rpc.CommitmentType
	PollInterval time.Duration
	MaxRPCErrors int
}

func NewChain(rpcURL, commit string) *Chain {
	return &Chain{
		RPC:          rpc.New(rpcURL),
		Commit:       ParseCommitment(commit),
		PollInterval: defaultConfirmPoll,
		MaxRPCErrors: defaultMaxRPCErrors,
	}
}

// ParseCommitment maps processed|confirmed|finalized, defaulting to confirmed.
func ParseCommitment(commit string) rpc.CommitmentType {
	switch commit {
	case "processed":
		return rpc.CommitmentProcessed
	case "finalized":
		return rpc.CommitmentFinalized
	}
	return rpc.CommitmentConfirmed
}

// SendRawTransaction submits a signed, serialized transaction.
func (c *Chain) SendRawTransaction(ctx context.Context, raw []byte, opts SendOptions) (solana.Signature, error) {
	retries := opts.MaxRetries
	return c.RPC.SendRawTransactionWithOpts(ctx, raw, rpc.TransactionOpts{
		Encoding:            solana.EncodingBase64,
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: c.Commit,
		MaxRetries:          &retries,
	})
}

func (c *Chain) LatestBlockhash(ctx context.Context) (BlockhashWindow, error) {
	out, err := c.RPC.GetLatestBlockhash(ctx, c.Commit)
	if err != nil {
		return BlockhashWindow{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	if out == nil || out.Value == nil {
		return BlockhashWindow{}, fmt.Errorf("get latest blockhash: empty result")
	}
	return BlockhashWindow{
		Blockhash:            out.Value.Blockhash,
		LastValidBlockHeight: out.Value.LastValidBlockHeight,
	}, nil
}

// ConfirmTransaction polls the signature status until it reaches the chain's
// commitment or carries an error. It gives up once the block height passes the
// window or after MaxRPCErrors consecutive rounds in which an RPC call failed.
func (c *Chain) ConfirmTransaction(ctx context.Context, sig solana.Signature, window BlockhashWindow) (*ConfirmationResult, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = defaultConfirmPoll
	}
	maxErrs := c.MaxRPCErrors
	if maxErrs <= 0 {
		maxErrs = defaultMaxRPCErrors
	}
	timer := time.NewTimer(0)
	defer timer.Stop()

	var lastErr error
	failed := 0
	for {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return nil, fmt.Errorf("confirm %s: %w (last rpc error: %v)", sig, ctx.Err(), lastErr)
			}
			return nil, fmt.Errorf("confirm %s: %w", sig, ctx.Err())
		case <-timer.C:
		}

		res, done, statusErr := c.checkStatus(ctx, sig)
		if done {
			return res, nil
		}
		height, heightErr := c.RPC.GetBlockHeight(ctx, c.Commit)
		if heightErr == nil && height > window.LastValidBlockHeight {
			return nil, fmt.Errorf("confirm %s: %w (height %d > %d)", sig, ErrBlockHeightExceeded, height, window.LastValidBlockHeight)
		}

		if err := errors.Join(statusErr, heightErr); err != nil {
			lastErr = err
			failed++
			if failed >= maxErrs {
				return nil, fmt.Errorf("confirm %s: %w after %d failed rounds: %v", sig, ErrRPCUnavailable, failed, lastErr)
			}
		} else {
			failed = 0
		}
		timer.Reset(interval)
	}
}

func (c *Chain) checkStatus(ctx context.Context, sig solana.Signature) (*ConfirmationResult, bool, error) {
	out, err := c.RPC.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		return nil, false, err
	}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return nil, false, nil
	}
	st := out.Value[0]
	if st.Err != nil {
		return &ConfirmationResult{Slot: st.Slot, Err: st.Err}, true, nil
	}
	if reached(st.ConfirmationStatus, c.Commit) {
		return &ConfirmationResult{Slot: st.Slot}, true, nil
	}
	return nil, false, nil
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := map[rpc.ConfirmationStatusType]int{
		rpc.ConfirmationStatusProcessed: 1,
		rpc.ConfirmationStatusConfirmed: 2,
		rpc.ConfirmationStatusFinalized: 3,
	}
	need := 2
	switch want {
	case rpc.CommitmentProcessed:
		need = 1
	case rpc.CommitmentFinalized:
		need = 3
	}
	return rank[status] >= need
}
