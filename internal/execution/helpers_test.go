package execution

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/rs/zerolog"

	dex "revealbot-go/internal/dex/solana"
)

func unsignedSwap(t *testing.T, payer solana.PublicKey) string {
	t.Helper()
	ix := system.NewTransferInstruction(5000, payer, solana.NewWallet().PublicKey()).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(payer))
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

type fakeAPI struct {
	mu         sync.Mutex
	quoteCalls []string
	swapCalls  []string
	quote      func(ctx context.Context, mint string) (*dex.Quote, error)
	swap       func(ctx context.Context, quote *dex.Quote) (*dex.SwapResponse, error)
	lastUser   solana.PublicKey
	lastAmount uint64
	lastBps    int
	lastInput  string
}

func (f *fakeAPI) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*dex.Quote, error) {
	f.mu.Lock()
	f.quoteCalls = append(f.quoteCalls, outputMint)
	f.lastInput, f.lastAmount, f.lastBps = inputMint, amount, slippageBps
	f.mu.Unlock()
	return f.quote(ctx, outputMint)
}

func (f *fakeAPI) GetSwapTransaction(ctx context.Context, quote *dex.Quote, user solana.PublicKey) (*dex.SwapResponse, error) {
	f.mu.Lock()
	f.swapCalls = append(f.swapCalls, quote.OutputMint)
	f.lastUser = user
	f.mu.Unlock()
	return f.swap(ctx, quote)
}

func (f *fakeAPI) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.quoteCalls), len(f.swapCalls)
}

type fakeChain struct {
	mu       sync.Mutex
	sent     [][]byte
	opts     []dex.SendOptions
	send     func(raw []byte) (solana.Signature, error)
	latest   func() (dex.BlockhashWindow, error)
	confirm  func(sig solana.Signature) (*dex.ConfirmationResult, error)
	hang     bool
	confirms int
}

func (f *fakeChain) SendRawTransaction(ctx context.Context, raw []byte, opts dex.SendOptions) (solana.Signature, error) {
	f.mu.Lock()
	f.sent = append(f.sent, raw)
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	if f.send != nil {
		return f.send(raw)
	}
	tx, err := decodeTx(raw)
	if err != nil {
		return solana.Signature{}, err
	}
	return tx.Signatures[0], nil
}

func (f *fakeChain) LatestBlockhash(ctx context.Context) (dex.BlockhashWindow, error) {
	if f.latest != nil {
		return f.latest()
	}
	return dex.BlockhashWindow{LastValidBlockHeight: 100}, nil
}

func (f *fakeChain) ConfirmTransaction(ctx context.Context, sig solana.Signature, window dex.BlockhashWindow) (*dex.ConfirmationResult, error) {
	f.mu.Lock()
	f.confirms++
	f.mu.Unlock()
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.confirm != nil {
		return f.confirm(sig)
	}
	return &dex.ConfirmationResult{Slot: 7}, nil
}

func (f *fakeChain) sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// happyAPI quotes every mint and returns a transaction payable by the wallet.
func happyAPI(t *testing.T, wallet *solana.Wallet) *fakeAPI {
	swapTx := unsignedSwap(t, wallet.PublicKey())
	return &fakeAPI{
		quote: func(ctx context.Context, mint string) (*dex.Quote, error) {
			return &dex.Quote{OutputMint: mint, InAmount: "1000000000", OutAmount: "42"}, nil
		},
		swap: func(ctx context.Context, quote *dex.Quote) (*dex.SwapResponse, error) {
			return &dex.SwapResponse{SwapTransaction: swapTx}, nil
		},
	}
}

func newTestExecutor(api SwapAPI, wallet *solana.Wallet, chain Chain, log zerolog.Logger) *Executor {
	return NewExecutor(api, dex.NewSigner(wallet.PrivateKey), chain, Params{
		AmountLamports: 1_000_000_000,
		SlippageBps:    5000,
		MaxRetries:     2,
	}, log)
}

var errBoom = errors.New("boom")

func decodeTx(raw []byte) (*solana.Transaction, error) {
	return solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
}
