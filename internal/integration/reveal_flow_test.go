package integration

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/rs/zerolog"

	dex "revealbot-go/internal/dex/solana"
	"revealbot-go/internal/execution"
	"revealbot-go/internal/feed"
	"revealbot-go/internal/poller"
	"revealbot-go/internal/reveal"
)

// feedServer serves an unrevealed listing for the first `hidden` polls, then body.
func feedServer(t *testing.T, hidden int, body string) (*httptest.Server, func() int) {
	t.Helper()
	var mu sync.Mutex
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		polls++
		n := polls
		mu.Unlock()
		if n <= hidden {
			_, _ = w.Write([]byte(`[{"phase":"pending"},{"data":[{"id":6,"tokenAddress":null},{"id":7,"tokenAddress":"  "}],"total":2}]`))
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	return srv, func() int {
		mu.Lock()
		defer mu.Unlock()
		return polls
	}
}

func jupiterServer(t *testing.T, payer solana.PublicKey, failMint string) *httptest.Server {
	t.Helper()
	ix := system.NewTransferInstruction(1, payer, solana.NewWallet().PublicKey()).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(payer))
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	swapTx := base64.StdEncoding.EncodeToString(raw)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v6/quote":
			mint := r.URL.Query().Get("outputMint")
			if mint == failMint {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"liquidity"}`))
				return
			}
			_, _ = w.Write([]byte(`{"inputMint":"` + dex.NativeMint + `","outputMint":"` + mint + `","inAmount":"1000000000","outAmount":"777","slippageBps":5000,"routePlan":[]}`))
		case "/v6/swap":
			_ = json.NewEncoder(w).Encode(dex.SwapResponse{SwapTransaction: swapTx})
		default:
			http.NotFound(w, r)
		}
	}))
}

func rpcServer(t *testing.T) *httptest.Server {
	t.Helper()
	sig := solana.Signature{7, 7, 7}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		var result any
		switch req.Method {
		case "sendTransaction":
			result = sig.String()
		case "getLatestBlockhash":
			result = map[string]any{
				"context": map[string]any{"slot": 1},
				"value":   map[string]any{"blockhash": solana.Hash{}.String(), "lastValidBlockHeight": 500},
			}
		case "getSignatureStatuses":
			result = map[string]any{
				"context": map[string]any{"slot": 2},
				"value":   []any{map[string]any{"slot": 2, "confirmations": 1, "err": nil, "confirmationStatus": "confirmed"}},
			}
		case "getBlockHeight":
			result = 10
		default:
			t.Errorf("unexpected rpc method %s", req.Method)
		}
		if len(req.ID) == 0 {
			req.ID = json.RawMessage("1")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
}

type stack struct {
	poller *poller.Poller
	logs   *bytes.Buffer
}

func newStack(t *testing.T, feedURL, jupiterURL, rpcURL string, wallet *solana.Wallet) stack {
	t.Helper()
	var buf bytes.Buffer
	log := zerolog.New(zerolog.SyncWriter(&buf))

	chain := dex.NewChain(rpcURL, "confirmed")
	chain.PollInterval = 5 * time.Millisecond
	executor := execution.NewExecutor(
		dex.NewJupiterClient(jupiterURL),
		dex.NewSigner(wallet.PrivateKey),
		chain,
		execution.Params{AmountLamports: 1_000_000_000, SlippageBps: 5000, MaxRetries: 2},
		log,
	)
	p := poller.New(poller.Config{Interval: 5 * time.Millisecond, Targets: reveal.Targets([]int{6, 7})},
		feed.NewClient(feedURL, log), executor, log)
	return stack{poller: p, logs: &buf}
}

func TestRevealOfOneTargetBuysItAndSkipsTheOther(t *testing.T) {
	wallet := solana.NewWallet()
	feedSrv, polls := feedServer(t, 2, `[{"phase":"live"},{"data":[{"id":6,"tokenAddress":"Mint1"},{"id":7,"tokenAddress":""}],"total":2}]`)
	defer feedSrv.Close()
	jup := jupiterServer(t, wallet.PublicKey(), "")
	defer jup.Close()
	rpc := rpcServer(t)
	defer rpc.Close()

	s := newStack(t, feedSrv.URL, jup.URL, rpc.URL, wallet)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcomes, err := s.poller.Run(ctx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !s.poller.Fired() {
		t.Fatalf("expected latch to be set")
	}
	if polls() != 3 {
		t.Fatalf("expected polling to stop at the reveal, got %d polls", polls())
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected two outcomes, got %+v", outcomes)
	}
	if !outcomes[0].Success || outcomes[0].Address != "Mint1" || outcomes[0].Signature == "" {
		t.Fatalf("expected confirmed swap for Mint1, got %+v", outcomes[0])
	}
	if !outcomes[1].Skipped || outcomes[1].Target != 7 {
		t.Fatalf("expected no-op for target 7, got %+v", outcomes[1])
	}
}

func TestQuoteFailureIsolatedToOneTarget(t *testing.T) {
	wallet := solana.NewWallet()
	feedSrv, _ := feedServer(t, 0, `[{},{"data":[{"id":7,"tokenAddress":"Mint2"},{"id":6,"tokenAddress":"Mint1"}]}]`)
	defer feedSrv.Close()
	jup := jupiterServer(t, wallet.PublicKey(), "Mint1")
	defer jup.Close()
	rpc := rpcServer(t)
	defer rpc.Close()

	s := newStack(t, feedSrv.URL, jup.URL, rpc.URL, wallet)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcomes, err := s.poller.Run(ctx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected two outcomes, got %+v", outcomes)
	}
	if outcomes[0].Success || outcomes[0].Stage != execution.StageQuote || !strings.Contains(outcomes[0].Error, "liquidity") {
		t.Fatalf("expected quote failure for Mint1, got %+v", outcomes[0])
	}
	if !outcomes[1].Success || outcomes[1].Address != "Mint2" {
		t.Fatalf("expected Mint2 to complete, got %+v", outcomes[1])
	}
	if !strings.Contains(s.logs.String(), "quote error") {
		t.Fatalf("expected quote error in logs")
	}
}

func TestFeedOutageDoesNotStopPolling(t *testing.T) {
	wallet := solana.NewWallet()
	var mu sync.Mutex
	calls := 0
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n < 3 {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{},{"data":[{"id":6,"tokenAddress":"Mint1"}]}]`))
	}))
	defer feedSrv.Close()
	jup := jupiterServer(t, wallet.PublicKey(), "")
	defer jup.Close()
	rpc := rpcServer(t)
	defer rpc.Close()

	s := newStack(t, feedSrv.URL, jup.URL, rpc.URL, wallet)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcomes, err := s.poller.Run(ctx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(outcomes) != 2 || !outcomes[0].Success {
		t.Fatalf("expected recovery after outage, got %+v", outcomes)
	}
	if !strings.Contains(s.logs.String(), "feed poll failed") {
		t.Fatalf("expected feed errors to be logged")
	}
}
