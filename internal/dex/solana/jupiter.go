package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
)

// NativeMint is the wrapped SOL mint Jupiter uses for the native currency.
const NativeMint = "So11111111111111111111111111111111111111112"

// ErrEmptyResponse is returned when Jupiter answers 200 with nothing usable.
var ErrEmptyResponse = errors.New("empty response")

type JupiterClient struct {
	Base string
	Http *http.Client
}

// Quote keeps the fields the bot reads plus the raw payload, which is echoed back
// verbatim as quoteResponse when building the swap.
type Quote struct {
	InputMint      string `json:"inputMint"`
	OutputMint     string `json:"outputMint"`
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	OtherAmount    string `json:"otherAmountThreshold"`
	SlippageBps    int    `json:"slippageBps"`
	PriceImpactPct string `json:"priceImpactPct"`
	Error          string `json:"error,omitempty"`

	raw json.RawMessage
}

// UnmarshalJSON decodes the known fields and retains the original bytes.
func (q *Quote) UnmarshalJSON(data []byte) error {
	type plain Quote
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*q = Quote(p)
	q.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the original payload when the quote came from Jupiter.
func (q Quote) MarshalJSON() ([]byte, error) {
	if len(q.raw) > 0 {
		return q.raw, nil
	}
	type plain Quote
	return json.Marshal(plain(q))
}

// SwapResponse is the /swap answer; SwapTransaction is a base64 unsigned transaction.
type SwapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	Error                string `json:"error,omitempty"`
}

func NewJupiterClient(base string) *JupiterClient {
	return &JupiterClient{
		Base: strings.TrimSuffix(base, "/"),
		Http: &http.Client{Timeout: 8 * time.Second},
	}
}

// amount is in smallest units (lamports for SOL; token decimals apply).
func (j *JupiterClient) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", fmt.Sprintf("%d", amount))
	q.Set("slippageBps", fmt.Sprintf("%d", slippageBps))
	u := j.Base + "/v6/quote?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	var out Quote
	if err := j.do(req, &out); err != nil {
		return nil, fmt.Errorf("jupiter quote: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("jupiter quote: %s", out.Error)
	}
	if out.OutAmount == "" {
		return nil, fmt.Errorf("jupiter quote: %w", ErrEmptyResponse)
	}
	return &out, nil
}

// GetSwapTransaction asks Jupiter for a ready-to-sign transaction for quote.
func (j *JupiterClient) GetSwapTransaction(ctx context.Context, quote *Quote, user solana.PublicKey) (*SwapResponse, error) {
	if quote == nil {
		return nil, fmt.Errorf("jupiter swap: nil quote")
	}
	payload := map[string]any{
		"quoteResponse":    quote,
		"userPublicKey":    user.String(),
		"wrapAndUnwrapSol": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("jupiter swap: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.Base+"/v6/swap", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	var out SwapResponse
	if err := j.do(req, &out); err != nil {
		return nil, fmt.Errorf("jupiter swap: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("jupiter swap: %s", out.Error)
	}
	if out.SwapTransaction == "" {
		return nil, fmt.Errorf("jupiter swap: %w", ErrEmptyResponse)
	}
	return &out, nil
}

// do decodes error bodies too, so a {"error": ...} payload on a 4xx is reported verbatim.
func (j *JupiterClient) do(req *http.Request, out any) error {
	resp, err := j.Http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// DecodeTransaction turns Jupiter's base64 payload into a transaction.
func DecodeTransaction(b64 string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode tx: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal tx: %w", err)
	}
	return tx, nil
}
