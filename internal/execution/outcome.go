package execution

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	solana "github.com/gagliardetto/solana-go"

	dex "revealbot-go/internal/dex/solana"
	"revealbot-go/internal/reveal"
)

// Failure kinds. Each one stays inside its own sub-flow.
var (
	ErrQuote             = errors.New("quote error")
	ErrSwapBuild         = errors.New("swap build error")
	ErrSubmission        = errors.New("submission error")
	ErrConfirmation      = errors.New("confirmation error")
	ErrTransactionFailed = errors.New("transaction failed")
)

// ExplorerBase prefixes signatures to build a block-explorer link.
const ExplorerBase = "https://solscan.io/tx/"

// Stage names the last step a sub-flow reached.
type Stage string

const (
	StageSkipped Stage = "skipped"
	StageQuote   Stage = "quote"
	StageBuild   Stage = "build"
	StageSign    Stage = "sign"
	StageSubmit  Stage = "submit"
	StageConfirm Stage = "confirm"
	StagePanic   Stage = "panic"
)

// Outcome is the per-target result of an execution attempt.
type Outcome struct {
	Target    reveal.Target `json:"target"`
	Address   string        `json:"address"`
	Success   bool          `json:"success"`
	Skipped   bool          `json:"skipped,omitempty"`
	Stage     Stage         `json:"stage"`
	Signature string        `json:"signature,omitempty"`
	Explorer  string        `json:"explorer,omitempty"`
	Error     string        `json:"error,omitempty"`
	Started   time.Time     `json:"started"`
	Finished  time.Time     `json:"finished"`

	Err error `json:"-"`
}

// Result labels the outcome for metrics and logs.
func (o Outcome) Result() string {
	switch {
	case o.Skipped:
		return "skipped"
	case o.Success:
		return "success"
	}
	return "failure"
}

// Interpret turns a confirmation into an outcome. It never panics: a nil
// result counts as a confirmation failure.
func Interpret(c reveal.Result, sig solana.Signature, res *dex.ConfirmationResult) Outcome {
	out := Outcome{
		Target:    c.Target,
		Address:   c.Address,
		Stage:     StageConfirm,
		Signature: sig.String(),
		Explorer:  ExplorerBase + sig.String(),
		Finished:  time.Now().UTC(),
	}
	switch {
	case res == nil:
		out.Err = fmt.Errorf("%w: no confirmation result", ErrConfirmation)
		out.Error = out.Err.Error()
	case res.Err != nil:
		detail := errorDetail(res.Err)
		out.Err = fmt.Errorf("%w: %s", ErrTransactionFailed, detail)
		out.Error = detail
	default:
		out.Success = true
	}
	return out
}

func errorDetail(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}
