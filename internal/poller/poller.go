// Package poller runs the detect-once, fire-once loop over the reveal feed.
package poller

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"revealbot-go/internal/execution"
	"revealbot-go/internal/feed"
	"revealbot-go/internal/metrics"
	"revealbot-go/internal/reveal"
)

// DefaultInterval is the fixed delay between polls.
const DefaultInterval = 100 * time.Millisecond

// SnapshotSource provides feed snapshots.
type SnapshotSource interface {
	Fetch(ctx context.Context) (*feed.Snapshot, error)
}

// Phase executes swaps for every candidate and waits for all of them.
type Phase interface {
	ExecuteAll(ctx context.Context, candidates []reveal.Result) []execution.Outcome
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration
	Targets  []reveal.Target
}

// Poller owns the execution latch. Once fired it never polls again.
type Poller struct {
	cfg    Config
	source SnapshotSource
	phase  Phase
	log    zerolog.Logger
	fired  atomic.Bool
}

func New(cfg Config, source SnapshotSource, phase Phase, log zerolog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Poller{cfg: cfg, source: source, phase: phase, log: log}
}

// Fired reports whether the execution phase has been entered.
func (p *Poller) Fired() bool { return p.fired.Load() }

// Run polls until the execution phase completes or ctx is canceled. The next
// fetch is only scheduled after the previous tick fully settled.
func (p *Poller) Run(ctx context.Context) ([]execution.Outcome, error) {
	p.log.Info().Dur("interval", p.cfg.Interval).Interface("targets", p.cfg.Targets).Msg("poller started")
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("poller stopped")
			return nil, ctx.Err()
		case <-timer.C:
		}
		outcomes, done := p.Tick(ctx)
		if done {
			return outcomes, nil
		}
		timer.Reset(p.cfg.Interval)
	}
}

// Tick runs one poll. done is true once the latch is set; outcomes are only
// returned by the tick that set it.
func (p *Poller) Tick(ctx context.Context) (outcomes []execution.Outcome, done bool) {
	if p.fired.Load() {
		return nil, true
	}
	snap, err := p.source.Fetch(ctx)
	if err != nil {
		metrics.FeedPollsTotal.WithLabelValues("error").Inc()
		p.log.Warn().Err(err).Msg("feed poll failed")
		return nil, false
	}
	results := reveal.Detect(snap, p.cfg.Targets)
	if len(results) == 0 {
		metrics.FeedPollsTotal.WithLabelValues("empty").Inc()
		return nil, false
	}
	if !p.fired.CompareAndSwap(false, true) {
		return nil, true
	}
	metrics.FeedPollsTotal.WithLabelValues("revealed").Inc()
	metrics.ExecutionsTotal.Inc()
	for _, r := range results {
		metrics.RevealsTotal.WithLabelValues(strconv.Itoa(int(r.Target))).Inc()
		p.log.Info().Int("target", int(r.Target)).Str("mint", r.Address).Msg("reveal detected")
	}

	// The swaps are irreversible once submitted; shutdown must not abort them halfway.
	outcomes = p.phase.ExecuteAll(context.WithoutCancel(ctx), reveal.Candidates(p.cfg.Targets, results))
	p.log.Info().Int("outcomes", len(outcomes)).Msg("execution phase done")
	return outcomes, true
}
