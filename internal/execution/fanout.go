package execution

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"revealbot-go/internal/metrics"
	"revealbot-go/internal/reveal"
)

// ExecuteAll runs one sub-flow per candidate concurrently and waits for all of
// them. No sub-flow can cancel another: the group carries no shared context and
// every goroutine returns nil. outcomes[i] belongs to candidates[i].
func (e *Executor) ExecuteAll(ctx context.Context, candidates []reveal.Result) []Outcome {
	outcomes := make([]Outcome, len(candidates))
	var g errgroup.Group
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = e.panicked(c, r)
				}
			}()
			outcomes[i] = e.Execute(ctx, c)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (e *Executor) panicked(c reveal.Result, r any) Outcome {
	err := fmt.Errorf("swap panicked: %v", r)
	e.log.Error().Int("target", int(c.Target)).Str("mint", c.Address).Err(err).Msg("swap failed")
	metrics.SwapsTotal.WithLabelValues(strconv.Itoa(int(c.Target)), string(StagePanic), "failure").Inc()
	now := time.Now().UTC()
	return Outcome{
		Target:   c.Target,
		Address:  c.Address,
		Stage:    StagePanic,
		Error:    err.Error(),
		Err:      err,
		Started:  now,
		Finished: now,
	}
}
