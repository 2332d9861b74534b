// Package reveal decides, from one feed snapshot, which watched entities have published a mint.
package reveal

import "revealbot-go/internal/feed"

// Target is a watched entity id.
type Target int

// Result pairs a target with its revealed mint address.
type Result struct {
	Target  Target `json:"target"`
	Address string `json:"address"`
}

// Targets converts configured ids, preserving order.
func Targets(ids []int) []Target {
	out := make([]Target, len(ids))
	for i, id := range ids {
		out[i] = Target(id)
	}
	return out
}

// Detect returns one Result per target whose entity exists with a non-blank
// token address. Order follows targets, not the snapshot. It has no side effects.
func Detect(snap *feed.Snapshot, targets []Target) []Result {
	var out []Result
	for _, t := range targets {
		e, ok := snap.Entity(int(t))
		if !ok {
			continue
		}
		if mint := e.Mint(); mint != "" {
			out = append(out, Result{Target: t, Address: mint})
		}
	}
	return out
}

// Candidates expands results to one entry per target, in target order. Targets
// that have not revealed carry an empty address so the executor can no-op them.
func Candidates(targets []Target, results []Result) []Result {
	revealed := make(map[Target]string, len(results))
	for _, r := range results {
		revealed[r.Target] = r.Address
	}
	out := make([]Result, len(targets))
	for i, t := range targets {
		out[i] = Result{Target: t, Address: revealed[t]}
	}
	return out
}
