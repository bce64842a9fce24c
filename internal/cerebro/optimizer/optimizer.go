// Package optimizer exposes the read-only interface Cerebro consults to
// adjust allocation bounds for strategies that opted into portfolio
// optimization (spec.md §1's Non-goal covers the optimization math itself,
// not this interface — the research engine that implements it lives
// outside this repository).
package optimizer

import "context"

// Hint is an optional adjustment to a strategy's nominal allocation_pct.
type Hint struct {
	AdjustedAllocationPct float64
	Applies               bool
}

// Source is implemented by an external optimization engine. The default
// NoOp never adjusts anything.
type Source interface {
	HintFor(ctx context.Context, fundID, strategyID string) (Hint, error)
}

// NoOp is the default Source: every strategy uses its nominal allocation.
type NoOp struct{}

func (NoOp) HintFor(ctx context.Context, fundID, strategyID string) (Hint, error) {
	return Hint{Applies: false}, nil
}

var _ Source = NoOp{}
