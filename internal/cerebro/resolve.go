package cerebro

import (
	"context"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
)

// resolvedSignal carries the signal together with its resolved action and,
// when the action implies closing or reducing a position, the position it
// acts against.
type resolvedSignal struct {
	action   domain.SignalAction
	existing *domain.Position
}

// resolveAction implements spec.md §4.2(b): use the explicit action if
// present, otherwise infer it from current position state.
func (e *Engine) resolveAction(ctx context.Context, sig *domain.Signal, accountID string) (resolvedSignal, error) {
	if sig.HasExplicitAction() {
		existing, err := e.existingPositionFor(ctx, sig, accountID)
		if err != nil {
			return resolvedSignal{}, err
		}
		return resolvedSignal{action: sig.Action, existing: existing}, nil
	}

	same, err := e.accounts.FindOpenPosition(ctx, accountID, sig.StrategyID, sig.Instrument, sig.Direction)
	if err != nil {
		return resolvedSignal{}, err
	}
	if same != nil {
		return resolvedSignal{action: domain.ActionScaleIn, existing: same}, nil
	}

	opposite, err := e.accounts.FindOpenPosition(ctx, accountID, sig.StrategyID, sig.Instrument, sig.Direction.Opposite())
	if err != nil {
		return resolvedSignal{}, err
	}
	if opposite != nil {
		return resolvedSignal{action: domain.ActionExit, existing: opposite}, nil
	}

	return resolvedSignal{action: domain.ActionEntry}, nil
}

func (e *Engine) existingPositionFor(ctx context.Context, sig *domain.Signal, accountID string) (*domain.Position, error) {
	direction := sig.Direction
	if sig.Action == domain.ActionExit || sig.Action == domain.ActionScaleOut {
		direction = sig.Direction.Opposite()
	}
	return e.accounts.FindOpenPosition(ctx, accountID, sig.StrategyID, sig.Instrument, direction)
}

// isExit reports whether action closes or reduces a position, for sizing
// and for the critical-log escalation spec.md §4.5/§7 require on failure.
func isExit(action domain.SignalAction) bool {
	return action == domain.ActionExit || action == domain.ActionScaleOut
}
