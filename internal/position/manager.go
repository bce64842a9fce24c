// Package position implements the entry/scale/exit state machine over
// (strategy, instrument, direction), grounded on the original's
// position_manager.py proportional cost-basis reduction and flip-recursion
// rules (spec.md §4.4).
package position

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
	pipelineerrors "github.com/abdoElHodaky/mathematricks-pipeline/internal/errors"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/store"
)

// Manager applies fills to the position store.
type Manager struct {
	accounts *store.AccountRepository
	closed   *store.ClosedPositionRepository
	logger   *zap.Logger
}

func NewManager(accounts *store.AccountRepository, closed *store.ClosedPositionRepository, logger *zap.Logger) *Manager {
	return &Manager{accounts: accounts, closed: closed, logger: logger}
}

// Fill is what Execution hands the manager on every confirmation.
type Fill struct {
	AccountID  string
	StrategyID string
	Instrument string
	InstrumentType domain.InstrumentType
	Direction  domain.Direction
	OrderID    string
	Quantity   float64
	Price      float64
	MarginUsed float64
	IsExit     bool
}

// Apply runs one fill through the state machine described in spec.md §4.4.
// It is safe to call repeatedly for the same logical key only when the
// caller serializes calls for that key (see internal/execution's per-key
// sharding).
func (m *Manager) Apply(ctx context.Context, f Fill) error {
	existing, err := m.accounts.FindOpenPosition(ctx, f.AccountID, f.StrategyID, f.Instrument, f.Direction)
	if err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeDatabase, "lookup open position failed")
	}

	if existing == nil {
		opposite, err := m.accounts.FindOpenPosition(ctx, f.AccountID, f.StrategyID, f.Instrument, f.Direction.Opposite())
		if err != nil {
			return pipelineerrors.Wrap(err, pipelineerrors.CodeDatabase, "lookup opposite position failed")
		}
		if opposite != nil {
			return m.closeOrPartial(ctx, f, opposite)
		}
		return m.create(ctx, f)
	}

	return m.scaleIn(ctx, f, existing)
}

func (m *Manager) create(ctx context.Context, f Fill) error {
	now := time.Now()
	p := domain.Position{
		PositionID:     domain.PositionID(f.StrategyID, f.Instrument, f.Direction, now),
		StrategyID:     f.StrategyID,
		AccountID:      f.AccountID,
		Instrument:     f.Instrument,
		InstrumentType: f.InstrumentType,
		Direction:      f.Direction,
		Quantity:       f.Quantity,
		AvgEntryPrice:  f.Price,
		TotalCostBasis: f.Quantity * f.Price,
		MarginUsed:     f.MarginUsed,
		Status:         domain.PositionOpen,
		EntryOrderIDs:  []string{f.OrderID},
		OpenedAt:       now,
	}
	if err := m.accounts.PushOpenPosition(ctx, f.AccountID, p); err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeDatabase, "create position failed")
	}
	return nil
}

func (m *Manager) scaleIn(ctx context.Context, f Fill, existing *domain.Position) error {
	newQty := existing.Quantity + f.Quantity
	newCost := existing.TotalCostBasis + f.Quantity*f.Price
	existing.Quantity = newQty
	existing.TotalCostBasis = newCost
	existing.AvgEntryPrice = newCost / newQty
	existing.MarginUsed += f.MarginUsed
	existing.EntryOrderIDs = append(existing.EntryOrderIDs, f.OrderID)

	if err := m.accounts.ReplaceOpenPosition(ctx, f.AccountID, *existing); err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeDatabase, "scale-in position failed")
	}
	return nil
}

// closeOrPartial handles an opposite-direction fill: partial close if
// fill < held quantity, full close (with possible flip) otherwise.
func (m *Manager) closeOrPartial(ctx context.Context, f Fill, existing *domain.Position) error {
	if f.Quantity < existing.Quantity {
		fraction := f.Quantity / existing.Quantity
		reducedCost := existing.TotalCostBasis * fraction
		existing.Quantity -= f.Quantity
		existing.TotalCostBasis -= reducedCost
		existing.RealizedPnL += grossPnL(existing.Direction, existing.AvgEntryPrice, f.Price, f.Quantity)
		existing.ExitOrderIDs = append(existing.ExitOrderIDs, f.OrderID)

		if err := m.accounts.ReplaceOpenPosition(ctx, f.AccountID, *existing); err != nil {
			return pipelineerrors.Wrap(err, pipelineerrors.CodeDatabase, "partial close failed")
		}
		return nil
	}

	// Full close: archive first, then remove from the embedded array — if
	// the archive write fails, spec.md §4.4 requires keeping the row and
	// surfacing an error.
	now := time.Now()
	existing.ExitOrderIDs = append(existing.ExitOrderIDs, f.OrderID)
	existing.Status = domain.PositionClosed
	existing.ClosedAt = &now
	gross := grossPnL(existing.Direction, existing.AvgEntryPrice, f.Price, existing.Quantity)
	existing.RealizedPnL += gross

	archived := domain.ClosedPosition{
		Position:      *existing,
		GrossPnL:      gross,
		HoldingPeriod: now.Sub(existing.OpenedAt),
	}
	if err := m.closed.Insert(ctx, &archived); err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeDatabase, "archive closed position failed")
	}
	if err := m.accounts.PullOpenPosition(ctx, f.AccountID, existing.PositionID); err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeDatabase, "remove closed position failed")
	}

	remainder := f.Quantity - existing.Quantity
	if remainder > 0 {
		flip := f
		flip.Quantity = remainder
		return m.create(ctx, flip)
	}
	return nil
}

// grossPnL computes (exit-entry)*qty for LONG, the mirror for SHORT.
func grossPnL(heldDirection domain.Direction, entryPrice, exitPrice, qty float64) float64 {
	if heldDirection == domain.DirectionLong {
		return (exitPrice - entryPrice) * qty
	}
	return (entryPrice - exitPrice) * qty
}
