// Package cerebro implements the per-signal sizing and routing decision
// engine, grounded on original_source/services/cerebro_service — the
// idempotency gate, signal-type resolution, fund discovery, sizing,
// account selection, capital distribution, quantity/margin computation and
// order emission of spec.md §4.2.
package cerebro

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/broker"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/bus"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/cerebro/optimizer"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
	pipelineerrors "github.com/abdoElHodaky/mathematricks-pipeline/internal/errors"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/margin"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/metrics"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/store"
)

// Engine is the decision engine. Apart from its 24h quantity-precision
// cache, it keeps no state between calls to Decide; all other state lives
// in the injected stores.
type Engine struct {
	signals     *store.SignalRepository
	orders      *store.OrderRepository
	accounts    *store.AccountRepository
	funds       *store.FundRepository
	allocations *store.AllocationRepository
	strategies  *store.StrategyRepository

	bus      *bus.Bus
	preview  *margin.PreviewClient
	optimize optimizer.Source
	logger   *zap.Logger

	brokers    map[string]broker.Adapter
	precision  *broker.PrecisionCache
	mockMargin bool

	maxMarginUtilization float64
}

// Deps bundles the Engine's dependencies for construction.
type Deps struct {
	Signals     *store.SignalRepository
	Orders      *store.OrderRepository
	Accounts    *store.AccountRepository
	Funds       *store.FundRepository
	Allocations *store.AllocationRepository
	Strategies  *store.StrategyRepository
	Bus         *bus.Bus
	Preview     *margin.PreviewClient
	Optimize    optimizer.Source
	Logger      *zap.Logger
	MockMargin  bool

	// Brokers routes an account's broker name to the adapter Cerebro uses
	// for the per-symbol quantity-precision lookup of spec.md §4.2(g).
	Brokers map[string]broker.Adapter

	// MaxMarginUtilization is the fraction of account equity Cerebro will
	// shrink-to-fit an order into, per spec.md §4.2(g); defaults to 0.9.
	MaxMarginUtilization float64
}

func NewEngine(d Deps) *Engine {
	if d.Optimize == nil {
		d.Optimize = optimizer.NoOp{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.MaxMarginUtilization <= 0 {
		d.MaxMarginUtilization = 0.9
	}
	return &Engine{
		signals:              d.Signals,
		orders:               d.Orders,
		accounts:             d.Accounts,
		funds:                d.Funds,
		allocations:          d.Allocations,
		strategies:           d.Strategies,
		bus:                  d.Bus,
		preview:              d.Preview,
		optimize:             d.Optimize,
		logger:               d.Logger,
		brokers:              d.Brokers,
		precision:            broker.NewPrecisionCache(),
		mockMargin:           d.MockMargin,
		maxMarginUtilization: d.MaxMarginUtilization,
	}
}

// Decide runs the full (a)-(h) pipeline from spec.md §4.2 for one
// standardized signal. It never returns an error for business-logic
// rejections — those are recorded as REJECT decisions and Decide returns
// nil so the caller ACKs the message; it returns an error only for
// infrastructure failures that should nack and retry.
func (e *Engine) Decide(ctx context.Context, sig *domain.Signal) error {
	// (a) Idempotency gate.
	existing, err := e.signals.DecisionFor(ctx, sig.SignalID)
	if err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeDatabase, "idempotency check failed")
	}
	if existing != nil && existing.Terminal {
		e.logger.Info("duplicate signal, skipping", zap.String("signal_id", sig.SignalID))
		return nil
	}

	strategy, err := e.strategies.ByID(ctx, sig.StrategyID)
	if err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeDatabase, "load strategy failed")
	}
	if strategy == nil || !strategy.Active {
		return e.reject(ctx, sig, "strategy inactive or not found")
	}

	// (c) Fund discovery: one independent sizing attempt per ACTIVE
	// allocation containing this strategy.
	allocations, err := e.allocations.ActiveContaining(ctx, sig.StrategyID)
	if err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeDatabase, "load allocations failed")
	}
	if len(allocations) == 0 {
		return e.reject(ctx, sig, "no ACTIVE allocation for strategy")
	}

	var orderIDs []string
	var selectedAccounts []string
	anySucceeded := false

	for _, alloc := range allocations {
		ids, accts, err := e.decideForFund(ctx, sig, strategy, &alloc)
		if err != nil {
			e.logger.Error("per-fund decision failed", zap.String("fund_id", alloc.FundID), zap.Error(err))
			metrics.DecisionsRejected.WithLabelValues("fund_error").Inc()
			continue
		}
		if len(ids) > 0 {
			anySucceeded = true
			orderIDs = append(orderIDs, ids...)
			selectedAccounts = append(selectedAccounts, accts...)
		}
	}

	if !anySucceeded {
		return e.reject(ctx, sig, "no fund produced a viable order")
	}

	return e.signals.AppendDecision(ctx, &store.Decision{
		SignalID:         sig.SignalID,
		Terminal:         true,
		Accepted:         true,
		SelectedAccounts: selectedAccounts,
		OrderIDs:         orderIDs,
	})
}

func (e *Engine) reject(ctx context.Context, sig *domain.Signal, reason string) error {
	metrics.DecisionsRejected.WithLabelValues(reason).Inc()
	return e.signals.AppendDecision(ctx, &store.Decision{
		SignalID:     sig.SignalID,
		Terminal:     true,
		Accepted:     false,
		RejectReason: reason,
	})
}

// decideForFund implements steps (d)-(h) for a single fund, returning the
// order ids and account ids it produced.
func (e *Engine) decideForFund(ctx context.Context, sig *domain.Signal, strategy *domain.Strategy, alloc *domain.Allocation) ([]string, []string, error) {
	pct, ok := alloc.PctFor(sig.StrategyID)
	if !ok {
		return nil, nil, nil
	}
	if strategy.OptimizationOptIn {
		if hint, err := e.optimize.HintFor(ctx, alloc.FundID, sig.StrategyID); err == nil && hint.Applies {
			pct = hint.AdjustedAllocationPct
		}
	}

	sizing, err := e.sizeForFund(ctx, alloc.FundID, sig.StrategyID, pct)
	if err != nil {
		return nil, nil, err
	}

	fundAccounts, err := e.accounts.ByFund(ctx, alloc.FundID)
	if err != nil {
		return nil, nil, err
	}
	eligible := eligibleAccounts(fundAccounts, alloc.FundID, sig.InstrumentType)
	if len(eligible) == 0 {
		return nil, nil, nil
	}

	// Resolve signal type per-account-group (one resolution per fund is
	// sufficient: the (strategy, instrument, direction) key does not vary
	// by account within a fund for this signal).
	resolved, err := e.resolveAction(ctx, sig, eligible[0].AccountID)
	if err != nil {
		return nil, nil, err
	}

	target := sizing.availableCapital
	if isExit(resolved.action) && resolved.existing != nil {
		target = resolved.existing.TotalCostBasis
	}
	if target <= 0 {
		return nil, nil, nil
	}

	allocations := distributeCapital(target, eligible)
	if len(allocations) == 0 {
		return nil, nil, nil
	}

	var orderIDs, accountIDs []string
	for i, aa := range allocations {
		if aa.capital <= 0 {
			continue
		}
		order, err := e.buildOrder(ctx, sig, strategy, alloc.FundID, aa, resolved, len(orderIDs))
		if err != nil {
			e.logger.Warn("order build failed for account", zap.String("account_id", aa.account.AccountID), zap.Error(err))
			continue
		}
		if order == nil {
			continue
		}

		if err := e.orders.Insert(ctx, order); err != nil {
			return orderIDs, accountIDs, err
		}
		if err := e.bus.Publish(bus.TopicTradingOrders, order); err != nil {
			return orderIDs, accountIDs, pipelineerrors.Wrap(err, pipelineerrors.CodeBusUnavailable, "publish order failed")
		}
		metrics.OrdersPlaced.WithLabelValues(string(order.Status)).Inc()
		orderIDs = append(orderIDs, order.OrderID)
		accountIDs = append(accountIDs, aa.account.AccountID)
		_ = i
	}
	return orderIDs, accountIDs, nil
}

func (e *Engine) buildOrder(ctx context.Context, sig *domain.Signal, strategy *domain.Strategy, fundID string, aa accountAllocation, resolved resolvedSignal, index int) (*domain.Order, error) {
	price := sig.Price
	if price <= 0 {
		price = 1 // MARKET orders carry no price at decision time; a real
		// implementation would consult the latest quote here.
	}

	var rawQty float64
	if isExit(resolved.action) && resolved.existing != nil {
		rawQty = resolved.existing.Quantity
	} else {
		rawQty = aa.capital / price
	}

	precision := e.precisionFor(ctx, aa.account.Broker, sig.Instrument, sig.InstrumentType)
	qty := roundToPrecision(rawQty, precision)
	if qty <= 0 {
		return nil, nil
	}

	marginResult, err := margin.Calculate(ctx, margin.Input{
		Instrument:     sig.Instrument,
		InstrumentType: sig.InstrumentType,
		Quantity:       qty,
		Price:          price,
		Direction:      sig.Direction,
		Expiry:         sig.Expiry,
		Exchange:       sig.Exchange,
		AccountID:      aa.account.AccountID,
		Mock:           e.mockMargin,
	}, e.preview)
	if err != nil {
		return nil, err
	}

	if aa.account.Balances.MarginUsed+marginResult.InitialMargin > aa.account.Balances.Equity*e.maxMarginUtilization {
		// Shrink to what fits, per spec.md §4.2(g); reject this account if
		// nothing fits.
		room := aa.account.Balances.Equity*e.maxMarginUtilization - aa.account.Balances.MarginUsed
		if room <= 0 {
			return nil, nil
		}
		shrinkRatio := room / marginResult.InitialMargin
		qty = roundToPrecision(qty*shrinkRatio, precision)
		if qty <= 0 {
			return nil, nil
		}
		marginResult.InitialMargin = room
	}

	now := time.Now()
	order := &domain.Order{
		OrderID:        domain.OrderIDFor(sig.SignalID, index),
		SignalID:       sig.SignalID,
		StrategyID:     sig.StrategyID,
		AccountID:      aa.account.AccountID,
		FundID:         fundID,
		Broker:         aa.account.Broker,
		Instrument:     sig.Instrument,
		InstrumentType: sig.InstrumentType,
		Direction:      sig.Direction,
		Quantity:       qty,
		OrderType:      sig.OrderType,
		Price:          sig.Price,
		StopLoss:       sig.StopLoss,
		TakeProfit:     sig.TakeProfit,
		Status:         domain.OrderStatusPending,
		NotionalValue:  qty * price,
		MarginUsed:     marginResult.InitialMargin,
		IsExit:         isExit(resolved.action),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return order, nil
}

// precisionFor fetches the broker's per-symbol quantity precision through a
// 24h-cached lookup, falling back to the instrument-type default on a
// lookup failure or when no adapter is registered for brokerName, per
// spec.md §4.2(g).
func (e *Engine) precisionFor(ctx context.Context, brokerName, instrument string, t domain.InstrumentType) int {
	adapter, ok := e.brokers[brokerName]
	if !ok {
		return broker.DefaultPrecision(t)
	}
	return e.precision.Lookup(ctx, brokerName, instrument, t, func(ctx context.Context) (int, error) {
		return adapter.GetQuantityPrecision(ctx, instrument, t)
	})
}
