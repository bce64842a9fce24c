package execution

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/bus"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/metrics"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/store"
)

// snapshotInterval is how often Dispatcher polls every connected broker for
// its account balances and republishes them, per spec.md §4.5's periodic
// account-state publication step.
const snapshotInterval = 30 * time.Second

// RunSnapshotLoop polls every active account's broker balance and publishes
// it to account-updates until ctx is cancelled. It is started as a separate
// goroutine from Run so a slow broker poll never blocks order submission.
func (d *Dispatcher) RunSnapshotLoop(ctx context.Context, accounts *store.AccountRepository) {
	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			accountIDs, err := accounts.AllActive(ctx)
			if err != nil {
				d.logger.Warn("list active accounts failed", zap.Error(err))
				continue
			}
			d.snapshotOnce(ctx, accounts, accountIDs)
		}
	}
}

func (d *Dispatcher) snapshotOnce(ctx context.Context, accounts *store.AccountRepository, accountIDs []string) {
	for _, accountID := range accountIDs {
		acct, err := accounts.ByID(ctx, accountID)
		if err != nil || acct == nil {
			continue
		}
		adapter, ok := d.brokers[acct.Broker]
		if !ok || !adapter.IsConnected() {
			continue
		}

		bal, err := adapter.GetAccountBalance(ctx, accountID)
		if err != nil {
			d.logger.Warn("poll account balance failed", zap.String("account_id", accountID), zap.Error(err))
			continue
		}

		balances := acct.Balances
		balances.Equity = bal.Equity
		balances.Cash = bal.Cash
		balances.MarginUsed = bal.MarginUsed
		balances.MarginAvailable = bal.MarginAvailable
		balances.RealizedPnL = bal.RealizedPnL
		balances.UnrealizedPnL = bal.UnrealizedPnL
		balances.Recompute()

		if err := accounts.UpdateBalances(ctx, accountID, balances); err != nil {
			d.logger.Warn("persist account balance failed", zap.String("account_id", accountID), zap.Error(err))
			continue
		}
		metrics.OpenPositionsGauge.WithLabelValues(accountID).Set(float64(len(acct.OpenPositions)))

		if err := d.bus.Publish(bus.TopicAccountUpdates, struct {
			AccountID     string  `json:"account_id"`
			Equity        float64 `json:"equity"`
			MarginUtilPct float64 `json:"margin_util_pct"`
		}{AccountID: accountID, Equity: balances.Equity, MarginUtilPct: balances.MarginUtilPct}); err != nil {
			d.logger.Warn("publish account update failed", zap.String("account_id", accountID), zap.Error(err))
		}
	}
}
