package cerebro

import (
	"context"
	"sort"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
	pipelineerrors "github.com/abdoElHodaky/mathematricks-pipeline/internal/errors"
)

// fundSizing is the output of spec.md §4.2(d) for one fund.
type fundSizing struct {
	fund             domain.Fund
	allocationPct    float64
	allocatedCapital float64
	usedCapital      float64
	availableCapital float64
}

// sizeForFund recomputes fund equity, persists it, and derives the
// available capital for strategyID within that fund, per spec.md §4.2(d).
func (e *Engine) sizeForFund(ctx context.Context, fundID, strategyID string, allocationPct float64) (fundSizing, error) {
	accounts, err := e.accounts.ByFund(ctx, fundID)
	if err != nil {
		return fundSizing{}, pipelineerrors.Wrap(err, pipelineerrors.CodeDatabase, "load fund accounts failed")
	}
	var totalEquity float64
	for _, a := range accounts {
		totalEquity += a.Balances.Equity
	}
	if err := e.funds.SetTotalEquity(ctx, fundID, totalEquity); err != nil {
		return fundSizing{}, pipelineerrors.Wrap(err, pipelineerrors.CodeDatabase, "persist fund equity failed")
	}

	allocated := totalEquity * allocationPct / 100
	used, err := e.orders.UsedCapital(ctx, strategyID, fundID)
	if err != nil {
		return fundSizing{}, pipelineerrors.Wrap(err, pipelineerrors.CodeDatabase, "compute used capital failed")
	}
	available := allocated - used
	if available < 0 {
		available = 0
	}

	return fundSizing{
		fund:             domain.Fund{FundID: fundID, TotalEquity: totalEquity},
		allocationPct:    allocationPct,
		allocatedCapital: allocated,
		usedCapital:      used,
		availableCapital: available,
	}, nil
}

// eligibleAccounts filters and sorts accounts per spec.md §4.2(e): member of
// the fund, ACTIVE, supports the instrument's asset class, sorted by
// available_margin descending.
func eligibleAccounts(accounts []domain.Account, fundID string, instrumentType domain.InstrumentType) []domain.Account {
	var out []domain.Account
	for _, a := range accounts {
		if a.IsEligible(fundID, instrumentType) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AvailableMargin() > out[j].AvailableMargin()
	})
	return out
}

// accountAllocation is one account's share of a fund-level sizing decision.
type accountAllocation struct {
	account domain.Account
	capital float64
}

// distributeCapital splits target across accounts in proportion to their
// available_margin, capping each account at its own available_margin, with
// the last account absorbing rounding residue — spec.md §4.2(f).
func distributeCapital(target float64, accounts []domain.Account) []accountAllocation {
	if len(accounts) == 0 || target <= 0 {
		return nil
	}

	var totalMargin float64
	for _, a := range accounts {
		totalMargin += a.AvailableMargin()
	}
	if totalMargin <= 0 {
		return nil
	}

	out := make([]accountAllocation, 0, len(accounts))
	var distributed float64
	for i, a := range accounts {
		var share float64
		if i == len(accounts)-1 {
			share = target - distributed
		} else {
			share = target * (a.AvailableMargin() / totalMargin)
		}
		if share > a.AvailableMargin() {
			share = a.AvailableMargin()
		}
		if share < 0 {
			share = 0
		}
		out = append(out, accountAllocation{account: a, capital: share})
		distributed += share
	}
	return out
}
