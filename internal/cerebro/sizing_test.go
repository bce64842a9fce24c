package cerebro

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
)

func acct(id string, fundID string, marginAvail float64, active bool, state domain.ConnectionState, wl ...domain.InstrumentType) domain.Account {
	whitelist := make(map[domain.InstrumentType]bool)
	for _, t := range wl {
		whitelist[t] = true
	}
	return domain.Account{
		AccountID:       id,
		FundID:          fundID,
		Active:          active,
		ConnectionState: state,
		AssetWhitelist:  whitelist,
		Balances:        domain.Balances{MarginAvailable: marginAvail},
	}
}

func TestEligibleAccounts_FiltersAndSorts(t *testing.T) {
	accounts := []domain.Account{
		acct("a1", "fund1", 1000, true, domain.ConnectionConnected, domain.InstrumentStock),
		acct("a2", "fund1", 5000, true, domain.ConnectionConnected, domain.InstrumentStock),
		acct("a3", "fund1", 9000, false, domain.ConnectionConnected, domain.InstrumentStock),    // inactive
		acct("a4", "fund1", 9000, true, domain.ConnectionDisconnected, domain.InstrumentStock), // disconnected
		acct("a5", "fund2", 9000, true, domain.ConnectionConnected, domain.InstrumentStock),    // wrong fund
		acct("a6", "fund1", 9000, true, domain.ConnectionConnected, domain.InstrumentCrypto),   // wrong asset class
	}

	eligible := eligibleAccounts(accounts, "fund1", domain.InstrumentStock)

	if assert.Len(t, eligible, 2) {
		assert.Equal(t, "a2", eligible[0].AccountID)
		assert.Equal(t, "a1", eligible[1].AccountID)
	}
}

func TestDistributeCapital_ProportionalWithResidue(t *testing.T) {
	accounts := []domain.Account{
		acct("a1", "fund1", 3000, true, domain.ConnectionConnected),
		acct("a2", "fund1", 1000, true, domain.ConnectionConnected),
	}

	out := distributeCapital(2000, accounts)
	if assert.Len(t, out, 2) {
		assert.InDelta(t, 1500, out[0].capital, 1e-6)
		assert.InDelta(t, 500, out[1].capital, 1e-6)

		var total float64
		for _, aa := range out {
			total += aa.capital
		}
		assert.InDelta(t, 2000, total, 1e-6)
	}
}

func TestDistributeCapital_CapsAtAvailableMargin(t *testing.T) {
	accounts := []domain.Account{
		acct("a1", "fund1", 100, true, domain.ConnectionConnected),
		acct("a2", "fund1", 5000, true, domain.ConnectionConnected),
	}

	out := distributeCapital(3000, accounts)
	if assert.Len(t, out, 2) {
		assert.LessOrEqual(t, out[0].capital, 100.0)
	}
}

func TestDistributeCapital_NoAccounts(t *testing.T) {
	assert.Nil(t, distributeCapital(1000, nil))
}
