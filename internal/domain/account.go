package domain

// ConnectionState is the last observed health of a broker session for an
// account.
type ConnectionState string

const (
	ConnectionConnected    ConnectionState = "CONNECTED"
	ConnectionError        ConnectionState = "ERROR"
	ConnectionDisconnected ConnectionState = "DISCONNECTED"
)

// Balances is the polled snapshot of an account's financial state.
type Balances struct {
	Equity          float64 `bson:"equity" json:"equity"`
	Cash            float64 `bson:"cash" json:"cash"`
	MarginUsed      float64 `bson:"margin_used" json:"margin_used"`
	MarginAvailable float64 `bson:"margin_available" json:"margin_available"`
	RealizedPnL     float64 `bson:"realized_pnl" json:"realized_pnl"`
	UnrealizedPnL   float64 `bson:"unrealized_pnl" json:"unrealized_pnl"`
	MarginUtilPct   float64 `bson:"margin_util_pct" json:"margin_util_pct"`
}

// Recompute derives MarginUtilPct from Equity/MarginUsed, matching the
// original's account snapshot enrichment (original_source's
// metrics_calculator.py derives the same ratio per poll).
func (b *Balances) Recompute() {
	if b.Equity > 0 {
		b.MarginUtilPct = b.MarginUsed / b.Equity * 100
	} else {
		b.MarginUtilPct = 0
	}
}

// Account is a single broker-connected trading account belonging to a fund.
type Account struct {
	AccountID         string                    `bson:"account_id" json:"account_id"`
	Broker            string                    `bson:"broker" json:"broker"`
	FundID            string                    `bson:"fund_id" json:"fund_id"`
	AssetWhitelist    map[InstrumentType]bool   `bson:"asset_whitelist" json:"asset_whitelist"`
	Balances          Balances                  `bson:"balances" json:"balances"`
	OpenPositions     []Position                `bson:"open_positions" json:"open_positions"`
	ConnectionState   ConnectionState           `bson:"connection_state" json:"connection_state"`
	Active            bool                      `bson:"active" json:"active"`
}

// SupportsInstrument reports whether the account's asset whitelist allows
// the given instrument type.
func (a *Account) SupportsInstrument(t InstrumentType) bool {
	if a.AssetWhitelist == nil {
		return false
	}
	return a.AssetWhitelist[t]
}

// AvailableMargin is the capital still free for new positions.
func (a *Account) AvailableMargin() float64 {
	return a.Balances.MarginAvailable
}

// IsEligible reports whether the account is usable for a given fund and
// instrument type, per spec.md §4.2(e).
func (a *Account) IsEligible(fundID string, t InstrumentType) bool {
	return a.FundID == fundID &&
		a.Active &&
		a.ConnectionState == ConnectionConnected &&
		a.SupportsInstrument(t)
}
