package domain

import "time"

// PositionStatus is OPEN while fills are still being applied, CLOSED once
// the position has been fully unwound and archived.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// Position is the aggregate resulting from one or more fills for
// (strategy, instrument, direction).
type Position struct {
	PositionID     string         `bson:"position_id" json:"position_id"`
	StrategyID     string         `bson:"strategy_id" json:"strategy_id"`
	AccountID      string         `bson:"account_id" json:"account_id"`
	Instrument     string         `bson:"instrument" json:"instrument"`
	InstrumentType InstrumentType `bson:"instrument_type" json:"instrument_type"`
	Direction      Direction      `bson:"direction" json:"direction"`
	Quantity       float64        `bson:"quantity" json:"quantity"`
	AvgEntryPrice  float64        `bson:"avg_entry_price" json:"avg_entry_price"`
	TotalCostBasis float64        `bson:"total_cost_basis" json:"total_cost_basis"`
	MarginUsed     float64        `bson:"margin_used" json:"margin_used"`
	Status         PositionStatus `bson:"status" json:"status"`
	EntryOrderIDs  []string       `bson:"entry_order_ids" json:"entry_order_ids"`
	ExitOrderIDs   []string       `bson:"exit_order_ids" json:"exit_order_ids"`
	RealizedPnL    float64        `bson:"realized_pnl" json:"realized_pnl"`
	UnrealizedPnL  float64        `bson:"unrealized_pnl" json:"unrealized_pnl"`
	OpenedAt       time.Time      `bson:"opened_at" json:"opened_at"`
	ClosedAt       *time.Time     `bson:"closed_at,omitempty" json:"closed_at,omitempty"`
}

// PositionID builds the id format spec.md §3 names:
// {strategy}_{instrument}_{direction}_{ts}.
func PositionID(strategyID, instrument string, direction Direction, ts time.Time) string {
	return strategyID + "_" + instrument + "_" + string(direction) + "_" + ts.UTC().Format("20060102150405.000000000")
}

// ClosedPosition mirrors a Position into the closed archive, adding the
// realized metrics computed at close time.
type ClosedPosition struct {
	Position
	GrossPnL      float64       `bson:"gross_pnl" json:"gross_pnl"`
	HoldingPeriod time.Duration `bson:"holding_period_ns" json:"holding_period_ns"`
}
