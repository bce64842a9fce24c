// Package domain holds the canonical entity types shared by every stage of
// the pipeline: signals, orders, positions, accounts, funds and allocations.
package domain

import "time"

// InstrumentType classifies the tradable instrument of a signal or order.
type InstrumentType string

const (
	InstrumentStock  InstrumentType = "STOCK"
	InstrumentETF    InstrumentType = "ETF"
	InstrumentOption InstrumentType = "OPTION"
	InstrumentFuture InstrumentType = "FUTURE"
	InstrumentForex  InstrumentType = "FOREX"
	InstrumentCrypto InstrumentType = "CRYPTO"
)

// Direction is the side of a position or order.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == DirectionLong {
		return DirectionShort
	}
	return DirectionLong
}

// SignalAction is the lifecycle intent carried by a signal.
type SignalAction string

const (
	ActionEntry    SignalAction = "ENTRY"
	ActionExit     SignalAction = "EXIT"
	ActionScaleIn  SignalAction = "SCALE_IN"
	ActionScaleOut SignalAction = "SCALE_OUT"
)

// OrderType mirrors the broker order types this pipeline understands.
type OrderType string

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStop      OrderType = "STOP"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
)

// OptionLeg describes one leg of a multi-leg option signal.
type OptionLeg struct {
	Instrument string    `bson:"instrument" json:"instrument"`
	Direction  Direction `bson:"direction" json:"direction"`
	Quantity   float64   `bson:"quantity" json:"quantity"`
	Strike     float64   `bson:"strike,omitempty" json:"strike,omitempty"`
	Expiry     string    `bson:"expiry,omitempty" json:"expiry,omitempty"`
}

// Signal is the canonical, immutable-after-creation trading signal.
type Signal struct {
	SignalID       string         `bson:"signal_id" json:"signal_id"`
	StrategyID     string         `bson:"strategy_id" json:"strategy_id"`
	Timestamp      time.Time      `bson:"timestamp" json:"timestamp"`
	Instrument     string         `bson:"instrument" json:"instrument"`
	InstrumentType InstrumentType `bson:"instrument_type" json:"instrument_type"`
	Direction      Direction      `bson:"direction" json:"direction"`
	Action         SignalAction   `bson:"action,omitempty" json:"action,omitempty"`
	OrderType      OrderType      `bson:"order_type" json:"order_type"`
	Price          float64        `bson:"price,omitempty" json:"price,omitempty"`
	StopLoss       float64        `bson:"stop_loss,omitempty" json:"stop_loss,omitempty"`
	TakeProfit     float64        `bson:"take_profit,omitempty" json:"take_profit,omitempty"`
	Quantity       float64        `bson:"quantity,omitempty" json:"quantity,omitempty"`
	Expiry         string         `bson:"expiry,omitempty" json:"expiry,omitempty"`
	Exchange       string         `bson:"exchange,omitempty" json:"exchange,omitempty"`
	Legs           []OptionLeg    `bson:"legs,omitempty" json:"legs,omitempty"`
	Environment    string         `bson:"environment" json:"environment"`
}

// HasExplicitAction reports whether the source row carried an action.
func (s *Signal) HasExplicitAction() bool {
	switch s.Action {
	case ActionEntry, ActionExit, ActionScaleIn, ActionScaleOut:
		return true
	default:
		return false
	}
}

// ApplyCanonicalDefaults fills absent optional fields with the defaults
// spec.md §4.1 names. Safe to call more than once (idempotent).
func (s *Signal) ApplyCanonicalDefaults() {
	if s.Direction == "" {
		s.Direction = DirectionLong
	}
	if s.Action == "" {
		s.Action = ActionEntry
	}
	if s.OrderType == "" {
		s.OrderType = OrderTypeMarket
	}
}
