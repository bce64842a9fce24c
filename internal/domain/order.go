package domain

import (
	"strconv"
	"time"
)

// OrderStatus is the lifecycle state of a submitted order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusSubmitted       OrderStatus = "SUBMITTED"
	OrderStatusPartiallyFilled OrderStatus = "PartiallyFilled"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are expected.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusRejected, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// ConsumesCapital reports whether the order still consumes allocated
// capital: FILLED, SUBMITTED and PartiallyFilled orders do.
func (s OrderStatus) ConsumesCapital() bool {
	return s == OrderStatusFilled || s == OrderStatusSubmitted || s == OrderStatusPartiallyFilled
}

// Order is the concrete instruction Cerebro hands to Execution.
type Order struct {
	OrderID        string         `bson:"order_id" json:"order_id"`
	SignalID       string         `bson:"signal_id" json:"signal_id"`
	StrategyID     string         `bson:"strategy_id" json:"strategy_id"`
	AccountID      string         `bson:"account_id" json:"account_id"`
	FundID         string         `bson:"fund_id" json:"fund_id"`
	Broker         string         `bson:"broker" json:"broker"`
	Instrument     string         `bson:"instrument" json:"instrument"`
	InstrumentType InstrumentType `bson:"instrument_type" json:"instrument_type"`
	Direction      Direction      `bson:"direction" json:"direction"`
	Quantity       float64        `bson:"quantity" json:"quantity"`
	OrderType      OrderType      `bson:"order_type" json:"order_type"`
	Price          float64        `bson:"price,omitempty" json:"price,omitempty"`
	StopLoss       float64        `bson:"stop_loss,omitempty" json:"stop_loss,omitempty"`
	TakeProfit     float64        `bson:"take_profit,omitempty" json:"take_profit,omitempty"`
	Status         OrderStatus    `bson:"status" json:"status"`
	BrokerOrderID  string         `bson:"broker_order_id,omitempty" json:"broker_order_id,omitempty"`
	RejectReason   string         `bson:"reject_reason,omitempty" json:"reject_reason,omitempty"`
	NotionalValue  float64        `bson:"notional_value" json:"notional_value"`
	MarginUsed     float64        `bson:"margin_used" json:"margin_used"`
	IsExit         bool           `bson:"is_exit" json:"is_exit"`
	CreatedAt      time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `bson:"updated_at" json:"updated_at"`
}

// OrderIDFor builds the order_id spec.md §3 specifies: `{signal_id}_ORD`
// for the first leg/fund and `{signal_id}_ORD_{k}` for subsequent ones.
func OrderIDFor(signalID string, index int) string {
	if index == 0 {
		return signalID + "_ORD"
	}
	return signalID + "_ORD_" + strconv.Itoa(index)
}

// ExecutionConfirmation is the fill record published on
// execution-confirmations.
type ExecutionConfirmation struct {
	OrderID       string      `bson:"order_id" json:"order_id"`
	SignalID      string      `bson:"signal_id" json:"signal_id"`
	AccountID     string      `bson:"account_id" json:"account_id"`
	Instrument    string      `bson:"instrument" json:"instrument"`
	Direction     Direction   `bson:"direction" json:"direction"`
	FilledQty     float64     `bson:"filled_qty" json:"filled_qty"`
	AvgFillPrice  float64     `bson:"avg_fill_price" json:"avg_fill_price"`
	Status        OrderStatus `bson:"status" json:"status"`
	BrokerOrderID string      `bson:"broker_order_id" json:"broker_order_id"`
	FilledAt      time.Time   `bson:"filled_at" json:"filled_at"`
}

// OrderCommand is an out-of-band instruction delivered on order-commands
// (currently only CANCEL per spec.md §6).
type OrderCommand struct {
	Command string `json:"command"`
	OrderID string `json:"order_id"`
}

const CommandCancel = "CANCEL"
