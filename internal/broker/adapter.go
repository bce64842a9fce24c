// Package broker defines the adapter contract every broker integration must
// satisfy, generalized from the trading platform's ExchangeAdapter
// interface (internal/exchanges/adapters/base.go) to the broker verbs
// spec.md §4.6 names.
package broker

import (
	"context"
	"time"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
)

// PlaceResult is what a broker returns synchronously from PlaceOrder.
type PlaceResult struct {
	BrokerOrderID string
	Status        domain.OrderStatus
	FilledQty     float64
	AvgFillPrice  float64
}

// Balance is the polled account snapshot from the broker's perspective.
type Balance struct {
	Equity          float64
	Cash            float64
	MarginUsed      float64
	MarginAvailable float64
	RealizedPnL     float64
	UnrealizedPnL   float64
}

// MarginInfo is a broker's own view of margin requirements for a position.
type MarginInfo struct {
	InitialMargin    float64
	MaintenanceMargin float64
}

// Adapter is the capability set every broker integration exposes, per
// spec.md §4.6.
type Adapter interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	PlaceOrder(ctx context.Context, order *domain.Order) (*PlaceResult, error)
	CancelOrder(ctx context.Context, brokerOrderID string) (bool, error)

	GetOpenPositions(ctx context.Context, accountID string) ([]domain.Position, error)
	GetAccountBalance(ctx context.Context, accountID string) (*Balance, error)
	GetMarginInfo(ctx context.Context, accountID, instrument string) (*MarginInfo, error)
	GetOpenOrders(ctx context.Context, accountID string) ([]domain.Order, error)

	// GetQuantityPrecision returns the number of decimal digits the broker
	// accepts for symbol's quantity field.
	GetQuantityPrecision(ctx context.Context, symbol string, instrumentType domain.InstrumentType) (int, error)
}

// ConnectTimeout is a 10s connect deadline. None of the adapters in this
// repository applies it; their Connect calls make no network round trip.
const ConnectTimeout = 10 * time.Second
