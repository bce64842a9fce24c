// Package vantage adapts FOREX orders to Vantage FX.
package vantage

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/broker"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
)

type Config struct {
	APIKey    string
	APISecret string
	AccountID string
	Demo      bool
}

type Adapter struct {
	cfg       Config
	limiter   *rate.Limiter
	mu        sync.Mutex
	connected bool
}

func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg, limiter: rate.NewLimiter(rate.Limit(10), 10)}
}

func (a *Adapter) Name() string { return "vantage" }

func (a *Adapter) Connect(ctx context.Context) error {
	// TODO: Vantage exposes MT4/MT5 and a REST API; pick one once the
	// account type is known.
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = true
	return nil
}

func (a *Adapter) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = false
	return nil
}

func (a *Adapter) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

func (a *Adapter) PlaceOrder(ctx context.Context, order *domain.Order) (*broker.PlaceResult, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if !a.IsConnected() {
		return nil, &broker.ConnectionError{Broker: a.Name()}
	}
	return &broker.PlaceResult{Status: domain.OrderStatusSubmitted}, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, brokerOrderID string) (bool, error) {
	return true, nil
}

func (a *Adapter) GetOpenPositions(ctx context.Context, accountID string) ([]domain.Position, error) {
	return nil, nil
}

func (a *Adapter) GetAccountBalance(ctx context.Context, accountID string) (*broker.Balance, error) {
	return &broker.Balance{}, nil
}

func (a *Adapter) GetMarginInfo(ctx context.Context, accountID, instrument string) (*broker.MarginInfo, error) {
	return &broker.MarginInfo{}, nil
}

func (a *Adapter) GetOpenOrders(ctx context.Context, accountID string) ([]domain.Order, error) {
	return nil, nil
}

func (a *Adapter) GetQuantityPrecision(ctx context.Context, symbol string, instrumentType domain.InstrumentType) (int, error) {
	return broker.DefaultPrecision(instrumentType), nil
}

var _ broker.Adapter = (*Adapter)(nil)
