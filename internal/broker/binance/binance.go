// Package binance adapts crypto orders to Binance. The adapter makes no
// network calls, so Config.Testnet is carried but not read.
package binance

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
	Testnet   bool
}

type Adapter struct {
	cfg       Config
	limiter   *rate.Limiter
	mu        sync.Mutex
	connected bool
}

func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg, limiter: rate.NewLimiter(rate.Limit(20), 40)}
}

func (a *Adapter) Name() string { return "binance" }

func (a *Adapter) Connect(ctx context.Context) error {
	// TODO: wire github.com/adshao/go-binance once API keys are provisioned.
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

// GetQuantityPrecision reports 8 decimal places, matching crypto lot-step
// conventions, regardless of instrumentType — Binance symbols are always
// CRYPTO here.
func (a *Adapter) GetQuantityPrecision(ctx context.Context, symbol string, instrumentType domain.InstrumentType) (int, error) {
	return 8, nil
}

var _ broker.Adapter = (*Adapter)(nil)
