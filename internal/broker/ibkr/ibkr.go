// Package ibkr is the Interactive Brokers adapter. It mirrors the thin
// integration shape of the original IBKRBroker: real calls are TODO'd
// behind the client library, and connection state is tracked locally so
// the rest of the pipeline can depend on the broker contract today;
// balance, margin, position and order queries return empty results.
package ibkr

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/broker"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
)

// Config holds the IBKR-specific connection parameters.
type Config struct {
	ClientID     int
	APIKey       string
	APISecret    string
	PaperTrading bool
}

// Adapter implements broker.Adapter for Interactive Brokers.
type Adapter struct {
	cfg     Config
	limiter *rate.Limiter

	mu        sync.Mutex
	connected bool
}

// New builds an IBKR adapter. PlaceOrder/quote calls are rate-limited at 10
// req/s, a conservative default under IBKR's published pacing limits.
func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg, limiter: rate.NewLimiter(rate.Limit(10), 10)}
}

func (a *Adapter) Name() string { return "ibkr" }

func (a *Adapter) Connect(ctx context.Context) error {
	// TODO: wire the real ib_insync-equivalent Go client (e.g. a TWS API
	// gateway connection) once credentials management lands.
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
		return nil, &broker.ConnectionError{Broker: a.Name(), Cause: context.Canceled}
	}
	// TODO: translate order into IBKR's contract/order structures and
	// submit via the TWS API; until then orders are accepted as SUBMITTED
	// and rely on an async confirmation feed to fill.
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
