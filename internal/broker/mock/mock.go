// Package mock is the in-memory broker simulation used by tests and by
// local/staging runs (mock_broker=true), grounded on the original's
// base_broker.py default-fill behavior: every order fills immediately at
// its requested price.
package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/broker"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
)

// Adapter simulates a broker entirely in memory: every PlaceOrder fills
// synchronously at the order's price (or 1.0 for market orders carrying no
// price), and balances/positions are tracked per account in a map.
type Adapter struct {
	mu        sync.Mutex
	connected bool
	balances  map[string]*broker.Balance
	positions map[string][]domain.Position
	openOrds  map[string][]domain.Order
	precision map[string]int
}

// New builds a mock adapter with no seeded balances; accounts without a
// SeedBalance call report a default 1,000,000 equity balance.
func New() *Adapter {
	return &Adapter{
		balances:  make(map[string]*broker.Balance),
		positions: make(map[string][]domain.Position),
		openOrds:  make(map[string][]domain.Order),
		precision: make(map[string]int),
	}
}

func (a *Adapter) Name() string { return "mock" }

func (a *Adapter) Connect(ctx context.Context) error {
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

// SeedBalance sets a starting balance for an account, used by tests.
func (a *Adapter) SeedBalance(accountID string, b broker.Balance) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[accountID] = &b
}

// SeedPrecision sets the fake broker's quantity precision for a symbol.
func (a *Adapter) SeedPrecision(symbol string, precision int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.precision[symbol] = precision
}

func (a *Adapter) PlaceOrder(ctx context.Context, order *domain.Order) (*broker.PlaceResult, error) {
	price := order.Price
	if price <= 0 {
		price = 1.0
	}
	return &broker.PlaceResult{
		BrokerOrderID: "mock-" + uuid.NewString(),
		Status:        domain.OrderStatusFilled,
		FilledQty:     order.Quantity,
		AvgFillPrice:  price,
	}, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, brokerOrderID string) (bool, error) {
	return true, nil
}

func (a *Adapter) GetOpenPositions(ctx context.Context, accountID string) ([]domain.Position, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Position(nil), a.positions[accountID]...), nil
}

func (a *Adapter) GetAccountBalance(ctx context.Context, accountID string) (*broker.Balance, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.balances[accountID]; ok {
		cp := *b
		return &cp, nil
	}
	return &broker.Balance{Equity: 1_000_000, Cash: 1_000_000, MarginAvailable: 1_000_000}, nil
}

func (a *Adapter) GetMarginInfo(ctx context.Context, accountID, instrument string) (*broker.MarginInfo, error) {
	return &broker.MarginInfo{InitialMargin: 0, MaintenanceMargin: 0}, nil
}

func (a *Adapter) GetOpenOrders(ctx context.Context, accountID string) ([]domain.Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Order(nil), a.openOrds[accountID]...), nil
}

func (a *Adapter) GetQuantityPrecision(ctx context.Context, symbol string, instrumentType domain.InstrumentType) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.precision[symbol]; ok {
		return p, nil
	}
	return broker.DefaultPrecision(instrumentType), nil
}

var _ broker.Adapter = (*Adapter)(nil)
