package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/broker"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
)

func TestAdapter_ConnectLifecycle(t *testing.T) {
	a := New()
	assert.False(t, a.IsConnected())

	require.NoError(t, a.Connect(context.Background()))
	assert.True(t, a.IsConnected())

	require.NoError(t, a.Disconnect(context.Background()))
	assert.False(t, a.IsConnected())
}

func TestAdapter_PlaceOrderFillsImmediately(t *testing.T) {
	a := New()
	order := &domain.Order{OrderID: "o1", Quantity: 10, Price: 25.5}

	result, err := a.PlaceOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFilled, result.Status)
	assert.InDelta(t, 10, result.FilledQty, 1e-9)
	assert.InDelta(t, 25.5, result.AvgFillPrice, 1e-9)
	assert.NotEmpty(t, result.BrokerOrderID)
}

func TestAdapter_PlaceOrderFallsBackToUnitPriceForMarketOrders(t *testing.T) {
	a := New()
	order := &domain.Order{OrderID: "o1", Quantity: 10}

	result, err := a.PlaceOrder(context.Background(), order)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.AvgFillPrice, 1e-9)
}

func TestAdapter_SeedBalanceOverridesDefault(t *testing.T) {
	a := New()
	a.SeedBalance("acct1", broker.Balance{Equity: 50_000})

	bal, err := a.GetAccountBalance(context.Background(), "acct1")
	require.NoError(t, err)
	assert.InDelta(t, 50_000, bal.Equity, 1e-9)

	bal2, err := a.GetAccountBalance(context.Background(), "unseeded")
	require.NoError(t, err)
	assert.InDelta(t, 1_000_000, bal2.Equity, 1e-9)
}

func TestAdapter_SeedPrecisionOverridesDefault(t *testing.T) {
	a := New()
	a.SeedPrecision("BTCUSD", 6)

	p, err := a.GetQuantityPrecision(context.Background(), "BTCUSD", domain.InstrumentCrypto)
	require.NoError(t, err)
	assert.Equal(t, 6, p)

	p2, err := a.GetQuantityPrecision(context.Background(), "AAPL", domain.InstrumentStock)
	require.NoError(t, err)
	assert.Equal(t, 0, p2)
}

var _ broker.Adapter = (*Adapter)(nil)
