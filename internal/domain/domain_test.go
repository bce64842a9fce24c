package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyCanonicalDefaults(t *testing.T) {
	sig := &Signal{}
	sig.ApplyCanonicalDefaults()

	assert.Equal(t, DirectionLong, sig.Direction)
	assert.Equal(t, ActionEntry, sig.Action)
	assert.Equal(t, OrderTypeMarket, sig.OrderType)
}

func TestApplyCanonicalDefaults_DoesNotOverrideExplicitValues(t *testing.T) {
	sig := &Signal{Direction: DirectionShort, Action: ActionExit, OrderType: OrderTypeLimit}
	sig.ApplyCanonicalDefaults()

	assert.Equal(t, DirectionShort, sig.Direction)
	assert.Equal(t, ActionExit, sig.Action)
	assert.Equal(t, OrderTypeLimit, sig.OrderType)
}

func TestHasExplicitAction(t *testing.T) {
	assert.False(t, (&Signal{}).HasExplicitAction())
	assert.True(t, (&Signal{Action: ActionEntry}).HasExplicitAction())
	assert.True(t, (&Signal{Action: ActionScaleOut}).HasExplicitAction())
}

func TestDirectionOpposite(t *testing.T) {
	assert.Equal(t, DirectionShort, DirectionLong.Opposite())
	assert.Equal(t, DirectionLong, DirectionShort.Opposite())
}

func TestOrderIDFor(t *testing.T) {
	assert.Equal(t, "sig-1_ORD", OrderIDFor("sig-1", 0))
	assert.Equal(t, "sig-1_ORD_1", OrderIDFor("sig-1", 1))
	assert.Equal(t, "sig-1_ORD_2", OrderIDFor("sig-1", 2))
}

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderStatusFilled.IsTerminal())
	assert.True(t, OrderStatusRejected.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusSubmitted.IsTerminal())

	assert.True(t, OrderStatusFilled.ConsumesCapital())
	assert.True(t, OrderStatusSubmitted.ConsumesCapital())
	assert.True(t, OrderStatusPartiallyFilled.ConsumesCapital())
	assert.False(t, OrderStatusRejected.ConsumesCapital())
}

func TestPositionID_IsDeterministicForSameInputs(t *testing.T) {
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	id1 := PositionID("strat1", "AAPL", DirectionLong, ts)
	id2 := PositionID("strat1", "AAPL", DirectionLong, ts)
	assert.Equal(t, id1, id2)
}

func TestPositionID_DiffersByKey(t *testing.T) {
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	id1 := PositionID("strat1", "AAPL", DirectionLong, ts)
	id2 := PositionID("strat1", "AAPL", DirectionShort, ts)
	assert.NotEqual(t, id1, id2)
}

func TestBalancesRecompute(t *testing.T) {
	b := Balances{Equity: 1000, MarginUsed: 250}
	b.Recompute()
	assert.InDelta(t, 25.0, b.MarginUtilPct, 1e-9)

	zero := Balances{}
	zero.Recompute()
	assert.Equal(t, 0.0, zero.MarginUtilPct)
}

func TestAccountIsEligible(t *testing.T) {
	a := Account{
		FundID:          "fund1",
		Active:          true,
		ConnectionState: ConnectionConnected,
		AssetWhitelist:  map[InstrumentType]bool{InstrumentStock: true},
	}
	assert.True(t, a.IsEligible("fund1", InstrumentStock))
	assert.False(t, a.IsEligible("fund2", InstrumentStock))
	assert.False(t, a.IsEligible("fund1", InstrumentCrypto))

	a.Active = false
	assert.False(t, a.IsEligible("fund1", InstrumentStock))
}

func TestAllocationPctFor(t *testing.T) {
	alloc := Allocation{Allocations: map[string]float64{"strat1": 12.5}}
	pct, ok := alloc.PctFor("strat1")
	assert.True(t, ok)
	assert.InDelta(t, 12.5, pct, 1e-9)

	_, ok = alloc.PctFor("missing")
	assert.False(t, ok)
}
