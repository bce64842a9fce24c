package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/store"
)

func TestCanonicalize_AppliesDefaultsAndFallbackTimestamp(t *testing.T) {
	received := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	row := store.RawSignal{
		ID:          "row1",
		SignalID:    "sig-1",
		Strategy:    "strat1",
		Environment: "PAPER",
		ReceivedAt:  received,
		Payload: map[string]interface{}{
			"instrument": "AAPL",
		},
	}

	sig, err := Canonicalize(row)
	require.NoError(t, err)

	assert.Equal(t, "strat1_20260301_093000_"+seqFor("sig-1", received), sig.SignalID)
	assert.Equal(t, "strat1", sig.StrategyID)
	assert.Equal(t, "AAPL", sig.Instrument)
	assert.Equal(t, domain.DirectionLong, sig.Direction)
	assert.Equal(t, domain.ActionEntry, sig.Action)
	assert.Equal(t, domain.OrderTypeMarket, sig.OrderType)
	assert.Equal(t, received, sig.Timestamp)
}

func TestCanonicalize_SignalIDIsStableAcrossRetries(t *testing.T) {
	row := store.RawSignal{
		ID:          "row1",
		SignalID:    "998877123",
		Strategy:    "strat1",
		Environment: "PAPER",
		ReceivedAt:  time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Payload: map[string]interface{}{
			"instrument": "AAPL",
		},
	}

	first, err := Canonicalize(row)
	require.NoError(t, err)
	second, err := Canonicalize(row)
	require.NoError(t, err)

	assert.Equal(t, first.SignalID, second.SignalID)
	assert.Equal(t, "strat1_20260301_093000_123", first.SignalID)
}

func TestCanonicalize_ExplicitTimestampWins(t *testing.T) {
	row := store.RawSignal{
		Strategy:    "strat1",
		Environment: "PAPER",
		ReceivedAt:  time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Payload: map[string]interface{}{
			"instrument": "AAPL",
			"timestamp":  "2026-03-01T09:00:00Z",
		},
	}

	sig, err := Canonicalize(row)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T09:00:00Z", sig.Timestamp.Format(time.RFC3339))
}

func TestCanonicalize_MissingStrategyErrors(t *testing.T) {
	row := store.RawSignal{
		Environment: "PAPER",
		Payload:     map[string]interface{}{"instrument": "AAPL"},
	}
	_, err := Canonicalize(row)
	require.Error(t, err)
}

func TestCanonicalize_MissingInstrumentErrors(t *testing.T) {
	row := store.RawSignal{
		Strategy: "strat1",
		Payload:  map[string]interface{}{},
	}
	_, err := Canonicalize(row)
	require.Error(t, err)
}

func TestCanonicalize_EmptyPayloadErrors(t *testing.T) {
	row := store.RawSignal{Strategy: "strat1"}
	_, err := Canonicalize(row)
	require.Error(t, err)
}

func TestCanonicalize_SingleLegObjectNormalizedToArray(t *testing.T) {
	row := store.RawSignal{
		Strategy: "strat1",
		Payload: map[string]interface{}{
			"instrument": "AAPL240119C00150000",
			"legs": map[string]interface{}{
				"instrument": "AAPL240119C00150000",
				"direction":  "LONG",
				"quantity":   float64(1),
				"strike":     float64(150),
			},
		},
	}

	sig, err := Canonicalize(row)
	require.NoError(t, err)
	require.Len(t, sig.Legs, 1)
	assert.InDelta(t, 150, sig.Legs[0].Strike, 1e-9)
}

func TestCanonicalize_MultiLegArrayPreserved(t *testing.T) {
	row := store.RawSignal{
		Strategy: "strat1",
		Payload: map[string]interface{}{
			"instrument": "SPREAD",
			"legs": []interface{}{
				map[string]interface{}{"instrument": "A", "direction": "LONG", "quantity": float64(1)},
				map[string]interface{}{"instrument": "B", "direction": "SHORT", "quantity": float64(1)},
			},
		},
	}

	sig, err := Canonicalize(row)
	require.NoError(t, err)
	require.Len(t, sig.Legs, 2)
	assert.Equal(t, domain.DirectionShort, sig.Legs[1].Direction)
}
