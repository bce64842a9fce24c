// Package ingestion tails the raw signal store and republishes canonical
// signals, grounded on original_source/services/signal_ingestion/
// signal_standardizer.py.
package ingestion

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
	pipelineerrors "github.com/abdoElHodaky/mathematricks-pipeline/internal/errors"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/store"
)

// Canonicalize turns one raw signal row into a domain.Signal, deriving
// signal_id, timestamp, and applying canonical defaults, per spec.md §4.1.
func Canonicalize(row store.RawSignal) (*domain.Signal, error) {
	payload := row.Payload
	if payload == nil {
		return nil, pipelineerrors.New(pipelineerrors.CodeMissingField, "signal payload is empty")
	}

	sig := &domain.Signal{}

	sig.StrategyID = row.Strategy
	if sig.StrategyID == "" {
		sig.StrategyID, _ = payload["strategy_id"].(string)
	}
	if sig.StrategyID == "" {
		return nil, pipelineerrors.New(pipelineerrors.CodeMissingField, "missing strategy_id")
	}

	sig.Environment = row.Environment

	sig.Instrument, _ = payload["instrument"].(string)
	if sig.Instrument == "" {
		sig.Instrument, _ = payload["symbol"].(string)
	}
	if sig.Instrument == "" {
		return nil, pipelineerrors.New(pipelineerrors.CodeMissingField, "missing instrument")
	}

	sig.InstrumentType = domain.InstrumentType(stringField(payload, "instrument_type", "STOCK"))
	sig.Direction = domain.Direction(stringField(payload, "direction", ""))
	sig.Action = domain.SignalAction(stringField(payload, "action", ""))
	sig.OrderType = domain.OrderType(stringField(payload, "order_type", ""))
	sig.Exchange = stringField(payload, "exchange", "")
	sig.Expiry = stringField(payload, "expiry", "")

	sig.Price = floatField(payload, "price")
	sig.StopLoss = floatField(payload, "stop_loss")
	sig.TakeProfit = floatField(payload, "take_profit")
	sig.Quantity = floatField(payload, "quantity")

	sig.Timestamp = resolveTimestamp(payload, row.ReceivedAt)

	sourceID := row.SignalID
	if sourceID == "" {
		sourceID, _ = payload["signal_id"].(string)
	}
	sig.SignalID = deriveSignalID(sig.StrategyID, sig.Timestamp, sourceID)

	sig.Legs = resolveLegs(payload)

	sig.ApplyCanonicalDefaults()
	return sig, nil
}

// deriveSignalID builds the canonical signal_id `{strategy}_{YYYYMMDD}_{HHMMSS}_{seq}`
// per spec.md §4.1. It is a pure function of the strategy, the already-resolved
// timestamp, and the source row's own id, so the same source row always
// canonicalizes to the same signal_id — a retry is a no-op downstream.
func deriveSignalID(strategyID string, timestamp time.Time, sourceID string) string {
	ts := timestamp.UTC()
	return fmt.Sprintf("%s_%s_%s_%s", strategyID, ts.Format("20060102"), ts.Format("150405"), seqFor(sourceID, ts))
}

// seqFor takes the last 3 digits of sourceID when it is purely numeric,
// else derives a 3-digit sequence from the timestamp's millisecond component.
func seqFor(sourceID string, ts time.Time) string {
	if sourceID != "" && isNumeric(sourceID) {
		digits := sourceID
		if len(digits) > 3 {
			digits = digits[len(digits)-3:]
		}
		n, _ := strconv.Atoi(digits)
		return fmt.Sprintf("%03d", n)
	}
	return fmt.Sprintf("%03d", ts.Nanosecond()/1e6%1000)
}

func isNumeric(s string) bool {
	return s != "" && strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) == -1
}

// resolveTimestamp implements spec.md §4.1's fallback chain: an explicit
// signal timestamp, else the row's received_at, else now.
func resolveTimestamp(payload map[string]interface{}, receivedAt time.Time) time.Time {
	if v, ok := payload["timestamp"]; ok {
		switch t := v.(type) {
		case string:
			if parsed, err := time.Parse(time.RFC3339, t); err == nil {
				return parsed
			}
		case float64:
			return time.Unix(int64(t), 0).UTC()
		}
	}
	if !receivedAt.IsZero() {
		return receivedAt
	}
	return time.Now().UTC()
}

// resolveLegs normalizes the "legs" field, which the raw store may carry as
// either a single nested object (one-leg signal) or an array, per spec.md
// §4.1's nested-array-leg rule.
func resolveLegs(payload map[string]interface{}) []domain.OptionLeg {
	raw, ok := payload["legs"]
	if !ok {
		return nil
	}

	var items []interface{}
	switch v := raw.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		items = []interface{}{v}
	default:
		return nil
	}

	legs := make([]domain.OptionLeg, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		legs = append(legs, domain.OptionLeg{
			Instrument: stringField(m, "instrument", ""),
			Direction:  domain.Direction(stringField(m, "direction", "")),
			Quantity:   floatField(m, "quantity"),
			Strike:     floatField(m, "strike"),
			Expiry:     stringField(m, "expiry", ""),
		})
	}
	return legs
}

func stringField(m map[string]interface{}, key, fallback string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func floatField(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return 0
}

// rowKey builds a human-readable identifier for log lines, since RawSignal
// rows don't always carry a populated signal_id before canonicalization.
func rowKey(row store.RawSignal) string {
	if row.SignalID != "" {
		return row.SignalID
	}
	return fmt.Sprintf("raw:%s", row.ID)
}
