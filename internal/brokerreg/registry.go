// Package brokerreg builds the broker.Adapter registry cmd/execution and
// cmd/cerebro share, selecting the mock adapter in non-live environments
// per spec.md §6's -mock-broker flag.
package brokerreg

import (
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/broker"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/broker/binance"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/broker/ibkr"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/broker/mock"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/broker/vantage"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/broker/zerodha"
)

// Build returns the broker adapters active for this process. When
// mockBroker is true every broker name resolves to the same in-memory
// mock.Adapter, so staging/paper runs never touch a live credential.
func Build(mockBroker bool) map[string]broker.Adapter {
	if mockBroker {
		m := mock.New()
		return map[string]broker.Adapter{
			"mock":    m,
			"ibkr":    m,
			"binance": m,
			"zerodha": m,
			"vantage": m,
		}
	}

	return map[string]broker.Adapter{
		"ibkr":    ibkr.New(ibkr.Config{}),
		"binance": binance.New(binance.Config{}),
		"zerodha": zerodha.New(zerodha.Config{}),
		"vantage": vantage.New(vantage.Config{}),
	}
}
