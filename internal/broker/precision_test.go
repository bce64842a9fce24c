package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
)

func TestPrecisionCache_CachesFetchedValue(t *testing.T) {
	c := NewPrecisionCache()
	calls := 0
	fetch := func(ctx context.Context) (int, error) {
		calls++
		return 4, nil
	}

	p1 := c.Lookup(context.Background(), "ibkr", "AAPL", domain.InstrumentStock, fetch)
	p2 := c.Lookup(context.Background(), "ibkr", "AAPL", domain.InstrumentStock, fetch)

	assert.Equal(t, 4, p1)
	assert.Equal(t, 4, p2)
	assert.Equal(t, 1, calls)
}

func TestPrecisionCache_FallsBackOnFetchError(t *testing.T) {
	c := NewPrecisionCache()
	fetch := func(ctx context.Context) (int, error) { return 0, errors.New("broker unreachable") }

	p := c.Lookup(context.Background(), "ibkr", "BTCUSD", domain.InstrumentCrypto, fetch)
	assert.Equal(t, DefaultPrecision(domain.InstrumentCrypto), p)
}

func TestDefaultPrecision(t *testing.T) {
	assert.Equal(t, 8, DefaultPrecision(domain.InstrumentCrypto))
	assert.Equal(t, 0, DefaultPrecision(domain.InstrumentStock))
}
