package broker

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
)

// PrecisionCache wraps a 24h-TTL lookup of broker quantity precision,
// falling back to the instrument-type defaults spec.md §4.2(g) lists when
// the broker lookup fails.
type PrecisionCache struct {
	cache *gocache.Cache
}

// NewPrecisionCache builds a cache with the 24-hour TTL spec.md §4.2(g)
// names.
func NewPrecisionCache() *PrecisionCache {
	return &PrecisionCache{cache: gocache.New(24*time.Hour, time.Hour)}
}

// DefaultPrecision returns the instrument-type fallback precision.
func DefaultPrecision(t domain.InstrumentType) int {
	if t == domain.InstrumentCrypto {
		return 8
	}
	return 0
}

// Lookup returns the cached precision for broker+symbol, calling fetch on a
// miss and falling back to DefaultPrecision if fetch fails.
func (c *PrecisionCache) Lookup(ctx context.Context, brokerName, symbol string, instrumentType domain.InstrumentType, fetch func(context.Context) (int, error)) int {
	key := fmt.Sprintf("%s:%s", brokerName, symbol)
	if v, ok := c.cache.Get(key); ok {
		return v.(int)
	}

	precision, err := fetch(ctx)
	if err != nil {
		return DefaultPrecision(instrumentType)
	}
	c.cache.Set(key, precision, gocache.DefaultExpiration)
	return precision
}
