package trading

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	sol "memetrader/pkg/solana"
)

func TestPoolCachePruning(t *testing.T) {
	v := NewRaydiumVenue(nil, nil, nil, nil, RaydiumVenueConfig{})
	now := time.Now()

	v.mu.Lock()
	v.poolCache["stale-pool"] = poolCacheEntry{
		pool:    &sol.PoolInfo{ID: "stale-pool"},
		fetched: now.Add(-poolCacheTTL - time.Minute),
	}
	v.poolCache["fresh-pool"] = poolCacheEntry{
		pool:    &sol.PoolInfo{ID: "fresh-pool"},
		fetched: now,
	}
	v.prunePoolCache(now)
	v.mu.Unlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	assert.Len(t, v.poolCache, 1)
	assert.Contains(t, v.poolCache, "fresh-pool")
	assert.NotContains(t, v.poolCache, "stale-pool")
}

func TestExecuteRequiresCachedPool(t *testing.T) {
	v := NewRaydiumVenue(nil, nil, nil, nil, RaydiumVenueConfig{})

	_, err := v.Execute(context.Background(), &SwapQuote{Route: "never-quoted"})

	assert.ErrorContains(t, err, "no cached pool")
}
