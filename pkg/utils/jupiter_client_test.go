package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJupiter(handler http.HandlerFunc) (*JupiterClient, func()) {
	srv := httptest.NewServer(handler)
	c := NewJupiterClient()
	c.BaseURL = srv.URL
	return c, srv.Close
}

func TestGetQuote(t *testing.T) {
	c, done := newTestJupiter(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/swap/v1/quote", r.URL.Path)
		assert.Equal(t, "500", r.URL.Query().Get("slippageBps"))
		w.Write([]byte(`{
			"inputMint":"So11111111111111111111111111111111111111112",
			"inAmount":"50000000",
			"outputMint":"Mint111",
			"outAmount":"123456789",
			"priceImpactPct":"0.02",
			"slippageBps":500
		}`))
	})
	defer done()

	quote, err := c.GetQuote(context.Background(), WSOLMint, "Mint111", 50_000_000, 500)
	require.NoError(t, err)

	out, err := quote.OutAmountUint()
	require.NoError(t, err)
	assert.Equal(t, uint64(123_456_789), out)

	impact, err := quote.PriceImpact()
	require.NoError(t, err)
	assert.InDelta(t, 0.02, impact, 1e-9)
}

func TestBuildSwapTransaction(t *testing.T) {
	c, done := newTestJupiter(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/swap/v1/swap", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"swapTransaction":"AQID","lastValidBlockHeight":12345}`))
	})
	defer done()

	encoded, err := c.BuildSwapTransaction(context.Background(), &QuoteResponse{}, "payer", 10_000)
	require.NoError(t, err)
	assert.Equal(t, "AQID", encoded)
}

func TestBuildSwapTransactionEmptyResponse(t *testing.T) {
	c, done := newTestJupiter(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	defer done()

	_, err := c.BuildSwapTransaction(context.Background(), &QuoteResponse{}, "payer", 0)
	assert.Error(t, err)
}

func TestGetTokenPrice(t *testing.T) {
	var calls int32
	c, done := newTestJupiter(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n > 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data":{"Mint111":{"price":"0.0042"}}}`))
	})
	defer done()

	t.Run("fetches and caches", func(t *testing.T) {
		price, err := c.GetTokenPrice(context.Background(), "Mint111")
		require.NoError(t, err)
		assert.InDelta(t, 0.0042, price, 1e-9)

		// second call served from cache, no extra request
		price, err = c.GetTokenPrice(context.Background(), "Mint111")
		require.NoError(t, err)
		assert.InDelta(t, 0.0042, price, 1e-9)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("stale cache served on fetch failure", func(t *testing.T) {
		c.cacheTTL = time.Nanosecond // force expiry

		price, err := c.GetTokenPrice(context.Background(), "Mint111")
		require.NoError(t, err)
		assert.InDelta(t, 0.0042, price, 1e-9)
	})

	t.Run("unknown mint without cache errors", func(t *testing.T) {
		_, err := c.GetTokenPrice(context.Background(), "Unknown")
		assert.Error(t, err)
	})
}
