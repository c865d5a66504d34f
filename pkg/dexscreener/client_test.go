package dexscreener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (*Client, func()) {
	srv := httptest.NewServer(handler)
	c := NewClient()
	c.BaseURL = srv.URL
	return c, srv.Close
}

func TestGetTokenData(t *testing.T) {
	t.Run("picks deepest pair", func(t *testing.T) {
		c, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/tokens/Mint111", r.URL.Path)
			w.Write([]byte(`{"pairs":[
				{"dexId":"orca","pairAddress":"pair-shallow","baseToken":{"name":"Memecoin","symbol":"MEME"},
				 "priceUsd":"0.0009","liquidity":{"usd":4000},"volume":{"h24":1000},"priceChange":{"h24":2,"h1":1}},
				{"dexId":"raydium","pairAddress":"pair-deep","baseToken":{"name":"Memecoin","symbol":"MEME"},
				 "priceUsd":"0.001","liquidity":{"usd":52000},"volume":{"h24":30000},"priceChange":{"h24":45,"h1":5}}
			]}`))
		})
		defer done()

		data, err := c.GetTokenData(context.Background(), "Mint111")
		require.NoError(t, err)

		assert.Equal(t, "pair-deep", data.PairAddress)
		assert.Equal(t, "raydium", data.Dex)
		assert.Equal(t, "MEME", data.Symbol)
		assert.InDelta(t, 0.001, data.PriceUsd, 1e-9)
		assert.InDelta(t, 52000, data.LiquidityUsd, 1e-9)
		assert.InDelta(t, 45, data.PriceChange24h, 1e-9)
	})

	t.Run("no pairs", func(t *testing.T) {
		c, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"pairs":[]}`))
		})
		defer done()

		_, err := c.GetTokenData(context.Background(), "Unknown")
		assert.ErrorIs(t, err, ErrNoPairs)
	})

	t.Run("missing price is rejected", func(t *testing.T) {
		c, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"pairs":[
				{"dexId":"raydium","pairAddress":"pair-1","baseToken":{"name":"Memecoin","symbol":"MEME"},
				 "liquidity":{"usd":52000},"volume":{"h24":30000},"priceChange":{"h24":45,"h1":5}}
			]}`))
		})
		defer done()

		_, err := c.GetTokenData(context.Background(), "Mint111")
		assert.ErrorContains(t, err, "unusable price")
	})

	t.Run("malformed price is rejected", func(t *testing.T) {
		c, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"pairs":[
				{"dexId":"raydium","pairAddress":"pair-1","baseToken":{"name":"Memecoin","symbol":"MEME"},
				 "priceUsd":"n/a","liquidity":{"usd":52000},"volume":{"h24":30000},"priceChange":{"h24":45,"h1":5}}
			]}`))
		})
		defer done()

		_, err := c.GetTokenData(context.Background(), "Mint111")
		assert.ErrorContains(t, err, "unusable price")
	})

	t.Run("http error surfaces", func(t *testing.T) {
		c, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
		defer done()

		_, err := c.GetTokenData(context.Background(), "Mint111")
		assert.ErrorContains(t, err, "429")
	})
}
