package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountOut(t *testing.T) {
	t.Run("no fee", func(t *testing.T) {
		// pool 100 / 1000, swap 10 in: 1000*10/110
		out, err := AmountOut(10, 100, 1000, 0)
		require.NoError(t, err)
		assert.InDelta(t, 90.909090, out, 1e-4)
	})

	t.Run("fee reduces output", func(t *testing.T) {
		noFee, err := AmountOut(10, 100, 1000, 0)
		require.NoError(t, err)
		withFee, err := AmountOut(10, 100, 1000, 0.0025)
		require.NoError(t, err)
		assert.Less(t, withFee, noFee)
	})

	t.Run("invalid inputs", func(t *testing.T) {
		_, err := AmountOut(0, 100, 1000, 0)
		assert.Error(t, err)
		_, err = AmountOut(10, 0, 1000, 0)
		assert.Error(t, err)
		_, err = AmountOut(10, 100, 1000, 1)
		assert.Error(t, err)
	})
}

func TestAmountIn(t *testing.T) {
	t.Run("inverse of amount out", func(t *testing.T) {
		out, err := AmountOut(10, 100, 1000, 0.0025)
		require.NoError(t, err)

		in, err := AmountIn(out, 100, 1000, 0.0025)
		require.NoError(t, err)
		assert.InDelta(t, 10, in, 1e-9)
	})

	t.Run("cannot drain the pool", func(t *testing.T) {
		_, err := AmountIn(1000, 100, 1000, 0)
		assert.Error(t, err)
	})
}

func TestPriceImpactPct(t *testing.T) {
	t.Run("small swap has small impact", func(t *testing.T) {
		impact, err := PriceImpactPct(0.1, 10_000, 100_000, 0)
		require.NoError(t, err)
		assert.Less(t, impact, 0.001)
	})

	t.Run("large swap has large impact", func(t *testing.T) {
		impact, err := PriceImpactPct(5_000, 10_000, 100_000, 0)
		require.NoError(t, err)
		// half the pool in one swap moves the price by a third
		assert.InDelta(t, 1.0/3.0, impact, 1e-9)
	})

	t.Run("impact grows with size", func(t *testing.T) {
		small, err := PriceImpactPct(100, 10_000, 100_000, 0)
		require.NoError(t, err)
		large, err := PriceImpactPct(2_000, 10_000, 100_000, 0)
		require.NoError(t, err)
		assert.Greater(t, large, small)
	})
}
