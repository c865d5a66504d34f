package trading

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVenue struct {
	name      string
	quoteErr  error
	impact    float64
	execErr   error
	signature string

	quotes int
	execs  int
}

func (f *fakeVenue) Name() string { return f.name }

func (f *fakeVenue) Quote(_ context.Context, inputMint, outputMint string, amount uint64, _ int) (*SwapQuote, error) {
	f.quotes++
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return &SwapQuote{
		InputMint:      inputMint,
		OutputMint:     outputMint,
		InAmount:       amount,
		ExpectedOut:    amount * 2,
		PriceImpactPct: f.impact,
	}, nil
}

func (f *fakeVenue) Execute(context.Context, *SwapQuote) (string, error) {
	f.execs++
	if f.execErr != nil {
		return "", f.execErr
	}
	return f.signature, nil
}

func liveConfig() ExecutorConfig {
	return ExecutorConfig{
		AllowRealTransactions: true,
		MaxPriceImpactPct:     10,
		SlippageBps:           500,
		ExitSlippageBps:       1000,
	}
}

func TestExecutorFallbackChain(t *testing.T) {
	t.Run("first venue success stops the chain", func(t *testing.T) {
		first := &fakeVenue{name: "raydium", signature: "sig-1"}
		second := &fakeVenue{name: "jupiter", signature: "sig-2"}
		e := NewExecutor(liveConfig(), first, second)

		result, ok := e.Enter(context.Background(), "Mint111", 0.05)

		require.True(t, ok)
		assert.Equal(t, "raydium", result.Venue)
		assert.Equal(t, "sig-1", result.Signature)
		assert.Zero(t, second.quotes)
	})

	t.Run("quote failure advances to next venue", func(t *testing.T) {
		first := &fakeVenue{name: "raydium", quoteErr: errors.New("no pool")}
		second := &fakeVenue{name: "jupiter", signature: "sig-2"}
		e := NewExecutor(liveConfig(), first, second)

		result, ok := e.Enter(context.Background(), "Mint111", 0.05)

		require.True(t, ok)
		assert.Equal(t, "jupiter", result.Venue)
	})

	t.Run("execution failure advances to next venue", func(t *testing.T) {
		first := &fakeVenue{name: "raydium", execErr: errors.New("blockhash expired")}
		second := &fakeVenue{name: "jupiter", signature: "sig-2"}
		e := NewExecutor(liveConfig(), first, second)

		result, ok := e.Enter(context.Background(), "Mint111", 0.05)

		require.True(t, ok)
		assert.Equal(t, "jupiter", result.Venue)
		assert.Equal(t, 1, first.execs)
	})

	t.Run("price impact breach rejects quote and advances", func(t *testing.T) {
		first := &fakeVenue{name: "raydium", impact: 25}
		second := &fakeVenue{name: "jupiter", impact: 2, signature: "sig-2"}
		e := NewExecutor(liveConfig(), first, second)

		result, ok := e.Enter(context.Background(), "Mint111", 0.05)

		require.True(t, ok)
		assert.Equal(t, "jupiter", result.Venue)
		assert.Zero(t, first.execs)
	})

	t.Run("live all-fail returns failure, never simulates", func(t *testing.T) {
		first := &fakeVenue{name: "raydium", quoteErr: errors.New("down")}
		second := &fakeVenue{name: "jupiter", execErr: errors.New("down")}
		e := NewExecutor(liveConfig(), first, second)

		result, ok := e.Enter(context.Background(), "Mint111", 0.05)

		assert.False(t, ok)
		assert.False(t, result.Simulated)
	})

	t.Run("confirmation timeout aborts the chain", func(t *testing.T) {
		first := &fakeVenue{name: "raydium", execErr: ErrConfirmationTimeout}
		second := &fakeVenue{name: "jupiter", signature: "sig-2"}
		e := NewExecutor(liveConfig(), first, second)

		_, ok := e.Enter(context.Background(), "Mint111", 0.05)

		assert.False(t, ok)
		assert.Zero(t, second.quotes, "unresolved outcome must not retry elsewhere")
	})

	t.Run("context expiry after submission aborts the chain", func(t *testing.T) {
		// the error shape a venue reports when its context dies while a
		// submitted transaction awaits confirmation
		first := &fakeVenue{
			name:    "raydium",
			execErr: fmt.Errorf("swap sig-1: %w (%v)", ErrConfirmationTimeout, context.DeadlineExceeded),
		}
		second := &fakeVenue{name: "jupiter", signature: "sig-2"}
		e := NewExecutor(liveConfig(), first, second)

		_, ok := e.Enter(context.Background(), "Mint111", 0.05)

		assert.False(t, ok)
		assert.Equal(t, 1, first.execs)
		assert.Zero(t, second.quotes, "in-flight transaction must not be retried elsewhere")
	})
}

func TestExecutorSimulationMode(t *testing.T) {
	cfg := liveConfig()
	cfg.AllowRealTransactions = false

	t.Run("simulates with quote numbers, no execution", func(t *testing.T) {
		venue := &fakeVenue{name: "raydium", signature: "sig-1"}
		e := NewExecutor(cfg, venue)

		result, ok := e.Enter(context.Background(), "Mint111", 0.05)

		require.True(t, ok)
		assert.True(t, result.Simulated)
		assert.Equal(t, "simulation", result.Venue)
		assert.NotZero(t, result.OutAmount)
		assert.Zero(t, venue.execs)
	})

	t.Run("simulates even when quoting fails everywhere", func(t *testing.T) {
		venue := &fakeVenue{name: "raydium", quoteErr: errors.New("down")}
		e := NewExecutor(cfg, venue)

		result, ok := e.Enter(context.Background(), "Mint111", 0.05)

		require.True(t, ok)
		assert.True(t, result.Simulated)
		assert.Zero(t, result.OutAmount)
	})
}

func TestExecutorZeroAmounts(t *testing.T) {
	e := NewExecutor(liveConfig(), &fakeVenue{name: "raydium"})

	_, ok := e.Enter(context.Background(), "Mint111", 0)
	assert.False(t, ok)

	_, ok = e.Exit(context.Background(), "Mint111", 0)
	assert.False(t, ok)
}
