package trading

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

// WSOLMint is wrapped SOL, the input side of entries and the output side of
// exits.
const WSOLMint = "So11111111111111111111111111111111111111112"

// LamportsPerSol converts between lamports and SOL.
const LamportsPerSol = 1_000_000_000

// ErrConfirmationTimeout marks an execution whose transaction was submitted
// but never observed confirming. The outcome is unresolved, so the fallback
// chain must not retry on another venue.
var ErrConfirmationTimeout = errors.New("transaction confirmation timed out")

// SwapQuote is a venue's priced offer for one swap attempt.
type SwapQuote struct {
	InputMint      string
	OutputMint     string
	InAmount       uint64
	ExpectedOut    uint64
	PriceImpactPct float64
	Route          string
}

// Venue is one stage of the execution fallback chain.
type Venue interface {
	Name() string
	Quote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*SwapQuote, error)
	Execute(ctx context.Context, quote *SwapQuote) (string, error)
}

// ExecutionResult reports what an accepted execution did.
type ExecutionResult struct {
	Venue     string
	Signature string
	InAmount  uint64
	OutAmount uint64
	Simulated bool
}

// ExecutorConfig controls the fallback chain policy.
type ExecutorConfig struct {
	AllowRealTransactions bool
	MaxPriceImpactPct     float64
	SlippageBps           int
	ExitSlippageBps       int
}

// Executor routes swaps through a prioritized venue chain. Each venue is
// quoted first; a quote whose price impact breaches the ceiling is rejected
// and the chain advances. With live execution disabled every call resolves
// to simulation. With live execution enabled, simulation is never used: if
// all venues fail the call fails.
type Executor struct {
	cfg    ExecutorConfig
	venues []Venue
}

func NewExecutor(cfg ExecutorConfig, venues ...Venue) *Executor {
	if cfg.MaxPriceImpactPct <= 0 {
		cfg.MaxPriceImpactPct = 10
	}
	return &Executor{cfg: cfg, venues: venues}
}

// Enter buys tokenMint with amountSol worth of SOL.
func (e *Executor) Enter(ctx context.Context, tokenMint string, amountSol float64) (ExecutionResult, bool) {
	lamports := uint64(amountSol * LamportsPerSol)
	if lamports == 0 {
		log.WithField("token", tokenMint).Warn("entry amount rounds to zero lamports")
		return ExecutionResult{}, false
	}
	return e.execute(ctx, WSOLMint, tokenMint, lamports, e.cfg.SlippageBps)
}

// Exit sells tokenAmount base units of tokenMint back to SOL.
func (e *Executor) Exit(ctx context.Context, tokenMint string, tokenAmount uint64) (ExecutionResult, bool) {
	if tokenAmount == 0 {
		log.WithField("token", tokenMint).Warn("exit amount is zero")
		return ExecutionResult{}, false
	}
	return e.execute(ctx, tokenMint, WSOLMint, tokenAmount, e.cfg.ExitSlippageBps)
}

func (e *Executor) execute(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (ExecutionResult, bool) {
	var lastQuote *SwapQuote

	for _, venue := range e.venues {
		fields := log.Fields{
			"venue":       venue.Name(),
			"input_mint":  inputMint,
			"output_mint": outputMint,
			"amount":      amount,
		}

		quote, err := venue.Quote(ctx, inputMint, outputMint, amount, slippageBps)
		if err != nil {
			log.WithFields(fields).WithError(err).Warn("quote failed, advancing chain")
			continue
		}
		if quote.PriceImpactPct > e.cfg.MaxPriceImpactPct {
			log.WithFields(fields).WithField("impact_pct", quote.PriceImpactPct).
				Warn("price impact above ceiling, advancing chain")
			continue
		}
		lastQuote = quote

		if !e.cfg.AllowRealTransactions {
			// quote accepted, execution simulated
			break
		}

		sig, err := venue.Execute(ctx, quote)
		if err != nil {
			if errors.Is(err, ErrConfirmationTimeout) {
				// outcome unresolved on chain, do not risk a double fill
				log.WithFields(fields).Error("confirmation timeout, aborting chain")
				return ExecutionResult{}, false
			}
			log.WithFields(fields).WithError(err).Warn("execution failed, advancing chain")
			continue
		}

		log.WithFields(fields).WithField("signature", sig).Info("swap executed")
		return ExecutionResult{
			Venue:     venue.Name(),
			Signature: sig,
			InAmount:  quote.InAmount,
			OutAmount: quote.ExpectedOut,
		}, true
	}

	if !e.cfg.AllowRealTransactions {
		result := ExecutionResult{Venue: "simulation", Simulated: true, InAmount: amount}
		if lastQuote != nil {
			result.OutAmount = lastQuote.ExpectedOut
		}
		log.WithFields(log.Fields{
			"input_mint":  inputMint,
			"output_mint": outputMint,
			"amount":      amount,
		}).Info("swap simulated")
		return result, true
	}

	log.WithFields(log.Fields{
		"input_mint":  inputMint,
		"output_mint": outputMint,
	}).Error("all execution venues failed")
	return ExecutionResult{}, false
}
