package trading

import (
	"context"
	"fmt"
	"sync"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	sol "memetrader/pkg/solana"
	"memetrader/pkg/utils"
)

// JupiterVenue executes swaps through the Jupiter aggregator: fetch a
// quote, ask the API to build the transaction, then sign and submit it.
type JupiterVenue struct {
	client         *utils.JupiterClient
	chain          *sol.Chain
	signer         solanago.PrivateKey
	priorityFee    uint64
	confirmTimeout time.Duration

	mu         sync.Mutex
	quoteCache map[string]quoteCacheEntry
}

type quoteCacheEntry struct {
	quote   *utils.QuoteResponse
	fetched time.Time
}

func NewJupiterVenue(client *utils.JupiterClient, chain *sol.Chain, signer solanago.PrivateKey, priorityFeeLamports uint64, confirmTimeout time.Duration) *JupiterVenue {
	if confirmTimeout <= 0 {
		confirmTimeout = 60 * time.Second
	}
	return &JupiterVenue{
		client:         client,
		chain:          chain,
		signer:         signer,
		priorityFee:    priorityFeeLamports,
		confirmTimeout: confirmTimeout,
		quoteCache:     make(map[string]quoteCacheEntry),
	}
}

func (v *JupiterVenue) Name() string { return "jupiter" }

func (v *JupiterVenue) Quote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*SwapQuote, error) {
	quote, err := v.client.GetQuote(ctx, inputMint, outputMint, amount, slippageBps)
	if err != nil {
		return nil, err
	}

	outAmount, err := quote.OutAmountUint()
	if err != nil {
		return nil, fmt.Errorf("parse out amount: %w", err)
	}
	impact, err := quote.PriceImpact()
	if err != nil {
		return nil, fmt.Errorf("parse price impact: %w", err)
	}

	key := quoteKey(inputMint, outputMint, amount)
	now := time.Now()
	v.mu.Lock()
	for k, entry := range v.quoteCache {
		if now.Sub(entry.fetched) > poolCacheTTL {
			delete(v.quoteCache, k)
		}
	}
	v.quoteCache[key] = quoteCacheEntry{quote: quote, fetched: now}
	v.mu.Unlock()

	return &SwapQuote{
		InputMint:      inputMint,
		OutputMint:     outputMint,
		InAmount:       amount,
		ExpectedOut:    outAmount,
		PriceImpactPct: impact * 100,
		Route:          key,
	}, nil
}

func (v *JupiterVenue) Execute(ctx context.Context, quote *SwapQuote) (string, error) {
	v.mu.Lock()
	entry, ok := v.quoteCache[quote.Route]
	delete(v.quoteCache, quote.Route)
	v.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("no cached jupiter quote for %s", quote.Route)
	}
	raw := entry.quote

	encoded, err := v.client.BuildSwapTransaction(ctx, raw, v.signer.PublicKey().String(), v.priorityFee)
	if err != nil {
		return "", err
	}

	tx, err := sol.DecodeTransactionBase64(encoded)
	if err != nil {
		return "", err
	}

	_, err = tx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		if v.signer.PublicKey().Equals(key) {
			return &v.signer
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("sign swap transaction: %w", err)
	}

	sig, err := sol.SendTransaction(ctx, v.chain.Client(), tx)
	if err != nil {
		return "", err
	}

	state, err := sol.WaitForConfirmation(ctx, v.chain.Client(), sig, v.confirmTimeout)
	if err != nil {
		// the transaction is already in flight, so any error here leaves
		// the outcome unresolved
		return "", fmt.Errorf("swap %s: %w (%v)", sig, ErrConfirmationTimeout, err)
	}
	switch state {
	case sol.ConfirmationConfirmed:
		return sig.String(), nil
	case sol.ConfirmationFailed:
		return "", fmt.Errorf("swap %s failed on chain", sig)
	default:
		return "", fmt.Errorf("swap %s: %w", sig, ErrConfirmationTimeout)
	}
}

func quoteKey(inputMint, outputMint string, amount uint64) string {
	return fmt.Sprintf("%s:%s:%d", inputMint, outputMint, amount)
}
