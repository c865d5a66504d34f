package trading

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"

	sol "memetrader/pkg/solana"
	"memetrader/pkg/utils"
)

// poolCacheTTL bounds how long quoted pool metadata may serve a follow-up
// Execute; stale entries are pruned on the next quote.
const poolCacheTTL = 5 * time.Minute

// RaydiumVenueConfig controls transaction construction for the direct venue.
type RaydiumVenueConfig struct {
	PriorityFeeLamports uint64
	ComputeUnits        uint32
	UseJitoBundles      bool
	JitoTipLamports     uint64
	ConfirmTimeout      time.Duration
}

// RaydiumVenue executes swaps by building Raydium CPMM instructions
// directly. Pool metadata comes from the Raydium API, the swap itself from
// on-chain PDAs. Transactions go through the Jito relay when enabled, with
// plain RPC submission as the fallback path.
type RaydiumVenue struct {
	chain  *sol.Chain
	pools  *sol.RaydiumAPIClient
	relay  *sol.RelaySubmitter
	signer solanago.PrivateKey
	cfg    RaydiumVenueConfig

	mu        sync.Mutex
	poolCache map[string]poolCacheEntry
}

type poolCacheEntry struct {
	pool    *sol.PoolInfo
	fetched time.Time
}

func NewRaydiumVenue(chain *sol.Chain, pools *sol.RaydiumAPIClient, relay *sol.RelaySubmitter, signer solanago.PrivateKey, cfg RaydiumVenueConfig) *RaydiumVenue {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 60 * time.Second
	}
	return &RaydiumVenue{
		chain:     chain,
		pools:     pools,
		relay:     relay,
		signer:    signer,
		cfg:       cfg,
		poolCache: make(map[string]poolCacheEntry),
	}
}

func (v *RaydiumVenue) Name() string { return "raydium" }

// Quote prices the swap against the pool's current reserves using constant
// product math. The pool is cached by id for the follow-up Execute call.
func (v *RaydiumVenue) Quote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*SwapQuote, error) {
	pool, err := v.pools.FetchPoolByMints(ctx, inputMint, outputMint)
	if err != nil {
		return nil, err
	}

	var reserveIn, reserveOut float64
	var decimalsIn, decimalsOut int
	switch inputMint {
	case pool.MintA.Address:
		reserveIn, reserveOut = pool.MintAmountA, pool.MintAmountB
		decimalsIn, decimalsOut = pool.MintA.Decimals, pool.MintB.Decimals
	case pool.MintB.Address:
		reserveIn, reserveOut = pool.MintAmountB, pool.MintAmountA
		decimalsIn, decimalsOut = pool.MintB.Decimals, pool.MintA.Decimals
	default:
		return nil, fmt.Errorf("pool %s does not contain mint %s", pool.ID, inputMint)
	}

	amountInUI := float64(amount) / math.Pow10(decimalsIn)
	outUI, err := utils.AmountOut(amountInUI, reserveIn, reserveOut, pool.FeeRate)
	if err != nil {
		return nil, err
	}
	impact, err := utils.PriceImpactPct(amountInUI, reserveIn, reserveOut, pool.FeeRate)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.prunePoolCache(time.Now())
	v.poolCache[pool.ID] = poolCacheEntry{pool: pool, fetched: time.Now()}
	v.mu.Unlock()

	return &SwapQuote{
		InputMint:      inputMint,
		OutputMint:     outputMint,
		InAmount:       amount,
		ExpectedOut:    uint64(outUI * math.Pow10(decimalsOut) * (1 - float64(slippageBps)/10_000)),
		PriceImpactPct: impact * 100,
		Route:          pool.ID,
	}, nil
}

// Execute builds, signs and submits the CPMM swap for a previously quoted
// pool.
func (v *RaydiumVenue) Execute(ctx context.Context, quote *SwapQuote) (string, error) {
	v.mu.Lock()
	entry, ok := v.poolCache[quote.Route]
	v.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("no cached pool for id %s", quote.Route)
	}
	pool := entry.pool

	ix, err := v.buildSwapInstruction(pool, quote)
	if err != nil {
		return "", err
	}

	instructions := []solanago.Instruction{ix}
	if v.cfg.UseJitoBundles && v.relay != nil {
		instructions = append(instructions, v.relay.TipInstruction(v.signer.PublicKey(), v.cfg.JitoTipLamports))
	}

	tx, err := sol.BuildSignedTransaction(ctx, v.chain.Client(), v.signer,
		v.cfg.ComputeUnits, v.cfg.PriorityFeeLamports, instructions...)
	if err != nil {
		return "", err
	}

	if v.cfg.UseJitoBundles && v.relay != nil {
		if bundleID, err := v.relay.SubmitBundle(ctx, []*solanago.Transaction{tx}); err == nil {
			log.WithField("bundle_id", bundleID).Info("swap bundle relayed")
		} else {
			log.WithError(err).Warn("relay submission failed, falling back to rpc send")
		}
	}

	sig, err := sol.SendTransaction(ctx, v.chain.Client(), tx)
	if err != nil {
		return "", err
	}

	state, err := sol.WaitForConfirmation(ctx, v.chain.Client(), sig, v.cfg.ConfirmTimeout)
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

// caller holds v.mu
func (v *RaydiumVenue) prunePoolCache(now time.Time) {
	for id, entry := range v.poolCache {
		if now.Sub(entry.fetched) > poolCacheTTL {
			delete(v.poolCache, id)
		}
	}
}

func (v *RaydiumVenue) buildSwapInstruction(pool *sol.PoolInfo, quote *SwapQuote) (solanago.Instruction, error) {
	poolState, err := solanago.PublicKeyFromBase58(pool.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid pool id: %w", err)
	}
	inputMint, err := solanago.PublicKeyFromBase58(quote.InputMint)
	if err != nil {
		return nil, fmt.Errorf("invalid input mint: %w", err)
	}
	outputMint, err := solanago.PublicKeyFromBase58(quote.OutputMint)
	if err != nil {
		return nil, fmt.Errorf("invalid output mint: %w", err)
	}

	authority, err := sol.CpmmAuthority()
	if err != nil {
		return nil, err
	}
	ammConfig, err := sol.CpmmAmmConfig(0)
	if err != nil {
		return nil, err
	}
	inputVault, err := sol.CpmmPoolVault(poolState, inputMint)
	if err != nil {
		return nil, err
	}
	outputVault, err := sol.CpmmPoolVault(poolState, outputMint)
	if err != nil {
		return nil, err
	}
	observation, err := sol.CpmmObservationState(poolState)
	if err != nil {
		return nil, err
	}

	owner := v.signer.PublicKey()
	inputATA, _, err := solanago.FindAssociatedTokenAddress(owner, inputMint)
	if err != nil {
		return nil, err
	}
	outputATA, _, err := solanago.FindAssociatedTokenAddress(owner, outputMint)
	if err != nil {
		return nil, err
	}

	return sol.BuildCpmmSwapInstruction(sol.CpmmSwapAccounts{
		Payer:              owner,
		Authority:          authority,
		AmmConfig:          ammConfig,
		PoolState:          poolState,
		InputTokenAccount:  inputATA,
		OutputTokenAccount: outputATA,
		InputVault:         inputVault,
		OutputVault:        outputVault,
		InputTokenProgram:  solanago.TokenProgramID,
		OutputTokenProgram: solanago.TokenProgramID,
		InputMint:          inputMint,
		OutputMint:         outputMint,
		ObservationState:   observation,
	}, quote.InAmount, quote.ExpectedOut)
}
