package validator

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"memetrader/pkg/dexscreener"
)

// Check names, fixed battery of eight
const (
	CheckLiquidity    = "liquidity"
	CheckLPBurned     = "lp_burned"
	CheckMintRevoked  = "mint_revoked"
	CheckDistribution = "distribution"
	CheckSafeContract = "safe_contract"
	CheckVolume       = "volume"
	CheckMultiChannel = "multi_channel"
	CheckPriceHistory = "price_history"
)

// MarketData supplies price, liquidity and volume for a token.
type MarketData interface {
	GetTokenData(ctx context.Context, address string) (*dexscreener.TokenData, error)
}

// ChainReader answers on-chain questions about a mint.
type ChainReader interface {
	MintAuthorityRevoked(ctx context.Context, mint string) (bool, error)
}

// Config holds the decision policy. Defaults are the production values; the
// weight table must sum to 100.
type Config struct {
	MinLiquidityUSD    float64
	WashVolumeUSD      float64
	WashPriceChangePct float64
	MaxDrawdown1hPct   float64
	MinChannelMentions int
	MentionWindow      time.Duration
	MaxTopHolderPct    float64
	ScoreThreshold     int
	Weights            map[string]int
}

// DefaultConfig returns the standard policy: 70 score threshold, two channel
// confirmations inside 24 hours, $100k wash-trading volume bar.
func DefaultConfig() Config {
	return Config{
		MinLiquidityUSD:    5_000,
		WashVolumeUSD:      100_000,
		WashPriceChangePct: 20,
		MaxDrawdown1hPct:   50,
		MinChannelMentions: 2,
		MentionWindow:      24 * time.Hour,
		MaxTopHolderPct:    40,
		ScoreThreshold:     70,
		Weights: map[string]int{
			CheckLiquidity:    20,
			CheckLPBurned:     15,
			CheckMintRevoked:  15,
			CheckDistribution: 10,
			CheckSafeContract: 20,
			CheckVolume:       10,
			CheckMultiChannel: 5,
			CheckPriceHistory: 5,
		},
	}
}

// ValidationResult is the outcome of one validation call.
type ValidationResult struct {
	TokenAddress string          `json:"token_address"`
	IsValid      bool            `json:"is_valid"`
	Score        int             `json:"score"`
	Checks       map[string]bool `json:"checks"`
	Warnings     []string        `json:"warnings"`
	Timestamp    time.Time       `json:"timestamp"`
}

type mention struct {
	channel string
	at      time.Time
}

// Validator scores candidate tokens with a fixed battery of eight weighted
// checks. A check that cannot be evaluated counts as failed, never as an
// error to the caller.
type Validator struct {
	cfg    Config
	market MarketData
	chain  ChainReader

	mu          sync.Mutex
	mentions    map[string][]mention
	holderShare map[string]float64

	now func() time.Time
}

func New(cfg Config, market MarketData, chain ChainReader) *Validator {
	if cfg.Weights == nil {
		cfg.Weights = DefaultConfig().Weights
	}
	return &Validator{
		cfg:         cfg,
		market:      market,
		chain:       chain,
		mentions:    make(map[string][]mention),
		holderShare: make(map[string]float64),
		now:         time.Now,
	}
}

// RecordHolderShare stores the top-holder concentration a collector reported
// for a token. Tokens without a reported share pass the distribution check
// on trust.
func (v *Validator) RecordHolderShare(tokenAddress string, pct float64) {
	v.mu.Lock()
	v.holderShare[tokenAddress] = pct
	v.mu.Unlock()
}

// Validate runs all eight checks and returns the weighted result. The
// multi-channel cache is updated as a side effect.
func (v *Validator) Validate(ctx context.Context, tokenAddress, sourceChannel string) ValidationResult {
	result := ValidationResult{
		TokenAddress: tokenAddress,
		Checks:       make(map[string]bool, 8),
		Timestamp:    v.now(),
	}

	data, err := v.market.GetTokenData(ctx, tokenAddress)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("market data unavailable: %v", err))
		data = nil
	}

	result.Checks[CheckLiquidity] = v.checkLiquidity(data, &result)
	result.Checks[CheckLPBurned] = v.checkLPBurned()
	result.Checks[CheckMintRevoked] = v.checkMintRevoked(ctx, tokenAddress, &result)
	result.Checks[CheckDistribution] = v.checkDistribution(tokenAddress, &result)
	result.Checks[CheckSafeContract] = v.checkSafeContract()
	result.Checks[CheckVolume] = v.checkVolume(data, &result)
	result.Checks[CheckMultiChannel] = v.checkMultiChannel(tokenAddress, sourceChannel, &result)
	result.Checks[CheckPriceHistory] = v.checkPriceHistory(data, &result)

	for name, passed := range result.Checks {
		if passed {
			result.Score += v.cfg.Weights[name]
		}
	}
	result.IsValid = result.Score >= v.cfg.ScoreThreshold

	log.WithFields(log.Fields{
		"token":    tokenAddress,
		"score":    result.Score,
		"is_valid": result.IsValid,
		"warnings": len(result.Warnings),
	}).Info("signal validated")

	return result
}

// ValidateBatch validates a list of candidate addresses from one source.
func (v *Validator) ValidateBatch(ctx context.Context, addresses []string, sourceChannel string) []ValidationResult {
	results := make([]ValidationResult, 0, len(addresses))
	for _, addr := range addresses {
		results = append(results, v.Validate(ctx, addr, sourceChannel))
	}
	return results
}

func (v *Validator) checkLiquidity(data *dexscreener.TokenData, result *ValidationResult) bool {
	if data == nil {
		result.Warnings = append(result.Warnings, "liquidity: no market data")
		return false
	}
	if data.LiquidityUsd < v.cfg.MinLiquidityUSD {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("liquidity $%.0f below minimum $%.0f", data.LiquidityUsd, v.cfg.MinLiquidityUSD))
		return false
	}
	return true
}

// checkLPBurned is a trusted stub. LP lock verification runs in the
// upstream collector pipeline before a signal reaches this service.
func (v *Validator) checkLPBurned() bool {
	return true
}

func (v *Validator) checkMintRevoked(ctx context.Context, tokenAddress string, result *ValidationResult) bool {
	if v.chain == nil {
		result.Warnings = append(result.Warnings, "mint authority: no chain reader configured")
		return false
	}
	revoked, err := v.chain.MintAuthorityRevoked(ctx, tokenAddress)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("mint authority check failed: %v", err))
		return false
	}
	if !revoked {
		result.Warnings = append(result.Warnings, "mint authority still active")
	}
	return revoked
}

// checkDistribution compares the collector-reported top-holder share
// against the configured ceiling. Tokens without a reported share pass on
// trust, concentration is vetted upstream before a signal is published.
func (v *Validator) checkDistribution(tokenAddress string, result *ValidationResult) bool {
	v.mu.Lock()
	pct, known := v.holderShare[tokenAddress]
	v.mu.Unlock()

	if !known || v.cfg.MaxTopHolderPct <= 0 {
		return true
	}
	if pct > v.cfg.MaxTopHolderPct {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("distribution: top holder %.1f%% above %.1f%% limit", pct, v.cfg.MaxTopHolderPct))
		return false
	}
	return true
}

// checkSafeContract is a trusted stub for honeypot screening, vetted
// upstream.
func (v *Validator) checkSafeContract() bool {
	return true
}

func (v *Validator) checkVolume(data *dexscreener.TokenData, result *ValidationResult) bool {
	if data == nil {
		result.Warnings = append(result.Warnings, "volume: no market data")
		return false
	}
	change := data.PriceChange24h
	if change < 0 {
		change = -change
	}
	if data.Volume24h > v.cfg.WashVolumeUSD && change < v.cfg.WashPriceChangePct {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("wash trading suspected: volume $%.0f with %.1f%% price change", data.Volume24h, data.PriceChange24h))
		return false
	}
	return true
}

func (v *Validator) checkMultiChannel(tokenAddress, sourceChannel string, result *ValidationResult) bool {
	now := v.now()
	cutoff := now.Add(-v.cfg.MentionWindow)

	v.mu.Lock()
	defer v.mu.Unlock()

	kept := v.mentions[tokenAddress][:0]
	for _, m := range v.mentions[tokenAddress] {
		if m.at.After(cutoff) {
			kept = append(kept, m)
		}
	}
	kept = append(kept, mention{channel: sourceChannel, at: now})
	v.mentions[tokenAddress] = kept

	distinct := make(map[string]struct{}, len(kept))
	for _, m := range kept {
		distinct[m.channel] = struct{}{}
	}

	if len(distinct) < v.cfg.MinChannelMentions {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("only %d channel(s) reported token in window", len(distinct)))
		return false
	}
	return true
}

func (v *Validator) checkPriceHistory(data *dexscreener.TokenData, result *ValidationResult) bool {
	if data == nil {
		result.Warnings = append(result.Warnings, "price history: no market data")
		return false
	}
	if data.PriceChange1h <= -v.cfg.MaxDrawdown1hPct {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("severe drawdown: %.1f%% in the last hour", data.PriceChange1h))
		return false
	}
	return true
}

// Summary reports how many tokens the multi-channel cache tracks and how
// many currently have enough distinct sources.
func (v *Validator) Summary() map[string]int {
	v.mu.Lock()
	defer v.mu.Unlock()

	cutoff := v.now().Add(-v.cfg.MentionWindow)
	confirmed := 0
	for _, ms := range v.mentions {
		distinct := make(map[string]struct{})
		for _, m := range ms {
			if m.at.After(cutoff) {
				distinct[m.channel] = struct{}{}
			}
		}
		if len(distinct) >= v.cfg.MinChannelMentions {
			confirmed++
		}
	}

	return map[string]int{
		"tracked_tokens":          len(v.mentions),
		"multi_channel_confirmed": confirmed,
	}
}
