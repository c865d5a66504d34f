package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// JupiterBaseURL is the public Jupiter aggregator API.
const JupiterBaseURL = "https://lite-api.jup.ag"

// WSOLMint is wrapped SOL, the quote side of every trade.
const WSOLMint = "So11111111111111111111111111111111111111112"

// QuoteResponse is the Jupiter quote used to build a swap.
type QuoteResponse struct {
	InputMint            string          `json:"inputMint"`
	InAmount             string          `json:"inAmount"`
	OutputMint           string          `json:"outputMint"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          int             `json:"slippageBps"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            json.RawMessage `json:"routePlan"`
}

// OutAmountUint parses the quoted output amount.
func (q *QuoteResponse) OutAmountUint() (uint64, error) {
	return strconv.ParseUint(q.OutAmount, 10, 64)
}

// PriceImpact parses the quoted price impact as a fraction (0.05 = 5%).
func (q *QuoteResponse) PriceImpact() (float64, error) {
	if q.PriceImpactPct == "" {
		return 0, nil
	}
	return strconv.ParseFloat(q.PriceImpactPct, 64)
}

type swapRequest struct {
	QuoteResponse             *QuoteResponse `json:"quoteResponse"`
	UserPublicKey             string         `json:"userPublicKey"`
	WrapAndUnwrapSol          bool           `json:"wrapAndUnwrapSol"`
	PrioritizationFeeLamports uint64         `json:"prioritizationFeeLamports,omitempty"`
}

type swapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

type priceCacheEntry struct {
	price     float64
	fetchedAt time.Time
}

// JupiterClient talks to the Jupiter aggregator for quotes, swap
// transactions and token prices. Prices are cached briefly so repeated
// monitor cycles do not hammer the API.
type JupiterClient struct {
	BaseURL    string
	HTTPClient *http.Client

	cacheMu    sync.RWMutex
	priceCache map[string]priceCacheEntry
	cacheTTL   time.Duration
}

func NewJupiterClient() *JupiterClient {
	return &JupiterClient{
		BaseURL:    JupiterBaseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		priceCache: make(map[string]priceCacheEntry),
		cacheTTL:   10 * time.Second,
	}
}

// GetQuote fetches a swap quote. Amount is in the input mint's base units.
func (c *JupiterClient) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*QuoteResponse, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(slippageBps))

	endpoint := fmt.Sprintf("%s/swap/v1/quote?%s", c.BaseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jupiter quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter quote status: %d", resp.StatusCode)
	}

	var quote QuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}

	log.WithFields(log.Fields{
		"input_mint":  inputMint,
		"output_mint": outputMint,
		"out_amount":  quote.OutAmount,
		"impact_pct":  quote.PriceImpactPct,
	}).Debug("jupiter quote fetched")

	return &quote, nil
}

// BuildSwapTransaction asks Jupiter to build the swap for a quote. Returns
// the unsigned transaction as base64.
func (c *JupiterClient) BuildSwapTransaction(ctx context.Context, quote *QuoteResponse, userPublicKey string, priorityFeeLamports uint64) (string, error) {
	body, err := json.Marshal(swapRequest{
		QuoteResponse:             quote,
		UserPublicKey:             userPublicKey,
		WrapAndUnwrapSol:          true,
		PrioritizationFeeLamports: priorityFeeLamports,
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/swap/v1/swap", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("jupiter swap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("jupiter swap status: %d", resp.StatusCode)
	}

	var out swapResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode swap response: %w", err)
	}
	if out.SwapTransaction == "" {
		return "", fmt.Errorf("jupiter returned empty swap transaction")
	}

	return out.SwapTransaction, nil
}

type priceResponse struct {
	Data map[string]struct {
		Price string `json:"price"`
	} `json:"data"`
}

// GetTokenPrice returns the USD price of a mint, serving from cache when
// fresh. On fetch failure a stale cached price is returned if one exists.
func (c *JupiterClient) GetTokenPrice(ctx context.Context, mint string) (float64, error) {
	c.cacheMu.RLock()
	entry, ok := c.priceCache[mint]
	c.cacheMu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < c.cacheTTL {
		return entry.price, nil
	}

	price, err := c.fetchTokenPrice(ctx, mint)
	if err != nil {
		if ok {
			log.WithError(err).WithField("mint", mint).Warn("price fetch failed, serving stale cache")
			return entry.price, nil
		}
		return 0, err
	}

	c.cacheMu.Lock()
	c.priceCache[mint] = priceCacheEntry{price: price, fetchedAt: time.Now()}
	c.cacheMu.Unlock()

	return price, nil
}

func (c *JupiterClient) fetchTokenPrice(ctx context.Context, mint string) (float64, error) {
	endpoint := fmt.Sprintf("%s/price/v2?ids=%s", c.BaseURL, url.QueryEscape(mint))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("jupiter price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("jupiter price status: %d", resp.StatusCode)
	}

	var out priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode price response: %w", err)
	}

	data, ok := out.Data[mint]
	if !ok || data.Price == "" {
		return 0, fmt.Errorf("no price for mint %s", mint)
	}

	return strconv.ParseFloat(data.Price, 64)
}
