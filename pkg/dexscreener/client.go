package dexscreener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrNoPairs is returned when DexScreener knows no trading pair for a token.
var ErrNoPairs = errors.New("dexscreener: no pairs found for token")

// TokenData is the normalized market snapshot for a token, taken from the
// pair with the highest USD liquidity.
type TokenData struct {
	Address        string  `json:"address"`
	Name           string  `json:"name"`
	Symbol         string  `json:"symbol"`
	PriceUsd       float64 `json:"price_usd"`
	LiquidityUsd   float64 `json:"liquidity_usd"`
	Volume24h      float64 `json:"volume_24h"`
	PriceChange24h float64 `json:"price_change_24h"`
	PriceChange1h  float64 `json:"price_change_1h"`
	Dex            string  `json:"dex"`
	PairAddress    string  `json:"pair_address"`
}

type pairResponse struct {
	Pairs []pair `json:"pairs"`
}

type pair struct {
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"baseToken"`
	PriceUsd  string `json:"priceUsd"`
	Liquidity struct {
		Usd float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H24 float64 `json:"h24"`
		H1  float64 `json:"h1"`
	} `json:"priceChange"`
}

// Client queries the DexScreener public API for token market data.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a DexScreener API client with sane timeouts.
func NewClient() *Client {
	return &Client{
		BaseURL: "https://api.dexscreener.com/latest/dex",
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				IdleConnTimeout:       10 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 10 * time.Second,
			},
		},
	}
}

// GetTokenData fetches market data for a token address. The pair with the
// highest USD liquidity is used. Returns ErrNoPairs when the token is
// unknown to DexScreener.
func (c *Client) GetTokenData(ctx context.Context, tokenAddress string) (*TokenData, error) {
	url := fmt.Sprintf("%s/tokens/%s", c.BaseURL, tokenAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dexscreener request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dexscreener returned status %d", resp.StatusCode)
	}

	var parsed pairResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(parsed.Pairs) == 0 {
		return nil, ErrNoPairs
	}

	// Pick the pair with the highest liquidity
	best := parsed.Pairs[0]
	for _, p := range parsed.Pairs[1:] {
		if p.Liquidity.Usd > best.Liquidity.Usd {
			best = p
		}
	}

	price, err := strconv.ParseFloat(best.PriceUsd, 64)
	if err != nil || price <= 0 {
		return nil, fmt.Errorf("dexscreener: unusable price %q for %s", best.PriceUsd, tokenAddress)
	}

	data := &TokenData{
		Address:        tokenAddress,
		Name:           best.BaseToken.Name,
		Symbol:         best.BaseToken.Symbol,
		PriceUsd:       price,
		LiquidityUsd:   best.Liquidity.Usd,
		Volume24h:      best.Volume.H24,
		PriceChange24h: best.PriceChange.H24,
		PriceChange1h:  best.PriceChange.H1,
		Dex:            best.DexID,
		PairAddress:    best.PairAddress,
	}

	log.WithFields(log.Fields{
		"token":     data.Symbol,
		"liquidity": data.LiquidityUsd,
		"volume":    data.Volume24h,
	}).Debug("Token data fetched")

	return data, nil
}
