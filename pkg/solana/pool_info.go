package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
)

// RaydiumAPIBaseURL is the Raydium v3 public API.
const RaydiumAPIBaseURL = "https://api-v3.raydium.io"

// PoolMintInfo describes one side of a pool pair.
type PoolMintInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// PoolInfo is the subset of the Raydium pool response used for quoting.
type PoolInfo struct {
	ID          string       `json:"id"`
	ProgramID   string       `json:"programId"`
	MintA       PoolMintInfo `json:"mintA"`
	MintB       PoolMintInfo `json:"mintB"`
	MintAmountA float64      `json:"mintAmountA"`
	MintAmountB float64      `json:"mintAmountB"`
	Price       float64      `json:"price"`
	TVL         float64      `json:"tvl"`
	FeeRate     float64      `json:"feeRate"`
}

type poolListResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Count int        `json:"count"`
		Data  []PoolInfo `json:"data"`
	} `json:"data"`
}

// RaydiumAPIClient queries the Raydium v3 API for pool metadata and
// reserves.
type RaydiumAPIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewRaydiumAPIClient() *RaydiumAPIClient {
	return &RaydiumAPIClient{
		BaseURL:    RaydiumAPIBaseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchPoolByMints returns the deepest pool for a mint pair, or an error
// when no pool exists.
func (c *RaydiumAPIClient) FetchPoolByMints(ctx context.Context, mint1, mint2 string) (*PoolInfo, error) {
	q := url.Values{}
	q.Set("mint1", mint1)
	q.Set("mint2", mint2)
	q.Set("poolType", "standard")
	q.Set("poolSortField", "liquidity")
	q.Set("sortType", "desc")
	q.Set("pageSize", "10")
	q.Set("page", "1")

	endpoint := fmt.Sprintf("%s/pools/info/mint?%s", c.BaseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch pool info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("raydium api status: %d", resp.StatusCode)
	}

	var out poolListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode pool info: %w", err)
	}
	if !out.Success || len(out.Data.Data) == 0 {
		return nil, fmt.Errorf("no pool found for %s / %s", mint1, mint2)
	}

	pool := out.Data.Data[0]
	log.WithFields(log.Fields{
		"pool_id": pool.ID,
		"tvl":     pool.TVL,
	}).Debug("pool info fetched")

	return &pool, nil
}
