package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	log "github.com/sirupsen/logrus"
)

// Jito block engine regional endpoints, rotated round robin
var defaultJitoEndpoints = []string{
	"https://mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://amsterdam.mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://frankfurt.mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://ny.mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://tokyo.mainnet.block-engine.jito.wtf/api/v1/bundles",
}

// Jito tip accounts, any one of these can receive the bundle tip
var jitoTipAccounts = []string{
	"96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5",
	"HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe",
	"Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY",
	"ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49",
	"DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh",
}

// RelaySubmitter submits signed transaction bundles to the Jito block
// engine, rotating across regional endpoints on each call so a single slow
// region does not stall submissions.
type RelaySubmitter struct {
	mu        sync.Mutex
	endpoints []string
	next      int
	tipIdx    int
	client    *http.Client
}

// NewRelaySubmitter builds a submitter over the given endpoints, or the
// default regional set when none are given.
func NewRelaySubmitter(endpoints []string) *RelaySubmitter {
	if len(endpoints) == 0 {
		endpoints = defaultJitoEndpoints
	}
	return &RelaySubmitter{
		endpoints: append([]string(nil), endpoints...),
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// nextEndpoint advances the rotation and returns the endpoint to use.
func (s *RelaySubmitter) nextEndpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ep := s.endpoints[s.next]
	s.next = (s.next + 1) % len(s.endpoints)
	return ep
}

// TipInstruction builds a system transfer paying the bundle tip to one of
// the known Jito tip accounts, rotating accounts across calls.
func (s *RelaySubmitter) TipInstruction(payer solana.PublicKey, lamports uint64) solana.Instruction {
	s.mu.Lock()
	tipAccount := solana.MustPublicKeyFromBase58(jitoTipAccounts[s.tipIdx])
	s.tipIdx = (s.tipIdx + 1) % len(jitoTipAccounts)
	s.mu.Unlock()

	return system.NewTransferInstruction(lamports, payer, tipAccount).Build()
}

// SubmitBundle encodes the signed transactions and posts a sendBundle
// request. Returns the bundle id assigned by the block engine.
func (s *RelaySubmitter) SubmitBundle(ctx context.Context, txs []*solana.Transaction) (string, error) {
	if len(txs) == 0 {
		return "", fmt.Errorf("empty bundle")
	}
	if len(txs) > 5 {
		return "", fmt.Errorf("bundle exceeds 5 transactions: %d", len(txs))
	}

	encoded := make([]string, 0, len(txs))
	for _, tx := range txs {
		b64, err := EncodeTransactionBase64(tx)
		if err != nil {
			return "", err
		}
		encoded = append(encoded, b64)
	}

	req := RPCRequest{
		Jsonrpc: "2.0",
		ID:      1,
		Method:  "sendBundle",
		Params:  []interface{}{encoded, map[string]string{"encoding": "base64"}},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	endpoint := s.nextEndpoint()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("submit bundle to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	var out RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode bundle response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("block engine rejected bundle: %s", string(*out.Error))
	}

	var bundleID string
	if err := json.Unmarshal(out.Result, &bundleID); err != nil {
		return "", fmt.Errorf("decode bundle id: %w", err)
	}

	log.WithFields(log.Fields{
		"bundle_id": bundleID,
		"endpoint":  endpoint,
		"txs":       len(txs),
	}).Info("bundle submitted")

	return bundleID, nil
}
