package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Shared HTTP client with connection pooling for health probes
var (
	probeClient *http.Client
	clientOnce  sync.Once
)

func getProbeClient() *http.Client {
	clientOnce.Do(func() {
		transport := &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DisableKeepAlives:   false,
		}
		probeClient = &http.Client{
			Transport: transport,
			Timeout:   2 * time.Second,
		}
	})
	return probeClient
}

// RPCRequest represents a JSON-RPC request
type RPCRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// RPCResponse represents a JSON-RPC response
type RPCResponse struct {
	Jsonrpc string           `json:"jsonrpc"`
	Result  json.RawMessage  `json:"result"`
	Error   *json.RawMessage `json:"error"`
	ID      int              `json:"id"`
}

// ProbeResult represents the outcome of probing a single RPC endpoint
type ProbeResult struct {
	URL     string        `json:"url"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// probeEndpoint issues a getHealth call against a single endpoint and
// reports elapsed time. Any transport, status or RPC-level error marks the
// endpoint as failed.
func probeEndpoint(ctx context.Context, url string, timeout time.Duration, ch chan<- ProbeResult, wg *sync.WaitGroup) {
	defer wg.Done()

	start := time.Now()

	req := RPCRequest{
		Jsonrpc: "2.0",
		ID:      1,
		Method:  "getHealth",
		Params:  []interface{}{},
	}
	body, _ := json.Marshal(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		ch <- ProbeResult{URL: url, OK: false, Error: err.Error()}
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	// Per-probe timeout on top of the shared pooled transport
	client := &http.Client{
		Transport: getProbeClient().Transport,
		Timeout:   timeout,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		ch <- ProbeResult{URL: url, OK: false, Latency: time.Since(start), Error: err.Error()}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		ch <- ProbeResult{URL: url, OK: false, Latency: time.Since(start), Error: fmt.Sprintf("status code: %d", resp.StatusCode)}
		return
	}

	var result RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		ch <- ProbeResult{URL: url, OK: false, Latency: time.Since(start), Error: err.Error()}
		return
	}
	if result.Error != nil {
		ch <- ProbeResult{URL: url, OK: false, Latency: time.Since(start), Error: fmt.Sprintf("rpc error: %s", string(*result.Error))}
		return
	}

	ch <- ProbeResult{URL: url, OK: true, Latency: time.Since(start)}
}

// ProbeEndpoints checks multiple RPC endpoints concurrently and returns one
// result per endpoint. Cancelling the context aborts in-flight probes, which
// then report as failed.
func ProbeEndpoints(ctx context.Context, urls []string, timeout time.Duration) []ProbeResult {
	var wg sync.WaitGroup
	resultCh := make(chan ProbeResult, len(urls))

	for _, url := range urls {
		wg.Add(1)
		go probeEndpoint(ctx, url, timeout, resultCh, &wg)
	}

	wg.Wait()
	close(resultCh)
	var results []ProbeResult
	for res := range resultCh {
		results = append(results, res)
	}
	return results
}
