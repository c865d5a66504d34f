package sniper

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"memetrader/internal/trading"
	"memetrader/internal/validator"
	"memetrader/pkg/dexscreener"
)

// RaydiumAMMV4Program is the legacy Raydium AMM whose pool initializations
// the sniper watches for.
const RaydiumAMMV4Program = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"

const (
	reconnectDelay  = 5 * time.Second
	maxReconnects   = 20
	readDeadline    = 120 * time.Second
	resolveTimeout  = 15 * time.Second
	validateTimeout = 20 * time.Second

	// dedupe window size; the set resets when full, a duplicate after a
	// reset only costs one redundant validation
	maxSeenSignatures = 8192
)

// markers emitted by the AMM program when a new pool is initialized
var poolInitMarkers = []string{"initialize2", "init_pc_amount"}

// TokenResolver maps a pool-initialization transaction signature to the
// token mint the pool trades.
type TokenResolver interface {
	ResolveNewPool(ctx context.Context, signature string) (string, error)
}

// SignalValidator scores a detected token before entry.
type SignalValidator interface {
	Validate(ctx context.Context, tokenAddress, sourceChannel string) validator.ValidationResult
}

// PositionOpener opens a sized position for an accepted token.
type PositionOpener interface {
	OpenPosition(ctx context.Context, req trading.EntryRequest) bool
}

// MarketData supplies entry price and display name for a detected token.
type MarketData interface {
	GetTokenData(ctx context.Context, address string) (*dexscreener.TokenData, error)
}

// Stats counts what the sniper has seen and acted on.
type Stats struct {
	PoolsDetected  int64 `json:"pools_detected"`
	TokensResolved int64 `json:"tokens_resolved"`
	Validated      int64 `json:"validated"`
	Entered        int64 `json:"entered"`
	Reconnects     int64 `json:"reconnects"`
}

type logsNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Value struct {
				Signature string      `json:"signature"`
				Err       interface{} `json:"err"`
				Logs      []string    `json:"logs"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// Sniper subscribes to AMM program logs over websocket, detects new pool
// initializations, resolves the token mint and hands it through the
// validator to the position manager. Connection loss triggers bounded
// reconnection with a fixed delay.
type Sniper struct {
	wsURL     string
	resolver  TokenResolver
	validator SignalValidator
	opener    PositionOpener
	market    MarketData

	mu    sync.Mutex
	seen  map[string]struct{}
	stats Stats
}

func New(wsURL string, resolver TokenResolver, v SignalValidator, opener PositionOpener, market MarketData) *Sniper {
	return &Sniper{
		wsURL:     wsURL,
		resolver:  resolver,
		validator: v,
		opener:    opener,
		market:    market,
		seen:      make(map[string]struct{}),
	}
}

// Run connects and consumes log notifications until the context is
// cancelled or the reconnect budget is exhausted.
func (s *Sniper) Run(ctx context.Context) error {
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.runOnce(ctx)
		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}

		attempts++
		if attempts > maxReconnects {
			log.WithError(err).Error("sniper reconnect budget exhausted")
			return err
		}

		s.mu.Lock()
		s.stats.Reconnects++
		s.mu.Unlock()

		log.WithError(err).WithField("attempt", attempts).Warn("sniper connection lost, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (s *Sniper) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "logsSubscribe",
		"params": []interface{}{
			map[string]interface{}{"mentions": []string{RaydiumAMMV4Program}},
			map[string]interface{}{"commitment": "confirmed"},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	log.WithField("ws_url", s.wsURL).Info("sniper subscribed to pool logs")

	// close the socket when the context ends so ReadMessage unblocks
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return err
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handleMessage(ctx, raw)
	}
}

func (s *Sniper) handleMessage(ctx context.Context, raw []byte) {
	var msg logsNotification
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Method != "logsNotification" {
		return
	}

	value := msg.Params.Result.Value
	if value.Err != nil || value.Signature == "" {
		return
	}
	if !containsPoolInit(value.Logs) {
		return
	}

	s.mu.Lock()
	if _, dup := s.seen[value.Signature]; dup {
		s.mu.Unlock()
		return
	}
	if len(s.seen) >= maxSeenSignatures {
		s.seen = make(map[string]struct{}, maxSeenSignatures)
	}
	s.seen[value.Signature] = struct{}{}
	s.stats.PoolsDetected++
	s.mu.Unlock()

	go s.processPool(ctx, value.Signature)
}

func (s *Sniper) processPool(ctx context.Context, signature string) {
	resolveCtx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	mint, err := s.resolver.ResolveNewPool(resolveCtx, signature)
	if err != nil {
		log.WithError(err).WithField("signature", signature).Debug("could not resolve pool token")
		return
	}

	s.mu.Lock()
	s.stats.TokensResolved++
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"token":     mint,
		"signature": signature,
	}).Info("new pool detected")

	valCtx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	result := s.validator.Validate(valCtx, mint, "sniper")
	if !result.IsValid {
		log.WithFields(log.Fields{
			"token": mint,
			"score": result.Score,
		}).Info("sniped token rejected by validation")
		return
	}

	s.mu.Lock()
	s.stats.Validated++
	s.mu.Unlock()

	entry := trading.EntryRequest{
		TokenAddress: mint,
		TokenName:    mint,
		Confidence:   float64(result.Score) / 100,
	}
	if data, err := s.market.GetTokenData(ctx, mint); err == nil {
		entry.TokenName = data.Name
		entry.PriceUsd = data.PriceUsd
	} else {
		log.WithError(err).WithField("token", mint).Warn("no market data for sniped token, skipping entry")
		return
	}

	if s.opener.OpenPosition(ctx, entry) {
		s.mu.Lock()
		s.stats.Entered++
		s.mu.Unlock()
	}
}

// Stats returns a snapshot of the sniper counters.
func (s *Sniper) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func containsPoolInit(logs []string) bool {
	for _, line := range logs {
		for _, marker := range poolInitMarkers {
			if strings.Contains(line, marker) {
				return true
			}
		}
	}
	return false
}
