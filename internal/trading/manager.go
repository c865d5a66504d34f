package trading

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"memetrader/internal/models"
)

// Router enters and exits positions through the execution venue chain.
type Router interface {
	Enter(ctx context.Context, tokenMint string, amountSol float64) (ExecutionResult, bool)
	Exit(ctx context.Context, tokenMint string, tokenAmount uint64) (ExecutionResult, bool)
}

// PriceSource supplies the current USD price of a mint.
type PriceSource interface {
	GetTokenPrice(ctx context.Context, mint string) (float64, error)
}

// BalanceSource answers wallet balance queries for fraction-based sizing.
type BalanceSource interface {
	GetSolBalance(ctx context.Context, address string) (float64, error)
}

// Store persists positions, trades and daily counters. A nil Store keeps
// the manager purely in memory.
type Store interface {
	SavePosition(p *models.Position) error
	LoadOpenPositions() ([]*models.Position, error)
	RecordTrade(t *models.TradeRecord) error
	SaveDailyStat(day string, lossSol float64, trades int) error
	LoadDailyStat(day string) (*models.DailyStat, error)
}

// Notifier receives trade lifecycle events, fire and forget.
type Notifier interface {
	Notify(event string, payload map[string]interface{})
}

// ManagerConfig carries the sizing and risk policy.
type ManagerConfig struct {
	MinTradeSizeSol      float64
	MaxTradeSizeSol      float64
	TradeBalanceFraction float64 // 0 disables balance-fraction sizing
	MinSolReserve        float64
	MaxDailyLossSol      float64
	TargetMultiplier     float64
	StopLossPct          float64
	WalletAddress        string
}

// EntryRequest is a validated candidate handed to OpenPosition.
type EntryRequest struct {
	TokenAddress string
	TokenName    string
	PriceUsd     float64
	Confidence   float64
}

// Manager owns the position set. It sizes entries, enforces the emergency
// stop and daily-loss ceiling, and drives the monitoring loop that closes
// positions on take-profit or stop-loss. Positions are mirrored to the
// store on every transition; memory stays the source of truth within a run.
type Manager struct {
	cfg      ManagerConfig
	router   Router
	prices   PriceSource
	balances BalanceSource
	store    Store
	notifier Notifier

	mu            sync.Mutex
	positions     []*models.Position
	inFlight      map[*models.Position]bool
	dailyLossSol  float64
	tradesToday   int
	emergencyStop bool

	now func() time.Time
}

func NewManager(cfg ManagerConfig, router Router, prices PriceSource, balances BalanceSource, store Store, notifier Notifier) *Manager {
	m := &Manager{
		cfg:      cfg,
		router:   router,
		prices:   prices,
		balances: balances,
		store:    store,
		notifier: notifier,
		inFlight: make(map[*models.Position]bool),
		now:      time.Now,
	}
	m.restore()
	return m
}

// restore reloads open positions and today's counters after a restart.
func (m *Manager) restore() {
	if m.store == nil {
		return
	}

	open, err := m.store.LoadOpenPositions()
	if err != nil {
		log.WithError(err).Error("failed to reload open positions")
	} else {
		m.positions = open
	}

	stat, err := m.store.LoadDailyStat(m.today())
	if err != nil {
		log.WithError(err).Error("failed to reload daily counters")
		return
	}
	if stat != nil {
		m.dailyLossSol = stat.LossSol
		m.tradesToday = stat.Trades
	}

	log.WithFields(log.Fields{
		"open_positions": len(m.positions),
		"daily_loss_sol": m.dailyLossSol,
	}).Info("position state restored")
}

func (m *Manager) today() string {
	return m.now().UTC().Format("2006-01-02")
}

// ComputeTradeSize returns the SOL amount for a new trade. With
// balance-fraction sizing enabled it is a fraction of free balance after
// reserve and committed capital; otherwise confidence interpolates between
// the configured bounds.
func (m *Manager) ComputeTradeSize(ctx context.Context, confidence float64) float64 {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	if m.cfg.TradeBalanceFraction > 0 && m.balances != nil {
		balance, err := m.balances.GetSolBalance(ctx, m.cfg.WalletAddress)
		if err != nil {
			log.WithError(err).Warn("balance query failed, falling back to bounds sizing")
			return m.cfg.MinTradeSizeSol + (m.cfg.MaxTradeSizeSol-m.cfg.MinTradeSizeSol)*confidence
		}

		m.mu.Lock()
		committed := 0.0
		for _, p := range m.positions {
			if p.Status == models.PositionStatusOpen {
				committed += p.AmountSol
			}
		}
		m.mu.Unlock()

		size := (balance - m.cfg.MinSolReserve - committed) * m.cfg.TradeBalanceFraction
		if size < 0 {
			return 0
		}
		return size
	}

	return m.cfg.MinTradeSizeSol + (m.cfg.MaxTradeSizeSol-m.cfg.MinTradeSizeSol)*confidence
}

// OpenPosition sizes and enters a new trade. Returns false without side
// effects when blocked by the emergency stop, the daily-loss ceiling, a
// non-positive size, or router failure.
func (m *Manager) OpenPosition(ctx context.Context, req EntryRequest) bool {
	if req.PriceUsd <= 0 {
		// without a real entry price the position could never hit its
		// exit thresholds
		log.WithFields(log.Fields{
			"token": req.TokenAddress,
			"price": req.PriceUsd,
		}).Warn("entry rejected: no usable entry price")
		return false
	}

	m.mu.Lock()
	if m.emergencyStop {
		m.mu.Unlock()
		log.WithField("token", req.TokenAddress).Warn("entry rejected: emergency stop active")
		return false
	}
	if m.cfg.MaxDailyLossSol > 0 && m.dailyLossSol >= m.cfg.MaxDailyLossSol {
		loss := m.dailyLossSol
		m.mu.Unlock()
		log.WithFields(log.Fields{
			"token":          req.TokenAddress,
			"daily_loss_sol": loss,
		}).Warn("entry rejected: daily loss ceiling reached")
		return false
	}
	m.mu.Unlock()

	size := m.ComputeTradeSize(ctx, req.Confidence)
	if size <= 0 {
		log.WithFields(log.Fields{
			"token":      req.TokenAddress,
			"confidence": req.Confidence,
		}).Warn("entry rejected: computed trade size is zero")
		return false
	}

	result, ok := m.router.Enter(ctx, req.TokenAddress, size)
	if !ok {
		log.WithField("token", req.TokenAddress).Error("entry failed: router reported failure")
		return false
	}

	status := models.PositionStatusOpen
	if result.Simulated {
		status = models.PositionStatusSimulated
	}

	position := &models.Position{
		TokenAddress:     req.TokenAddress,
		TokenName:        req.TokenName,
		EntryPrice:       req.PriceUsd,
		AmountSol:        size,
		TokenAmount:      result.OutAmount,
		TargetMultiplier: m.cfg.TargetMultiplier,
		StopLossPct:      m.cfg.StopLossPct,
		EntryTime:        m.now(),
		Status:           status,
	}

	m.mu.Lock()
	m.positions = append(m.positions, position)
	m.tradesToday++
	m.mu.Unlock()

	m.persistPosition(position)
	m.persistDaily()
	m.recordTrade(&models.TradeRecord{
		TokenAddress: req.TokenAddress,
		Side:         models.TradeSideBuy,
		AmountSol:    size,
		TokenAmount:  result.OutAmount,
		Venue:        result.Venue,
		Signature:    result.Signature,
		Success:      true,
	})
	m.notify("position_opened", map[string]interface{}{
		"token":       req.TokenAddress,
		"name":        req.TokenName,
		"amount_sol":  size,
		"entry_price": req.PriceUsd,
		"status":      status,
	})

	log.WithFields(log.Fields{
		"token":      req.TokenAddress,
		"amount_sol": size,
		"status":     status,
	}).Info("position opened")
	return true
}

// MonitorCycle evaluates every open position once: take profit strictly
// before stop loss, exits delegated to the router. A failed exit leaves the
// position open for the next cycle. Simulated positions are never touched.
func (m *Manager) MonitorCycle(ctx context.Context) {
	m.mu.Lock()
	candidates := make([]*models.Position, 0, len(m.positions))
	for _, p := range m.positions {
		if p.Status != models.PositionStatusOpen || m.inFlight[p] {
			continue
		}
		m.inFlight[p] = true
		candidates = append(candidates, p)
	}
	m.mu.Unlock()

	for _, p := range candidates {
		m.evaluatePosition(ctx, p)

		m.mu.Lock()
		delete(m.inFlight, p)
		m.mu.Unlock()
	}
}

func (m *Manager) evaluatePosition(ctx context.Context, p *models.Position) {
	current, err := m.prices.GetTokenPrice(ctx, p.TokenAddress)
	if err != nil {
		log.WithError(err).WithField("token", p.TokenAddress).Warn("price fetch failed, skipping position")
		return
	}
	if p.EntryPrice <= 0 {
		log.WithField("token", p.TokenAddress).Error("position has no entry price, skipping")
		return
	}

	change := (current - p.EntryPrice) / p.EntryPrice

	// take profit is checked strictly before stop loss
	if current >= p.EntryPrice*p.TargetMultiplier {
		m.exitPosition(ctx, p, current, change, models.ExitReasonTakeProfit)
		return
	}
	if change <= -p.StopLossPct {
		m.exitPosition(ctx, p, current, change, models.ExitReasonStopLoss)
	}
}

func (m *Manager) exitPosition(ctx context.Context, p *models.Position, current, change float64, reason string) {
	result, ok := m.router.Exit(ctx, p.TokenAddress, p.TokenAmount)
	if !ok {
		log.WithFields(log.Fields{
			"token":  p.TokenAddress,
			"reason": reason,
		}).Error("exit failed, position stays open for retry")
		return
	}

	pnl := p.AmountSol * change

	m.mu.Lock()
	p.Status = models.PositionStatusClosed
	p.ExitPrice = current
	p.ExitReason = reason
	p.PnlSol = pnl
	if reason == models.ExitReasonStopLoss && pnl < 0 {
		m.dailyLossSol += -pnl
	}
	m.mu.Unlock()

	m.persistPosition(p)
	m.persistDaily()
	m.recordTrade(&models.TradeRecord{
		TokenAddress: p.TokenAddress,
		Side:         models.TradeSideSell,
		AmountSol:    p.AmountSol + pnl,
		TokenAmount:  p.TokenAmount,
		Venue:        result.Venue,
		Signature:    result.Signature,
		Success:      true,
	})
	m.notify("position_closed", map[string]interface{}{
		"token":      p.TokenAddress,
		"reason":     reason,
		"exit_price": current,
		"pnl_sol":    pnl,
	})

	log.WithFields(log.Fields{
		"token":   p.TokenAddress,
		"reason":  reason,
		"pnl_sol": pnl,
	}).Info("position closed")
}

// Summary reports aggregate position counts and today's risk counters.
func (m *Manager) Summary() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	open, closed := 0, 0
	for _, p := range m.positions {
		switch p.Status {
		case models.PositionStatusOpen:
			open++
		case models.PositionStatusClosed:
			closed++
		}
	}

	return map[string]interface{}{
		"total":        len(m.positions),
		"open":         open,
		"closed":       closed,
		"daily_loss":   m.dailyLossSol,
		"trades_today": m.tradesToday,
	}
}

// Positions returns a snapshot copy of all tracked positions.
func (m *Manager) Positions() []models.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, *p)
	}
	return out
}

// SetEmergencyStop toggles the hard entry block. Monitoring and exits of
// existing positions continue regardless.
func (m *Manager) SetEmergencyStop(stop bool) {
	m.mu.Lock()
	m.emergencyStop = stop
	m.mu.Unlock()

	log.WithField("emergency_stop", stop).Warn("emergency stop flag changed")
	m.notify("emergency_stop", map[string]interface{}{"active": stop})
}

// EmergencyStopped reports whether new entries are blocked.
func (m *Manager) EmergencyStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emergencyStop
}

// ResetDailyCounters zeroes the daily loss and trade counters, run at
// midnight by the scheduler.
func (m *Manager) ResetDailyCounters() {
	m.mu.Lock()
	m.dailyLossSol = 0
	m.tradesToday = 0
	m.mu.Unlock()

	m.persistDaily()
	log.Info("daily counters reset")
}

func (m *Manager) persistPosition(p *models.Position) {
	if m.store == nil {
		return
	}
	if err := m.store.SavePosition(p); err != nil {
		log.WithError(err).WithField("token", p.TokenAddress).Error("failed to persist position")
	}
}

func (m *Manager) persistDaily() {
	if m.store == nil {
		return
	}
	m.mu.Lock()
	loss, trades := m.dailyLossSol, m.tradesToday
	m.mu.Unlock()
	if err := m.store.SaveDailyStat(m.today(), loss, trades); err != nil {
		log.WithError(err).Error("failed to persist daily counters")
	}
}

func (m *Manager) recordTrade(t *models.TradeRecord) {
	if m.store == nil {
		return
	}
	if err := m.store.RecordTrade(t); err != nil {
		log.WithError(err).Error("failed to record trade")
	}
}

func (m *Manager) notify(event string, payload map[string]interface{}) {
	if m.notifier == nil {
		return
	}
	m.notifier.Notify(event, payload)
}
