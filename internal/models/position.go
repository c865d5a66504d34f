package models

import "time"

// Position status values. Transitions are monotonic: open positions move to
// closed exactly once; simulated positions are terminal from creation.
const (
	PositionStatusOpen      = "open"
	PositionStatusClosed    = "closed"
	PositionStatusSimulated = "simulated"
)

// Exit reasons recorded when a position is closed.
const (
	ExitReasonTakeProfit = "take_profit"
	ExitReasonStopLoss   = "stop_loss"
)

type Position struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	TokenAddress     string    `gorm:"type:varchar(64);index;not null" json:"token_address"`
	TokenName        string    `gorm:"type:varchar(128)" json:"token_name"`
	EntryPrice       float64   `gorm:"not null" json:"entry_price"`
	AmountSol        float64   `gorm:"not null" json:"amount_sol"`
	TokenAmount      uint64    `json:"token_amount"`
	TargetMultiplier float64   `gorm:"default:2.0" json:"target_multiplier"`
	StopLossPct      float64   `gorm:"default:0.3" json:"stop_loss_pct"`
	EntryTime        time.Time `json:"entry_time"`
	Status           string    `gorm:"type:varchar(16);index;default:'open'" json:"status"`
	ExitPrice        float64   `json:"exit_price"`
	ExitReason       string    `gorm:"type:varchar(32);default:''" json:"exit_reason"`
	PnlSol           float64   `json:"pnl_sol"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Position) TableName() string {
	return "positions"
}
