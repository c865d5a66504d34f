package models

import "time"

// Trade sides.
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// TradeRecord is an audit row for every execution attempt that reached a
// venue, successful or not.
type TradeRecord struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	TokenAddress string    `gorm:"type:varchar(64);index;not null" json:"token_address"`
	Side         string    `gorm:"type:varchar(8);not null" json:"side"`
	AmountSol    float64   `json:"amount_sol"`
	TokenAmount  uint64    `json:"token_amount"`
	Venue        string    `gorm:"type:varchar(32)" json:"venue"`
	Signature    string    `gorm:"type:varchar(128);default:''" json:"signature"`
	Success      bool      `gorm:"index" json:"success"`
	Detail       string    `gorm:"type:text;default:''" json:"detail"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (TradeRecord) TableName() string {
	return "trade_records"
}
