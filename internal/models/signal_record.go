package models

import (
	"encoding/json"
	"time"
)

// SignalRecord logs the outcome of every signal validation.
type SignalRecord struct {
	ID           uint            `gorm:"primarykey" json:"id"`
	TokenAddress string          `gorm:"type:varchar(64);index;not null" json:"token_address"`
	Source       string          `gorm:"type:varchar(64)" json:"source"`
	Score        int             `json:"score"`
	IsValid      bool            `gorm:"index" json:"is_valid"`
	Checks       json.RawMessage `gorm:"type:jsonb" json:"checks"`
	Warnings     string          `gorm:"type:text;default:''" json:"warnings"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

func (SignalRecord) TableName() string {
	return "signal_records"
}
