package models

import "time"

// DailyStat accumulates per-day realized loss and trade counts so the
// daily-loss ceiling survives process restarts.
type DailyStat struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Day       string    `gorm:"type:varchar(10);uniqueIndex;not null" json:"day"` // YYYY-MM-DD
	LossSol   float64   `json:"loss_sol"`
	Trades    int       `json:"trades"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (DailyStat) TableName() string {
	return "daily_stats"
}
