package trading

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"memetrader/internal/models"
)

// GormStore persists positions, trades and daily counters to Postgres.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) SavePosition(p *models.Position) error {
	return s.db.Save(p).Error
}

func (s *GormStore) LoadOpenPositions() ([]*models.Position, error) {
	var positions []*models.Position
	err := s.db.Where("status = ?", models.PositionStatusOpen).
		Order("entry_time asc").
		Find(&positions).Error
	return positions, err
}

func (s *GormStore) RecordTrade(t *models.TradeRecord) error {
	return s.db.Create(t).Error
}

func (s *GormStore) SaveSignalRecord(r *models.SignalRecord) error {
	return s.db.Create(r).Error
}

func (s *GormStore) SaveDailyStat(day string, lossSol float64, trades int) error {
	stat := models.DailyStat{Day: day, LossSol: lossSol, Trades: trades}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{"loss_sol", "trades", "updated_at"}),
	}).Create(&stat).Error
}

func (s *GormStore) LoadDailyStat(day string) (*models.DailyStat, error) {
	var stat models.DailyStat
	err := s.db.Where("day = ?", day).First(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}
