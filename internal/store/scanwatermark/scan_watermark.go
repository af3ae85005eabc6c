package scanwatermark

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/novaluna/payment-engine/internal/model"
)

type store struct {
}

func New() IStore {
	return &store{}
}

func (s *store) Get(tx *gorm.DB, chain model.Chain) (*model.ScanWatermark, error) {
	var watermark model.ScanWatermark
	result := tx.Where("chain = ?", chain).First(&watermark)
	if result.Error != nil {
		return nil, result.Error
	}
	return &watermark, nil
}

func (s *store) Set(tx *gorm.DB, chain model.Chain, blockHeight uint64) error {
	watermark := model.ScanWatermark{
		Chain:       chain,
		BlockHeight: blockHeight,
		UpdatedAt:   time.Now(),
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chain"}},
		DoUpdates: clause.AssignmentColumns([]string{"block_height", "updated_at"}),
	}).Create(&watermark).Error
}
