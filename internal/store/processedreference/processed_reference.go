package processedreference

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

// TryClaim relies on the unique (chain, tx_ref) index: the insert is a no-op
// for every caller but the first, and RowsAffected tells them apart.
func (s *store) TryClaim(tx *gorm.DB, chain model.Chain, txRef string) (bool, error) {
	ref := model.ProcessedReference{
		Chain:      chain,
		TxRef:      txRef,
		CreditedAt: time.Now(),
	}
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ref)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *store) Exists(tx *gorm.DB, chain model.Chain, txRef string) (bool, error) {
	var count int64
	err := tx.Model(&model.ProcessedReference{}).
		Where("chain = ? AND tx_ref = ?", chain, txRef).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
