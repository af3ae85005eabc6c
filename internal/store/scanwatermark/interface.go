package scanwatermark

import (
	"gorm.io/gorm"

	"github.com/novaluna/payment-engine/internal/model"
)

type IStore interface {
	Get(tx *gorm.DB, chain model.Chain) (*model.ScanWatermark, error)
	Set(tx *gorm.DB, chain model.Chain, blockHeight uint64) error
}
