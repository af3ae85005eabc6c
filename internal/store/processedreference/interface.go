package processedreference

import (
	"gorm.io/gorm"

	"github.com/novaluna/payment-engine/internal/model"
)

type IStore interface {
	// TryClaim atomically records the reference as credited. It returns true
	// only for the first caller; concurrent claims for the same reference
	// cannot both succeed.
	TryClaim(tx *gorm.DB, chain model.Chain, txRef string) (bool, error)
	Exists(tx *gorm.DB, chain model.Chain, txRef string) (bool, error)
}
