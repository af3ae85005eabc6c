package user

import (
	"gorm.io/gorm"

	"github.com/shopspring/decimal"

	"github.com/novaluna/payment-engine/internal/model"
)

type IStore interface {
	Get(tx *gorm.DB, id int64) (*model.User, error)
	// Credit adds amount to the user's balance, creating the row when the
	// user has never deposited before.
	Credit(tx *gorm.DB, id int64, amount decimal.Decimal) error
}
