package user

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/novaluna/payment-engine/internal/model"
)

type store struct {
}

func New() IStore {
	return &store{}
}

func (s *store) Get(tx *gorm.DB, id int64) (*model.User, error) {
	var u model.User
	result := tx.Where("id = ?", id).First(&u)
	if result.Error != nil {
		return nil, result.Error
	}
	return &u, nil
}

// Credit upserts in one statement and increments in SQL. Two transactions
// crediting the same user for different references must both land; a
// read-modify-write in Go loses one of them under READ COMMITTED.
func (s *store) Credit(tx *gorm.DB, id int64, amount decimal.Decimal) error {
	now := time.Now()
	u := model.User{
		ID:            id,
		Balance:       amount,
		TotalDeposits: amount,
		LastDepositAt: &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"balance":         gorm.Expr("users.balance + ?", amount),
			"total_deposits":  gorm.Expr("users.total_deposits + ?", amount),
			"last_deposit_at": now,
			"updated_at":      now,
		}),
	}).Create(&u).Error
}
