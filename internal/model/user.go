package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID            int64           `json:"id" gorm:"primaryKey"`
	Balance       decimal.Decimal `json:"balance" gorm:"column:balance;type:numeric(36,18)"`
	TotalDeposits decimal.Decimal `json:"total_deposits" gorm:"column:total_deposits;type:numeric(36,18)"`
	LastDepositAt *time.Time      `json:"last_deposit_at,omitempty" gorm:"column:last_deposit_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
