package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypePayment    TransactionType = "payment"
	TransactionTypeBonus      TransactionType = "bonus"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusExpired   TransactionStatus = "expired"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Terminal reports whether no further status transition is allowed.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case TransactionStatusCompleted, TransactionStatusExpired, TransactionStatusFailed:
		return true
	}
	return false
}

type LedgerTransaction struct {
	ID            int               `json:"id" gorm:"primaryKey"`
	UserID        int64             `json:"user_id" gorm:"column:user_id;index"`
	Type          TransactionType   `json:"type" gorm:"column:type;type:varchar(20)"`
	TxRef         string            `json:"tx_ref" gorm:"column:tx_ref;type:varchar(255);uniqueIndex:idx_ledger_transactions_chain_tx_ref"`
	Chain         Chain             `json:"chain" gorm:"column:chain;type:varchar(20);uniqueIndex:idx_ledger_transactions_chain_tx_ref"`
	Currency      string            `json:"currency" gorm:"column:currency;type:varchar(20)"`
	Amount        decimal.Decimal   `json:"amount" gorm:"column:amount;type:numeric(36,18)"`
	Status        TransactionStatus `json:"status" gorm:"column:status;type:varchar(20);default:'pending';index"`
	Confirmations int64             `json:"confirmations" gorm:"column:confirmations;default:0"`
	FailureReason string            `json:"failure_reason,omitempty" gorm:"column:failure_reason;type:varchar(255)"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty" gorm:"column:expires_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty" gorm:"column:completed_at"`
}

func (LedgerTransaction) TableName() string {
	return "ledger_transactions"
}
