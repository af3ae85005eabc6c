package ledger

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/novaluna/payment-engine/internal/model"
)

// IGateway is the only writer of balance and transaction state. Crediting
// calls must be idempotent for the engine's at-most-once guarantee to hold:
// CreditAndComplete on a non-pending transaction is a no-op.
type IGateway interface {
	GetPendingTransactions(tx *gorm.DB, chain model.Chain, limit int) ([]model.LedgerTransaction, error)
	// CreditAndComplete transitions the transaction to completed and credits
	// the owning user's balance by amount, atomically within tx.
	CreditAndComplete(tx *gorm.DB, transactionID int, amount decimal.Decimal) error
	// RecordCompletedDeposit writes a completed deposit for a transfer the
	// passive scanner observed without a prior claim, crediting the user when
	// one is attributed.
	RecordCompletedDeposit(tx *gorm.DB, claim *model.PaymentClaim, result *model.VerificationResult) error
	MarkExpired(tx *gorm.DB, transactionID int) error
	MarkFailed(tx *gorm.DB, transactionID int, reason string) error
}
