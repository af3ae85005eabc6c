package ledgertransaction

import (
	"gorm.io/gorm"

	"github.com/novaluna/payment-engine/internal/model"
)

type IStore interface {
	Create(tx *gorm.DB, ledgerTx *model.LedgerTransaction) (*model.LedgerTransaction, error)
	GetByReference(tx *gorm.DB, chain model.Chain, txRef string) (*model.LedgerTransaction, error)
	GetPendingByChain(tx *gorm.DB, chain model.Chain, limit int) ([]model.LedgerTransaction, error)
	UpdateConfirmations(tx *gorm.DB, id int, confirmations int64) error
	MarkCompleted(tx *gorm.DB, id int) error
	MarkExpired(tx *gorm.DB, id int) error
	MarkFailed(tx *gorm.DB, id int, reason string) error
}
