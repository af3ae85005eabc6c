package ledgertransaction

import (
	"time"

	"gorm.io/gorm"

	"github.com/novaluna/payment-engine/internal/model"
)

type store struct {
}

func New() IStore {
	return &store{}
}

func (s *store) Create(tx *gorm.DB, ledgerTx *model.LedgerTransaction) (*model.LedgerTransaction, error) {
	ledgerTx.CreatedAt = time.Now()
	ledgerTx.UpdatedAt = time.Now()
	return ledgerTx, tx.Create(ledgerTx).Error
}

func (s *store) GetByReference(tx *gorm.DB, chain model.Chain, txRef string) (*model.LedgerTransaction, error) {
	var ledgerTx model.LedgerTransaction
	result := tx.Where("chain = ? AND tx_ref = ?", chain, txRef).First(&ledgerTx)
	if result.Error != nil {
		return nil, result.Error
	}
	return &ledgerTx, nil
}

// GetPendingByChain returns pending transactions oldest-first, capped by
// limit. Remaining rows wait for the next reconciliation cycle.
func (s *store) GetPendingByChain(tx *gorm.DB, chain model.Chain, limit int) ([]model.LedgerTransaction, error) {
	var pendingTxs []model.LedgerTransaction
	err := tx.Where("chain = ? AND status = ?", chain, model.TransactionStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&pendingTxs).Error
	return pendingTxs, err
}

func (s *store) UpdateConfirmations(tx *gorm.DB, id int, confirmations int64) error {
	return tx.Model(&model.LedgerTransaction{}).
		Where("id = ? AND status = ?", id, model.TransactionStatusPending).
		Updates(map[string]interface{}{
			"confirmations": confirmations,
			"updated_at":    time.Now(),
		}).Error
}

// The status guards below only transition rows still in pending: completed,
// expired and failed are terminal.

func (s *store) MarkCompleted(tx *gorm.DB, id int) error {
	return tx.Model(&model.LedgerTransaction{}).
		Where("id = ? AND status = ?", id, model.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":       model.TransactionStatusCompleted,
			"completed_at": time.Now(),
			"updated_at":   time.Now(),
		}).Error
}

func (s *store) MarkExpired(tx *gorm.DB, id int) error {
	return tx.Model(&model.LedgerTransaction{}).
		Where("id = ? AND status = ?", id, model.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":     model.TransactionStatusExpired,
			"updated_at": time.Now(),
		}).Error
}

func (s *store) MarkFailed(tx *gorm.DB, id int, reason string) error {
	return tx.Model(&model.LedgerTransaction{}).
		Where("id = ? AND status = ?", id, model.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":         model.TransactionStatusFailed,
			"failure_reason": reason,
			"updated_at":     time.Now(),
		}).Error
}
