package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/novaluna/payment-engine/internal/model"
	"github.com/novaluna/payment-engine/internal/store"
	"github.com/novaluna/payment-engine/internal/utils/logger"
)

type gateway struct {
	store  *store.Store
	logger *logger.Logger
}

func New(store *store.Store, logger *logger.Logger) IGateway {
	return &gateway{
		store:  store,
		logger: logger,
	}
}

func (g *gateway) GetPendingTransactions(tx *gorm.DB, chain model.Chain, limit int) ([]model.LedgerTransaction, error) {
	return g.store.LedgerTransaction.GetPendingByChain(tx, chain, limit)
}

func (g *gateway) CreditAndComplete(tx *gorm.DB, transactionID int, amount decimal.Decimal) error {
	var ledgerTx model.LedgerTransaction
	if err := tx.Where("id = ?", transactionID).First(&ledgerTx).Error; err != nil {
		return err
	}

	if ledgerTx.Status != model.TransactionStatusPending {
		// Terminal states are immutable; a second credit must never apply.
		g.logger.Info("[CreditAndComplete] transaction already settled", map[string]string{
			"transaction_id": fmt.Sprintf("%d", transactionID),
			"status":         string(ledgerTx.Status),
		})
		return nil
	}

	if err := g.store.LedgerTransaction.MarkCompleted(tx, transactionID); err != nil {
		return err
	}

	if ledgerTx.UserID == 0 {
		// Unattributed deposit: recorded in the ledger, no balance to credit.
		return nil
	}

	return g.store.User.Credit(tx, ledgerTx.UserID, amount)
}

func (g *gateway) RecordCompletedDeposit(tx *gorm.DB, claim *model.PaymentClaim, result *model.VerificationResult) error {
	now := time.Now()
	_, err := g.store.LedgerTransaction.Create(tx, &model.LedgerTransaction{
		UserID:        claim.UserID,
		Type:          model.TransactionTypeDeposit,
		TxRef:         claim.TxRef,
		Chain:         claim.Chain,
		Currency:      claim.Currency,
		Amount:        result.Amount,
		Status:        model.TransactionStatusCompleted,
		Confirmations: result.Confirmations,
		CompletedAt:   &now,
	})
	if err != nil {
		return err
	}

	if claim.UserID == 0 {
		return nil
	}

	return g.store.User.Credit(tx, claim.UserID, result.Amount)
}

func (g *gateway) MarkExpired(tx *gorm.DB, transactionID int) error {
	return g.store.LedgerTransaction.MarkExpired(tx, transactionID)
}

func (g *gateway) MarkFailed(tx *gorm.DB, transactionID int, reason string) error {
	return g.store.LedgerTransaction.MarkFailed(tx, transactionID, reason)
}

// IsNotFound reports whether err is the ledger's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
