package reconciler

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/novaluna/payment-engine/internal/events"
	"github.com/novaluna/payment-engine/internal/ledger"
	"github.com/novaluna/payment-engine/internal/model"
	"github.com/novaluna/payment-engine/internal/monitoring"
	"github.com/novaluna/payment-engine/internal/registry"
	"github.com/novaluna/payment-engine/internal/store"
	"github.com/novaluna/payment-engine/internal/utils/logger"
	"github.com/novaluna/payment-engine/internal/verify"
)

const defaultBatchSize = 50

// Reconciler drives every pending claim to a terminal state: it re-verifies
// claims whose confirmations may have accrued, expires claims past their
// window, and settles claims whose credit landed out of band.
type Reconciler struct {
	db           *gorm.DB
	store        *store.Store
	gateway      ledger.IGateway
	orchestrator verify.IOrchestrator
	registry     *registry.Registry
	publisher    events.IPublisher
	logger       *logger.Logger
	batchSize    int
}

func New(
	db *gorm.DB,
	store *store.Store,
	gateway ledger.IGateway,
	orchestrator verify.IOrchestrator,
	registry *registry.Registry,
	publisher events.IPublisher,
	logger *logger.Logger,
) *Reconciler {
	return &Reconciler{
		db:           db,
		store:        store,
		gateway:      gateway,
		orchestrator: orchestrator,
		registry:     registry,
		publisher:    publisher,
		logger:       logger,
		batchSize:    defaultBatchSize,
	}
}

// Run processes one reconciliation cycle across all configured chains. A
// failure on one claim never blocks the rest of the batch.
func (r *Reconciler) Run(ctx context.Context) {
	start := time.Now()
	defer func() {
		monitoring.JobDuration.WithLabelValues("reconciler").Observe(time.Since(start).Seconds())
	}()

	for _, chain := range r.registry.Chains() {
		if ctx.Err() != nil {
			return
		}
		if err := r.reconcileChain(ctx, chain); err != nil {
			r.logger.Error("[Run] failed to reconcile chain", map[string]string{
				"chain": string(chain),
				"error": err.Error(),
			})
		}
	}
}

func (r *Reconciler) reconcileChain(ctx context.Context, chain model.Chain) error {
	pending, err := r.gateway.GetPendingTransactions(r.db, chain, r.batchSize)
	if err != nil {
		return err
	}

	for i := range pending {
		if ctx.Err() != nil {
			return nil
		}
		if err := r.reconcile(ctx, &pending[i]); err != nil {
			r.logger.Error("[Run] failed to reconcile transaction", map[string]string{
				"chain": string(chain),
				"txRef": pending[i].TxRef,
				"error": err.Error(),
			})
		}
	}

	return nil
}

func (r *Reconciler) reconcile(ctx context.Context, ledgerTx *model.LedgerTransaction) error {
	// A claimed reference with a still-pending row means an earlier settle was
	// interrupted after the dedup claim committed. Finish the credit before
	// the expiry check: the payment did verify.
	credited, err := r.store.ProcessedReference.Exists(r.db, ledgerTx.Chain, ledgerTx.TxRef)
	if err != nil {
		return err
	}
	if credited {
		return r.settle(ledgerTx)
	}

	if ledgerTx.ExpiresAt != nil && time.Now().After(*ledgerTx.ExpiresAt) {
		return r.expire(ledgerTx)
	}

	claim := &model.PaymentClaim{
		UserID:         ledgerTx.UserID,
		Chain:          ledgerTx.Chain,
		Currency:       ledgerTx.Currency,
		ExpectedAmount: ledgerTx.Amount,
		TxRef:          ledgerTx.TxRef,
		CreatedAt:      ledgerTx.CreatedAt,
	}

	outcome, err := r.orchestrator.VerifyPayment(ctx, claim)
	if err != nil {
		return err
	}

	r.logger.Debug("[Run] reconciled pending transaction", map[string]string{
		"chain":   string(ledgerTx.Chain),
		"txRef":   ledgerTx.TxRef,
		"outcome": string(outcome.Status),
	})
	return nil
}

func (r *Reconciler) settle(ledgerTx *model.LedgerTransaction) error {
	err := store.DoInTx(r.db, func(tx *gorm.DB) error {
		return r.gateway.CreditAndComplete(tx, ledgerTx.ID, ledgerTx.Amount)
	})
	if err != nil {
		return err
	}

	r.logger.Info("[Run] settled interrupted credit", map[string]string{
		"chain":          string(ledgerTx.Chain),
		"txRef":          ledgerTx.TxRef,
		"transaction_id": fmt.Sprintf("%d", ledgerTx.ID),
	})

	r.publisher.Publish(events.NewEvent(
		events.EventPaymentCompleted,
		ledgerTx.UserID, ledgerTx.Chain, ledgerTx.TxRef, ledgerTx.Currency, ledgerTx.Amount, "",
	))
	return nil
}

func (r *Reconciler) expire(ledgerTx *model.LedgerTransaction) error {
	if err := r.gateway.MarkExpired(r.db, ledgerTx.ID); err != nil {
		return err
	}

	r.logger.Info("[Run] expired stale claim", map[string]string{
		"chain": string(ledgerTx.Chain),
		"txRef": ledgerTx.TxRef,
	})

	r.publisher.Publish(events.NewEvent(
		events.EventPaymentExpired,
		ledgerTx.UserID, ledgerTx.Chain, ledgerTx.TxRef, ledgerTx.Currency, ledgerTx.Amount, "",
	))
	return nil
}
