package verify

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/novaluna/payment-engine/internal/chainrpc"
	"github.com/novaluna/payment-engine/internal/events"
	"github.com/novaluna/payment-engine/internal/ledger"
	"github.com/novaluna/payment-engine/internal/model"
	"github.com/novaluna/payment-engine/internal/monitoring"
	"github.com/novaluna/payment-engine/internal/registry"
	"github.com/novaluna/payment-engine/internal/store"
	"github.com/novaluna/payment-engine/internal/utils/logger"
)

type orchestrator struct {
	db         *gorm.DB
	store      *store.Store
	gateway    ledger.IGateway
	adapters   map[model.Chain]chainrpc.Adapter
	registry   *registry.Registry
	publisher  events.IPublisher
	logger     *logger.Logger
	rpcTimeout time.Duration
}

func New(
	db *gorm.DB,
	store *store.Store,
	gateway ledger.IGateway,
	adapters map[model.Chain]chainrpc.Adapter,
	registry *registry.Registry,
	publisher events.IPublisher,
	logger *logger.Logger,
	rpcTimeout time.Duration,
) IOrchestrator {
	return &orchestrator{
		db:         db,
		store:      store,
		gateway:    gateway,
		adapters:   adapters,
		registry:   registry,
		publisher:  publisher,
		logger:     logger,
		rpcTimeout: rpcTimeout,
	}
}

func (o *orchestrator) VerifyPayment(ctx context.Context, claim *model.PaymentClaim) (*Outcome, error) {
	// Cheap short-circuit before any chain I/O. The authoritative duplicate
	// check is TryClaim inside the credit transaction.
	processed, err := o.store.ProcessedReference.Exists(o.db, claim.Chain, claim.TxRef)
	if err != nil {
		return nil, err
	}
	if processed {
		monitoring.VerificationOutcomes.WithLabelValues(string(claim.Chain), string(OutcomeAlreadyProcessed)).Inc()
		return &Outcome{
			Status:  OutcomeAlreadyProcessed,
			Message: "transaction reference already credited",
		}, nil
	}

	adapter, ok := o.adapters[claim.Chain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", chainrpc.ErrUnsupportedChain, claim.Chain)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, o.rpcTimeout)
	defer cancel()

	result, err := adapter.Verify(verifyCtx, claim.Currency, claim.TxRef, claim.ExpectedAmount)
	if err != nil {
		if chainrpc.IsRetryable(err) {
			o.logger.Error("[VerifyPayment] chain unreachable, will retry", map[string]string{
				"chain": string(claim.Chain),
				"txRef": claim.TxRef,
				"error": err.Error(),
			})
			monitoring.VerificationOutcomes.WithLabelValues(string(claim.Chain), string(OutcomePendingRetry)).Inc()
			return &Outcome{
				Status:  OutcomePendingRetry,
				Message: "chain temporarily unreachable",
			}, nil
		}
		return nil, err
	}

	if result.Verified {
		return o.credit(claim, result)
	}

	if result.Reason.Definitive() && result.Confirmations >= o.registry.ConfirmationsRequired(claim.Chain) {
		return o.fail(claim, result)
	}

	o.refreshConfirmations(claim, result)
	monitoring.VerificationOutcomes.WithLabelValues(string(claim.Chain), string(OutcomeAwaitingConfirmation)).Inc()
	return &Outcome{
		Status:  OutcomeAwaitingConfirmation,
		Result:  result,
		Message: result.Message,
	}, nil
}

// credit settles a verified payment. The dedup claim and the balance credit
// commit in one database transaction, so a crash between them cannot leave a
// credited balance without its claim or vice versa.
func (o *orchestrator) credit(claim *model.PaymentClaim, result *model.VerificationResult) (*Outcome, error) {
	var duplicate bool

	err := store.DoInTx(o.db, func(tx *gorm.DB) error {
		claimed, err := o.store.ProcessedReference.TryClaim(tx, claim.Chain, claim.TxRef)
		if err != nil {
			return err
		}
		if !claimed {
			duplicate = true
			return nil
		}

		ledgerTx, err := o.store.LedgerTransaction.GetByReference(tx, claim.Chain, claim.TxRef)
		if err != nil {
			if !ledger.IsNotFound(err) {
				return err
			}
			// No prior claim row: a scanner-discovered transfer.
			return o.gateway.RecordCompletedDeposit(tx, claim, result)
		}

		return o.gateway.CreditAndComplete(tx, ledgerTx.ID, result.Amount)
	})
	if err != nil {
		return nil, err
	}

	if duplicate {
		monitoring.VerificationOutcomes.WithLabelValues(string(claim.Chain), string(OutcomeAlreadyProcessed)).Inc()
		return &Outcome{
			Status:  OutcomeAlreadyProcessed,
			Result:  result,
			Message: "transaction reference already credited",
		}, nil
	}

	o.logger.Info("[VerifyPayment] payment credited", map[string]string{
		"chain":    string(claim.Chain),
		"txRef":    claim.TxRef,
		"currency": claim.Currency,
		"amount":   result.Amount.String(),
	})
	monitoring.VerificationOutcomes.WithLabelValues(string(claim.Chain), string(OutcomeCompleted)).Inc()
	monitoring.CreditsApplied.WithLabelValues(string(claim.Chain), claim.Currency).Inc()

	o.publisher.Publish(events.NewEvent(
		events.EventPaymentCompleted,
		claim.UserID, claim.Chain, claim.TxRef, claim.Currency, result.Amount, "",
	))

	return &Outcome{
		Status:  OutcomeCompleted,
		Result:  result,
		Message: "payment verified and credited",
	}, nil
}

// fail marks a claim failed for a mismatch that more confirmations cannot
// cure.
func (o *orchestrator) fail(claim *model.PaymentClaim, result *model.VerificationResult) (*Outcome, error) {
	ledgerTx, err := o.store.LedgerTransaction.GetByReference(o.db, claim.Chain, claim.TxRef)
	if err != nil && !ledger.IsNotFound(err) {
		return nil, err
	}
	if err == nil {
		if err := o.gateway.MarkFailed(o.db, ledgerTx.ID, string(result.Reason)); err != nil {
			return nil, err
		}
	}

	o.logger.Info("[VerifyPayment] payment failed verification", map[string]string{
		"chain":  string(claim.Chain),
		"txRef":  claim.TxRef,
		"reason": string(result.Reason),
	})
	monitoring.VerificationOutcomes.WithLabelValues(string(claim.Chain), string(OutcomeFailed)).Inc()

	o.publisher.Publish(events.NewEvent(
		events.EventPaymentFailed,
		claim.UserID, claim.Chain, claim.TxRef, claim.Currency, claim.ExpectedAmount, string(result.Reason),
	))

	return &Outcome{
		Status:  OutcomeFailed,
		Result:  result,
		Message: result.Message,
	}, nil
}

// refreshConfirmations records observed progress on a still-pending claim so
// the status endpoint can report it. Best effort.
func (o *orchestrator) refreshConfirmations(claim *model.PaymentClaim, result *model.VerificationResult) {
	if result.Confirmations == 0 {
		return
	}

	ledgerTx, err := o.store.LedgerTransaction.GetByReference(o.db, claim.Chain, claim.TxRef)
	if err != nil {
		return
	}

	if err := o.store.LedgerTransaction.UpdateConfirmations(o.db, ledgerTx.ID, result.Confirmations); err != nil {
		o.logger.Error("[VerifyPayment] failed to update confirmations", map[string]string{
			"txRef": claim.TxRef,
			"error": err.Error(),
		})
	}
}
