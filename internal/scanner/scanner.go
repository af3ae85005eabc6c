package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/novaluna/payment-engine/internal/chainrpc"
	"github.com/novaluna/payment-engine/internal/model"
	"github.com/novaluna/payment-engine/internal/monitoring"
	"github.com/novaluna/payment-engine/internal/store"
	"github.com/novaluna/payment-engine/internal/utils/logger"
	"github.com/novaluna/payment-engine/internal/verify"
)

// Scanner walks one chain's blocks looking for inbound transfers to the
// merchant address that nobody claimed. Progress is a persisted watermark of
// the last fully processed block, so restarts resume instead of rescanning.
type Scanner struct {
	chain        model.Chain
	db           *gorm.DB
	store        *store.Store
	source       chainrpc.BlockSource
	orchestrator verify.IOrchestrator
	logger       *logger.Logger
	maxRange     uint64
}

func New(
	chain model.Chain,
	db *gorm.DB,
	store *store.Store,
	source chainrpc.BlockSource,
	orchestrator verify.IOrchestrator,
	logger *logger.Logger,
	maxRange uint64,
) *Scanner {
	return &Scanner{
		chain:        chain,
		db:           db,
		store:        store,
		source:       source,
		orchestrator: orchestrator,
		logger:       logger,
		maxRange:     maxRange,
	}
}

// Run scans one bounded batch of blocks. The watermark only advances past a
// block after every transfer in it has been handled, so a crash mid-batch
// replays at most the current block.
func (s *Scanner) Run(ctx context.Context) {
	start := time.Now()
	defer func() {
		monitoring.JobDuration.WithLabelValues("scanner_" + string(s.chain)).Observe(time.Since(start).Seconds())
	}()

	head, err := s.source.LatestBlock(ctx)
	if err != nil {
		s.logger.Error("[Run] failed to fetch chain head", map[string]string{
			"chain": string(s.chain),
			"error": err.Error(),
		})
		return
	}

	from, err := s.nextBlock(head)
	if err != nil {
		s.logger.Error("[Run] failed to load scan watermark", map[string]string{
			"chain": string(s.chain),
			"error": err.Error(),
		})
		return
	}
	if from > head {
		return
	}

	to := from + s.maxRange - 1
	if to > head {
		to = head
	}

	for number := from; number <= to; number++ {
		if ctx.Err() != nil {
			return
		}
		if err := s.scanBlock(ctx, number); err != nil {
			// Stop without advancing; the next cycle retries this block.
			s.logger.Error("[Run] block scan failed", map[string]string{
				"chain": string(s.chain),
				"block": fmt.Sprintf("%d", number),
				"error": err.Error(),
			})
			return
		}

		if err := s.store.ScanWatermark.Set(s.db, s.chain, number); err != nil {
			s.logger.Error("[Run] failed to advance watermark", map[string]string{
				"chain": string(s.chain),
				"block": fmt.Sprintf("%d", number),
				"error": err.Error(),
			})
			return
		}
		monitoring.BlocksScanned.WithLabelValues(string(s.chain)).Inc()
	}
}

// nextBlock returns the first block to scan. A chain seen for the first time
// starts one bounded range below the head rather than at genesis.
func (s *Scanner) nextBlock(head uint64) (uint64, error) {
	watermark, err := s.store.ScanWatermark.Get(s.db, s.chain)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
		if head > s.maxRange {
			return head - s.maxRange, nil
		}
		return 0, nil
	}

	return watermark.BlockHeight + 1, nil
}

func (s *Scanner) scanBlock(ctx context.Context, number uint64) error {
	transfers, err := s.source.InboundTransfers(ctx, number, number)
	if err != nil {
		return err
	}

	for i := range transfers {
		if err := s.handleTransfer(ctx, &transfers[i]); err != nil {
			return err
		}
	}

	return nil
}

func (s *Scanner) handleTransfer(ctx context.Context, transfer *chainrpc.InboundTransfer) error {
	processed, err := s.store.ProcessedReference.Exists(s.db, transfer.Chain, transfer.TxRef)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	s.logger.Info("[Run] discovered inbound transfer", map[string]string{
		"chain":    string(transfer.Chain),
		"txRef":    transfer.TxRef,
		"currency": transfer.Currency,
		"amount":   transfer.Amount.String(),
	})
	monitoring.TransfersDiscovered.WithLabelValues(string(transfer.Chain)).Inc()

	// Synthetic claim for the observed transfer. When a matching user claim
	// row already exists, settling it credits that user; otherwise the
	// deposit is recorded unattributed.
	claim := &model.PaymentClaim{
		Chain:          transfer.Chain,
		Currency:       transfer.Currency,
		ExpectedAmount: transfer.Amount,
		TxRef:          transfer.TxRef,
		CreatedAt:      time.Now(),
	}

	outcome, err := s.orchestrator.VerifyPayment(ctx, claim)
	if err != nil {
		return err
	}

	s.logger.Debug("[Run] transfer processed", map[string]string{
		"chain":   string(transfer.Chain),
		"txRef":   transfer.TxRef,
		"outcome": string(outcome.Status),
	})
	return nil
}
