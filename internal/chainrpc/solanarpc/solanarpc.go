package solanarpc

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/novaluna/payment-engine/internal/chainrpc"
	"github.com/novaluna/payment-engine/internal/model"
	"github.com/novaluna/payment-engine/internal/utils/logger"
)

// SolanaRPC is a stub adapter: Solana claims stay pending until their expiry
// window closes. Implementing SPL transfer verification fills this in without
// touching the orchestrator.
type SolanaRPC struct {
	logger *logger.Logger
}

func New(logger *logger.Logger) chainrpc.Adapter {
	return &SolanaRPC{logger: logger}
}

func (s *SolanaRPC) Chain() model.Chain {
	return model.ChainSolana
}

func (s *SolanaRPC) Verify(ctx context.Context, currency, txRef string, expectedAmount decimal.Decimal) (*model.VerificationResult, error) {
	s.logger.Debug("[SolanaRPC][Verify] verification not implemented", map[string]string{
		"txRef": txRef,
	})
	return &model.VerificationResult{
		Reason:  model.ReasonUnavailable,
		Message: "solana verification not yet supported",
	}, nil
}
