package tronrpc

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/novaluna/payment-engine/internal/chainrpc"
	"github.com/novaluna/payment-engine/internal/model"
	"github.com/novaluna/payment-engine/internal/utils/logger"
)

// TronRPC is a stub adapter: TRC-20 claims stay pending until their expiry
// window closes.
type TronRPC struct {
	logger *logger.Logger
}

func New(logger *logger.Logger) chainrpc.Adapter {
	return &TronRPC{logger: logger}
}

func (t *TronRPC) Chain() model.Chain {
	return model.ChainTron
}

func (t *TronRPC) Verify(ctx context.Context, currency, txRef string, expectedAmount decimal.Decimal) (*model.VerificationResult, error) {
	t.logger.Debug("[TronRPC][Verify] verification not implemented", map[string]string{
		"txRef": txRef,
	})
	return &model.VerificationResult{
		Reason:  model.ReasonUnavailable,
		Message: "tron verification not yet supported",
	}, nil
}
