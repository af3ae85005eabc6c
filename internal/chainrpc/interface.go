package chainrpc

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/novaluna/payment-engine/internal/model"
)

// Adapter is the per-chain verification contract. Implementations resolve the
// transaction on their network, match the recipient against the merchant
// address, compare the amount within the configured tolerance and count
// confirmations. Transport failures are returned as *TransportError; a
// transaction that simply does not verify is a result, not an error.
type Adapter interface {
	Chain() model.Chain
	Verify(ctx context.Context, currency, txRef string, expectedAmount decimal.Decimal) (*model.VerificationResult, error)
}

// InboundTransfer is a transfer to a merchant address observed by walking
// blocks, before any user claimed it.
type InboundTransfer struct {
	Chain       model.Chain
	TxRef       string
	Currency    string
	Amount      decimal.Decimal
	FromAddress string
	ToAddress   string
	BlockNumber uint64
}

// BlockSource exposes the block-walking primitives the passive scanner needs.
type BlockSource interface {
	LatestBlock(ctx context.Context) (uint64, error)
	// InboundTransfers returns every native and token transfer to the
	// merchant address within [fromBlock, toBlock].
	InboundTransfers(ctx context.Context, fromBlock, toBlock uint64) ([]InboundTransfer, error)
}
