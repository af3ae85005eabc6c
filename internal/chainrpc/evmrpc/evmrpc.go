package evmrpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/novaluna/payment-engine/internal/chainrpc"
	"github.com/novaluna/payment-engine/internal/model"
	"github.com/novaluna/payment-engine/internal/registry"
	"github.com/novaluna/payment-engine/internal/utils/logger"
)

const nativeDecimals = 18

// Head height is cached briefly so a burst of verifications does not turn
// into a burst of eth_blockNumber calls.
const headCacheTTL = 5 * time.Second

type EvmRPC struct {
	chain     model.Chain
	client    ethClient
	registry  *registry.Registry
	logger    *logger.Logger
	headCache *gocache.Cache
}

func New(chain model.Chain, endpoint string, registry *registry.Registry, logger *logger.Logger) (IEvmRPC, error) {
	client, err := ethclient.Dial(endpoint)
	if err != nil {
		return nil, err
	}

	return &EvmRPC{
		chain:     chain,
		client:    client,
		registry:  registry,
		logger:    logger,
		headCache: gocache.New(headCacheTTL, time.Minute),
	}, nil
}

func (e *EvmRPC) Chain() model.Chain {
	return e.chain
}

func (e *EvmRPC) Verify(ctx context.Context, currency, txRef string, expectedAmount decimal.Decimal) (*model.VerificationResult, error) {
	merchant, ok := e.registry.MerchantAddress(e.chain)
	if !ok {
		return nil, fmt.Errorf("%w: no merchant address for %s", chainrpc.ErrUnsupportedChain, e.chain)
	}

	if e.registry.IsNative(e.chain, currency) {
		return e.verifyNative(ctx, merchant, txRef, expectedAmount)
	}
	return e.verifyToken(ctx, merchant, currency, txRef, expectedAmount)
}

func (e *EvmRPC) verifyNative(ctx context.Context, merchant, txRef string, expectedAmount decimal.Decimal) (*model.VerificationResult, error) {
	txHash := common.HexToHash(txRef)

	tx, isPending, err := e.client.TransactionByHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return notFoundResult(), nil
		}
		return nil, &chainrpc.TransportError{Chain: e.chain, Op: "TransactionByHash", Err: err}
	}
	if isPending {
		return unminedResult(), nil
	}

	receipt, err := e.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return unminedResult(), nil
		}
		return nil, &chainrpc.TransportError{Chain: e.chain, Op: "TransactionReceipt", Err: err}
	}

	confirmations, err := e.confirmations(ctx, receipt.BlockNumber.Uint64())
	if err != nil {
		return nil, err
	}

	result := &model.VerificationResult{
		Confirmations: confirmations,
		BlockNumber:   receipt.BlockNumber.Uint64(),
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		result.Reason = model.ReasonReverted
		result.Message = "transaction reverted on-chain"
		return result, nil
	}

	if tx.To() == nil || !strings.EqualFold(tx.To().Hex(), merchant) {
		result.Reason = model.ReasonWrongRecipient
		result.Message = "transaction not sent to merchant address"
		if tx.To() != nil {
			result.ToAddress = tx.To().Hex()
		}
		return result, nil
	}

	result.Amount = decimal.NewFromBigInt(tx.Value(), -nativeDecimals)
	result.ToAddress = tx.To().Hex()
	if sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx); err == nil {
		result.FromAddress = sender.Hex()
	}

	e.classify(result, expectedAmount, e.chain.NativeCurrency())
	return result, nil
}

func (e *EvmRPC) verifyToken(ctx context.Context, merchant, currency, txRef string, expectedAmount decimal.Decimal) (*model.VerificationResult, error) {
	token, ok := e.registry.TokenFor(e.chain, currency)
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", chainrpc.ErrUnsupportedCurrency, currency, e.chain)
	}

	receipt, err := e.client.TransactionReceipt(ctx, common.HexToHash(txRef))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return unminedResult(), nil
		}
		return nil, &chainrpc.TransportError{Chain: e.chain, Op: "TransactionReceipt", Err: err}
	}

	confirmations, err := e.confirmations(ctx, receipt.BlockNumber.Uint64())
	if err != nil {
		return nil, err
	}

	result := &model.VerificationResult{
		Confirmations: confirmations,
		BlockNumber:   receipt.BlockNumber.Uint64(),
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		result.Reason = model.ReasonReverted
		result.Message = "transaction reverted on-chain"
		return result, nil
	}

	transfer, found := findTransferTo(receipt.Logs, common.HexToAddress(token.ContractAddress), common.HexToAddress(merchant))
	if !found {
		result.Reason = model.ReasonWrongRecipient
		result.Message = "no transfer to merchant address found"
		return result, nil
	}

	result.Amount = decimal.NewFromBigInt(transfer.value, -token.Decimals)
	result.FromAddress = transfer.from.Hex()
	result.ToAddress = transfer.to.Hex()

	e.classify(result, expectedAmount, currency)
	return result, nil
}

// classify applies the tolerance and confirmation gates. Amount comparison is
// absolute-tolerance: exactly at the boundary is accepted.
func (e *EvmRPC) classify(result *model.VerificationResult, expectedAmount decimal.Decimal, currency string) {
	tolerance := e.registry.Tolerance(currency)
	required := e.registry.ConfirmationsRequired(e.chain)

	if result.Amount.Sub(expectedAmount).Abs().GreaterThan(tolerance) {
		result.Reason = model.ReasonAmountMismatch
		result.Message = fmt.Sprintf("amount mismatch: expected %s, got %s", expectedAmount, result.Amount)
		return
	}

	if result.Confirmations < required {
		result.Reason = model.ReasonInsufficientConfirmations
		result.Message = fmt.Sprintf("waiting for confirmations: %d/%d", result.Confirmations, required)
		return
	}

	result.Verified = true
	result.Message = "payment verified"
}

func (e *EvmRPC) confirmations(ctx context.Context, blockNumber uint64) (int64, error) {
	head, err := e.LatestBlock(ctx)
	if err != nil {
		return 0, err
	}
	if head < blockNumber {
		return 0, nil
	}
	return int64(head - blockNumber), nil
}

func (e *EvmRPC) LatestBlock(ctx context.Context) (uint64, error) {
	if cached, ok := e.headCache.Get(string(e.chain)); ok {
		return cached.(uint64), nil
	}

	head, err := e.client.BlockNumber(ctx)
	if err != nil {
		return 0, &chainrpc.TransportError{Chain: e.chain, Op: "BlockNumber", Err: err}
	}

	e.headCache.SetDefault(string(e.chain), head)
	return head, nil
}

func notFoundResult() *model.VerificationResult {
	return &model.VerificationResult{
		Reason:  model.ReasonNotFound,
		Message: "transaction not found",
	}
}

func unminedResult() *model.VerificationResult {
	return &model.VerificationResult{
		Reason:  model.ReasonInsufficientConfirmations,
		Message: "transaction not yet mined",
	}
}
