package evmrpc

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novaluna/payment-engine/internal/chainrpc"
	"github.com/novaluna/payment-engine/internal/model"
	"github.com/novaluna/payment-engine/internal/registry"
	"github.com/novaluna/payment-engine/internal/types/environments"
	"github.com/novaluna/payment-engine/internal/utils/config"
	"github.com/novaluna/payment-engine/internal/utils/logger"
)

const testMerchantAddress = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

// usdtMainnet is the registry's default USDT contract on ethereum.
var usdtMainnet = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")

type fakeEthClient struct {
	transactionByHash  func(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	transactionReceipt func(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	blockNumber        func(ctx context.Context) (uint64, error)
	blockByNumber      func(ctx context.Context, number *big.Int) (*types.Block, error)
	filterLogs         func(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

func (f *fakeEthClient) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	return f.transactionByHash(ctx, hash)
}

func (f *fakeEthClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return f.transactionReceipt(ctx, txHash)
}

func (f *fakeEthClient) BlockNumber(ctx context.Context) (uint64, error) {
	return f.blockNumber(ctx)
}

func (f *fakeEthClient) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	return f.blockByNumber(ctx, number)
}

func (f *fakeEthClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return f.filterLogs(ctx, q)
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	reg, err := registry.New(&config.AppConfig{
		Merchant: config.MerchantConfig{
			EVMAddress: testMerchantAddress,
		},
		Payment: config.PaymentConfig{
			ConfirmationsRequired: 2,
		},
	})
	require.NoError(t, err)
	return reg
}

func newTestRPC(t *testing.T, client ethClient) *EvmRPC {
	t.Helper()

	return &EvmRPC{
		chain:     model.ChainEthereum,
		client:    client,
		registry:  newTestRegistry(t),
		logger:    logger.New(environments.Test),
		headCache: gocache.New(5*time.Second, time.Minute),
	}
}

// signedTransfer builds a signed legacy transaction sending wei to the given
// address, and returns the sender it recovers to.
func signedTransfer(t *testing.T, to common.Address, wei *big.Int) (*types.Transaction, common.Address) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    0,
		To:       &to,
		Value:    wei,
		Gas:      21000,
		GasPrice: big.NewInt(1),
	})

	signer := types.LatestSignerForChainID(big.NewInt(1))
	signed, err := types.SignTx(tx, signer, key)
	require.NoError(t, err)

	return signed, crypto.PubkeyToAddress(key.PublicKey)
}

func receiptAt(block uint64) *types.Receipt {
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: new(big.Int).SetUint64(block),
	}
}

func transferLog(contract, from, to common.Address, value *big.Int) *types.Log {
	return &types.Log{
		Address: contract,
		Topics: []common.Hash{
			transferEventTopic,
			addressTopic(from),
			addressTopic(to),
		},
		Data: common.LeftPadBytes(value.Bytes(), 32),
	}
}

func TestEvmRPC_VerifyNative_ConfirmedPayment(t *testing.T) {
	merchant := common.HexToAddress(testMerchantAddress)
	oneAndHalfEth, _ := new(big.Int).SetString("1500000000000000000", 10)
	tx, sender := signedTransfer(t, merchant, oneAndHalfEth)

	rpc := newTestRPC(t, &fakeEthClient{
		transactionByHash: func(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
			return tx, false, nil
		},
		transactionReceipt: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			return receiptAt(100), nil
		},
		blockNumber: func(ctx context.Context) (uint64, error) {
			return 105, nil
		},
	})

	result, err := rpc.Verify(context.Background(), "ETH", "0xabc", decimal.RequireFromString("1.5"))
	require.NoError(t, err)

	assert.True(t, result.Verified)
	assert.Equal(t, "1.5", result.Amount.String())
	assert.Equal(t, int64(5), result.Confirmations)
	assert.Equal(t, sender.Hex(), result.FromAddress)
	assert.Equal(t, uint64(100), result.BlockNumber)
}

func TestEvmRPC_VerifyNative_NotFound(t *testing.T) {
	rpc := newTestRPC(t, &fakeEthClient{
		transactionByHash: func(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
			return nil, false, ethereum.NotFound
		},
	})

	result, err := rpc.Verify(context.Background(), "ETH", "0xmissing", decimal.RequireFromString("1"))
	require.NoError(t, err)

	assert.False(t, result.Verified)
	assert.Equal(t, model.ReasonNotFound, result.Reason)
}

func TestEvmRPC_VerifyNative_PendingTransaction(t *testing.T) {
	merchant := common.HexToAddress(testMerchantAddress)
	tx, _ := signedTransfer(t, merchant, big.NewInt(1))

	rpc := newTestRPC(t, &fakeEthClient{
		transactionByHash: func(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
			return tx, true, nil
		},
	})

	result, err := rpc.Verify(context.Background(), "ETH", "0xabc", decimal.RequireFromString("1"))
	require.NoError(t, err)

	assert.False(t, result.Verified)
	assert.Equal(t, model.ReasonInsufficientConfirmations, result.Reason)
}

func TestEvmRPC_VerifyNative_WrongRecipient(t *testing.T) {
	other := common.HexToAddress("0x1111111111111111111111111111111111111111")
	tx, _ := signedTransfer(t, other, big.NewInt(1))

	rpc := newTestRPC(t, &fakeEthClient{
		transactionByHash: func(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
			return tx, false, nil
		},
		transactionReceipt: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			return receiptAt(100), nil
		},
		blockNumber: func(ctx context.Context) (uint64, error) {
			return 110, nil
		},
	})

	result, err := rpc.Verify(context.Background(), "ETH", "0xabc", decimal.RequireFromString("1"))
	require.NoError(t, err)

	assert.False(t, result.Verified)
	assert.Equal(t, model.ReasonWrongRecipient, result.Reason)
}

func TestEvmRPC_VerifyNative_Reverted(t *testing.T) {
	merchant := common.HexToAddress(testMerchantAddress)
	tx, _ := signedTransfer(t, merchant, big.NewInt(1))

	rpc := newTestRPC(t, &fakeEthClient{
		transactionByHash: func(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
			return tx, false, nil
		},
		transactionReceipt: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			return &types.Receipt{
				Status:      types.ReceiptStatusFailed,
				BlockNumber: big.NewInt(100),
			}, nil
		},
		blockNumber: func(ctx context.Context) (uint64, error) {
			return 110, nil
		},
	})

	result, err := rpc.Verify(context.Background(), "ETH", "0xabc", decimal.RequireFromString("1"))
	require.NoError(t, err)

	assert.False(t, result.Verified)
	assert.Equal(t, model.ReasonReverted, result.Reason)
}

func TestEvmRPC_VerifyNative_TransportErrorIsRetryable(t *testing.T) {
	rpc := newTestRPC(t, &fakeEthClient{
		transactionByHash: func(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
			return nil, false, errors.New("connection refused")
		},
	})

	_, err := rpc.Verify(context.Background(), "ETH", "0xabc", decimal.RequireFromString("1"))
	require.Error(t, err)
	assert.True(t, chainrpc.IsRetryable(err))
}

func TestEvmRPC_VerifyToken_ConfirmedPayment(t *testing.T) {
	merchant := common.HexToAddress(testMerchantAddress)
	from := common.HexToAddress("0x2222222222222222222222222222222222222222")

	rpc := newTestRPC(t, &fakeEthClient{
		transactionReceipt: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			receipt := receiptAt(100)
			// 10.50 USDT at 6 decimals
			receipt.Logs = []*types.Log{
				transferLog(usdtMainnet, from, merchant, big.NewInt(10500000)),
			}
			return receipt, nil
		},
		blockNumber: func(ctx context.Context) (uint64, error) {
			return 102, nil
		},
	})

	result, err := rpc.Verify(context.Background(), "USDT", "0xabc", decimal.RequireFromString("10.50"))
	require.NoError(t, err)

	assert.True(t, result.Verified)
	assert.Equal(t, "10.5", result.Amount.String())
	assert.Equal(t, int64(2), result.Confirmations)
	assert.Equal(t, from.Hex(), result.FromAddress)
}

func TestEvmRPC_VerifyToken_AmountWithinToleranceAccepted(t *testing.T) {
	merchant := common.HexToAddress(testMerchantAddress)
	from := common.HexToAddress("0x2222222222222222222222222222222222222222")

	// 10.51 received against 10.50 expected: exactly at the 0.01 boundary.
	rpc := newTestRPC(t, &fakeEthClient{
		transactionReceipt: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			receipt := receiptAt(100)
			receipt.Logs = []*types.Log{
				transferLog(usdtMainnet, from, merchant, big.NewInt(10510000)),
			}
			return receipt, nil
		},
		blockNumber: func(ctx context.Context) (uint64, error) {
			return 110, nil
		},
	})

	result, err := rpc.Verify(context.Background(), "USDT", "0xabc", decimal.RequireFromString("10.50"))
	require.NoError(t, err)

	assert.True(t, result.Verified)
}

func TestEvmRPC_VerifyToken_AmountMismatch(t *testing.T) {
	merchant := common.HexToAddress(testMerchantAddress)
	from := common.HexToAddress("0x2222222222222222222222222222222222222222")

	rpc := newTestRPC(t, &fakeEthClient{
		transactionReceipt: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			receipt := receiptAt(100)
			// 5.00 received against 10.50 expected
			receipt.Logs = []*types.Log{
				transferLog(usdtMainnet, from, merchant, big.NewInt(5000000)),
			}
			return receipt, nil
		},
		blockNumber: func(ctx context.Context) (uint64, error) {
			return 110, nil
		},
	})

	result, err := rpc.Verify(context.Background(), "USDT", "0xabc", decimal.RequireFromString("10.50"))
	require.NoError(t, err)

	assert.False(t, result.Verified)
	assert.Equal(t, model.ReasonAmountMismatch, result.Reason)
}

func TestEvmRPC_VerifyToken_InsufficientConfirmations(t *testing.T) {
	merchant := common.HexToAddress(testMerchantAddress)
	from := common.HexToAddress("0x2222222222222222222222222222222222222222")

	rpc := newTestRPC(t, &fakeEthClient{
		transactionReceipt: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			receipt := receiptAt(100)
			receipt.Logs = []*types.Log{
				transferLog(usdtMainnet, from, merchant, big.NewInt(10500000)),
			}
			return receipt, nil
		},
		blockNumber: func(ctx context.Context) (uint64, error) {
			return 101, nil
		},
	})

	result, err := rpc.Verify(context.Background(), "USDT", "0xabc", decimal.RequireFromString("10.50"))
	require.NoError(t, err)

	assert.False(t, result.Verified)
	assert.Equal(t, model.ReasonInsufficientConfirmations, result.Reason)
	assert.Equal(t, int64(1), result.Confirmations)
}

func TestEvmRPC_VerifyToken_NoTransferToMerchant(t *testing.T) {
	from := common.HexToAddress("0x2222222222222222222222222222222222222222")
	other := common.HexToAddress("0x3333333333333333333333333333333333333333")

	rpc := newTestRPC(t, &fakeEthClient{
		transactionReceipt: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			receipt := receiptAt(100)
			receipt.Logs = []*types.Log{
				transferLog(usdtMainnet, from, other, big.NewInt(10500000)),
			}
			return receipt, nil
		},
		blockNumber: func(ctx context.Context) (uint64, error) {
			return 110, nil
		},
	})

	result, err := rpc.Verify(context.Background(), "USDT", "0xabc", decimal.RequireFromString("10.50"))
	require.NoError(t, err)

	assert.False(t, result.Verified)
	assert.Equal(t, model.ReasonWrongRecipient, result.Reason)
}

func TestEvmRPC_VerifyToken_UnsupportedCurrency(t *testing.T) {
	rpc := newTestRPC(t, &fakeEthClient{})

	_, err := rpc.Verify(context.Background(), "DOGE", "0xabc", decimal.RequireFromString("10"))
	assert.ErrorIs(t, err, chainrpc.ErrUnsupportedCurrency)
}

func TestDecodeTransferLog(t *testing.T) {
	from := common.HexToAddress("0x2222222222222222222222222222222222222222")
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")

	event, ok := decodeTransferLog(transferLog(usdtMainnet, from, to, big.NewInt(42)))
	require.True(t, ok)
	assert.Equal(t, from, event.from)
	assert.Equal(t, to, event.to)
	assert.Equal(t, int64(42), event.value.Int64())

	// Approval events carry 3 topics too but a different signature hash.
	_, ok = decodeTransferLog(&types.Log{
		Address: usdtMainnet,
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("Approval(address,address,uint256)")),
			addressTopic(from),
			addressTopic(to),
		},
		Data: common.LeftPadBytes(big.NewInt(42).Bytes(), 32),
	})
	assert.False(t, ok)
}

func TestEvmRPC_InboundTransfers_TokenLogs(t *testing.T) {
	merchant := common.HexToAddress(testMerchantAddress)
	from := common.HexToAddress("0x2222222222222222222222222222222222222222")

	var capturedQuery ethereum.FilterQuery
	rpc := newTestRPC(t, &fakeEthClient{
		blockByNumber: func(ctx context.Context, number *big.Int) (*types.Block, error) {
			return types.NewBlockWithHeader(&types.Header{Number: number}), nil
		},
		filterLogs: func(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
			capturedQuery = q
			log := transferLog(usdtMainnet, from, merchant, big.NewInt(10500000))
			log.BlockNumber = 100
			log.TxHash = common.HexToHash("0xfeed")
			return []types.Log{*log}, nil
		},
	})

	transfers, err := rpc.InboundTransfers(context.Background(), 100, 100)
	require.NoError(t, err)

	require.Len(t, transfers, 1)
	assert.Equal(t, "USDT", transfers[0].Currency)
	assert.Equal(t, "10.5", transfers[0].Amount.String())
	assert.Equal(t, uint64(100), transfers[0].BlockNumber)

	// The filter pins the Transfer signature and the merchant as the indexed
	// recipient.
	require.Len(t, capturedQuery.Topics, 3)
	assert.Equal(t, transferEventTopic, capturedQuery.Topics[0][0])
	assert.Nil(t, capturedQuery.Topics[1])
	assert.Equal(t, addressTopic(merchant), capturedQuery.Topics[2][0])
}

func TestEvmRPC_LatestBlock_CachesHead(t *testing.T) {
	calls := 0
	rpc := newTestRPC(t, &fakeEthClient{
		blockNumber: func(ctx context.Context) (uint64, error) {
			calls++
			return 500, nil
		},
	})

	for i := 0; i < 3; i++ {
		head, err := rpc.LatestBlock(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(500), head)
	}

	assert.Equal(t, 1, calls)
}
