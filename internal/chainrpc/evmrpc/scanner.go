package evmrpc

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/novaluna/payment-engine/internal/chainrpc"
)

// InboundTransfers walks [fromBlock, toBlock] and returns every native coin
// transfer and accepted-token Transfer event whose recipient is the merchant
// address.
func (e *EvmRPC) InboundTransfers(ctx context.Context, fromBlock, toBlock uint64) ([]chainrpc.InboundTransfer, error) {
	merchant, ok := e.registry.MerchantAddress(e.chain)
	if !ok {
		return nil, nil
	}

	transfers, err := e.nativeTransfersTo(ctx, merchant, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}

	tokenTransfers, err := e.tokenTransfersTo(ctx, merchant, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}

	return append(transfers, tokenTransfers...), nil
}

func (e *EvmRPC) nativeTransfersTo(ctx context.Context, merchant string, fromBlock, toBlock uint64) ([]chainrpc.InboundTransfer, error) {
	var transfers []chainrpc.InboundTransfer

	for number := fromBlock; number <= toBlock; number++ {
		block, err := e.client.BlockByNumber(ctx, new(big.Int).SetUint64(number))
		if err != nil {
			return nil, &chainrpc.TransportError{Chain: e.chain, Op: "BlockByNumber", Err: err}
		}

		for _, tx := range block.Transactions() {
			if tx.To() == nil || !strings.EqualFold(tx.To().Hex(), merchant) {
				continue
			}
			if tx.Value().Sign() == 0 {
				continue
			}

			transfers = append(transfers, chainrpc.InboundTransfer{
				Chain:       e.chain,
				TxRef:       tx.Hash().Hex(),
				Currency:    e.chain.NativeCurrency(),
				Amount:      decimal.NewFromBigInt(tx.Value(), -nativeDecimals),
				ToAddress:   tx.To().Hex(),
				BlockNumber: number,
			})
		}
	}

	return transfers, nil
}

func (e *EvmRPC) tokenTransfersTo(ctx context.Context, merchant string, fromBlock, toBlock uint64) ([]chainrpc.InboundTransfer, error) {
	tokens := e.registry.TokenContracts(e.chain)
	if len(tokens) == 0 {
		return nil, nil
	}

	contracts := make([]common.Address, 0, len(tokens))
	currencyByContract := make(map[common.Address]string, len(tokens))
	decimalsByContract := make(map[common.Address]int32, len(tokens))
	for currency, token := range tokens {
		addr := common.HexToAddress(token.ContractAddress)
		contracts = append(contracts, addr)
		currencyByContract[addr] = currency
		decimalsByContract[addr] = token.Decimals
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: contracts,
		Topics: [][]common.Hash{
			{transferEventTopic},
			nil,
			{addressTopic(common.HexToAddress(merchant))},
		},
	}

	logs, err := e.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, &chainrpc.TransportError{Chain: e.chain, Op: "FilterLogs", Err: err}
	}

	var transfers []chainrpc.InboundTransfer
	for i := range logs {
		event, ok := decodeTransferLog(&logs[i])
		if !ok {
			continue
		}

		transfers = append(transfers, chainrpc.InboundTransfer{
			Chain:       e.chain,
			TxRef:       logs[i].TxHash.Hex(),
			Currency:    currencyByContract[logs[i].Address],
			Amount:      decimal.NewFromBigInt(event.value, -decimalsByContract[logs[i].Address]),
			FromAddress: event.from.Hex(),
			ToAddress:   event.to.Hex(),
			BlockNumber: logs[i].BlockNumber,
		})
	}

	return transfers, nil
}
