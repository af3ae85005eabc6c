package evmrpc

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// keccak256("Transfer(address,address,uint256)")
var transferEventTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

type transferEvent struct {
	from  common.Address
	to    common.Address
	value *big.Int
}

// decodeTransferLog decodes an ERC-20 Transfer event log. Both address
// parameters are indexed, so the value is the only data field.
func decodeTransferLog(log *types.Log) (*transferEvent, bool) {
	if len(log.Topics) != 3 || log.Topics[0] != transferEventTopic {
		return nil, false
	}

	return &transferEvent{
		from:  common.BytesToAddress(log.Topics[1].Bytes()),
		to:    common.BytesToAddress(log.Topics[2].Bytes()),
		value: new(big.Int).SetBytes(log.Data),
	}, true
}

// findTransferTo selects the Transfer event emitted by contract whose
// recipient is the merchant address.
func findTransferTo(logs []*types.Log, contract, merchant common.Address) (*transferEvent, bool) {
	for _, log := range logs {
		if log.Address != contract {
			continue
		}
		event, ok := decodeTransferLog(log)
		if !ok {
			continue
		}
		if event.to == merchant {
			return event, true
		}
	}
	return nil, false
}

// addressTopic left-pads an address into the 32-byte topic form used for
// indexed event parameters.
func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(addr.Bytes(), 32))
}
