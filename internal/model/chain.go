package model

import (
	"fmt"
	"strings"
)

// Chain identifies a supported blockchain network.
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainBSC      Chain = "bsc"
	ChainPolygon  Chain = "polygon"
	ChainBitcoin  Chain = "bitcoin"
	ChainSolana   Chain = "solana"
	ChainTron     Chain = "tron"
)

var allChains = []Chain{
	ChainEthereum,
	ChainBSC,
	ChainPolygon,
	ChainBitcoin,
	ChainSolana,
	ChainTron,
}

func AllChains() []Chain {
	return allChains
}

func ParseChain(s string) (Chain, error) {
	for _, c := range allChains {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown chain: %q", s)
}

func (c Chain) IsEVM() bool {
	switch c {
	case ChainEthereum, ChainBSC, ChainPolygon:
		return true
	}
	return false
}

// NativeCurrency returns the gas/native coin symbol of the chain.
func (c Chain) NativeCurrency() string {
	switch c {
	case ChainEthereum:
		return "ETH"
	case ChainBSC:
		return "BNB"
	case ChainPolygon:
		return "POL"
	case ChainBitcoin:
		return "BTC"
	case ChainSolana:
		return "SOL"
	case ChainTron:
		return "TRX"
	}
	return ""
}
