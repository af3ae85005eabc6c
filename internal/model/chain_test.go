package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChain(t *testing.T) {
	chain, err := ParseChain("ethereum")
	require.NoError(t, err)
	assert.Equal(t, ChainEthereum, chain)

	chain, err = ParseChain("BSC")
	require.NoError(t, err)
	assert.Equal(t, ChainBSC, chain)

	_, err = ParseChain("dogecoin")
	assert.Error(t, err)
}

func TestChain_IsEVM(t *testing.T) {
	assert.True(t, ChainEthereum.IsEVM())
	assert.True(t, ChainBSC.IsEVM())
	assert.True(t, ChainPolygon.IsEVM())
	assert.False(t, ChainBitcoin.IsEVM())
	assert.False(t, ChainSolana.IsEVM())
	assert.False(t, ChainTron.IsEVM())
}

func TestChain_NativeCurrency(t *testing.T) {
	assert.Equal(t, "ETH", ChainEthereum.NativeCurrency())
	assert.Equal(t, "BNB", ChainBSC.NativeCurrency())
	assert.Equal(t, "POL", ChainPolygon.NativeCurrency())
	assert.Equal(t, "BTC", ChainBitcoin.NativeCurrency())
}

func TestTransactionStatus_Terminal(t *testing.T) {
	assert.False(t, TransactionStatusPending.Terminal())
	assert.True(t, TransactionStatusCompleted.Terminal())
	assert.True(t, TransactionStatusExpired.Terminal())
	assert.True(t, TransactionStatusFailed.Terminal())
}

func TestVerificationReason_Definitive(t *testing.T) {
	assert.True(t, ReasonWrongRecipient.Definitive())
	assert.True(t, ReasonAmountMismatch.Definitive())
	assert.True(t, ReasonReverted.Definitive())

	assert.False(t, ReasonNotFound.Definitive())
	assert.False(t, ReasonInsufficientConfirmations.Definitive())
	assert.False(t, ReasonUnavailable.Definitive())
	assert.False(t, ReasonNone.Definitive())
}
