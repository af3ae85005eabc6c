package registry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/novaluna/payment-engine/internal/model"
	"github.com/novaluna/payment-engine/internal/utils/config"
)

// Token describes an ERC-20-style contract accepted for a (chain, currency)
// pair.
type Token struct {
	ContractAddress string
	Decimals        int32
}

// Registry is the merchant address book plus the per-chain and per-currency
// verification knobs: receiving addresses, token contracts, amount tolerances
// and confirmation thresholds.
type Registry struct {
	merchantAddresses map[model.Chain]string
	tokens            map[model.Chain]map[string]Token
	tolerances        map[string]decimal.Decimal
	confirmations     map[model.Chain]int64
}

// Mainnet contracts for the stable tokens the engine accepts out of the box.
// USDT on BSC uses 18 decimals, everywhere else 6.
var defaultTokens = map[model.Chain]map[string]Token{
	model.ChainEthereum: {
		"USDT": {ContractAddress: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6},
		"USDC": {ContractAddress: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
	},
	model.ChainBSC: {
		"USDT": {ContractAddress: "0x55d398326f99059fF775485246999027B3197955", Decimals: 18},
		"USDC": {ContractAddress: "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", Decimals: 18},
	},
	model.ChainPolygon: {
		"USDT": {ContractAddress: "0xc2132D05D31c914a87C6611C10748AEb04B58e8F", Decimals: 6},
		"USDC": {ContractAddress: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", Decimals: 6},
	},
}

var (
	stableTolerance = decimal.RequireFromString("0.01")
	nativeTolerance = decimal.RequireFromString("0.001")
	btcTolerance    = decimal.RequireFromString("0.0001")
)

var defaultTolerances = map[string]decimal.Decimal{
	"USDT": stableTolerance,
	"USDC": stableTolerance,
	"ETH":  nativeTolerance,
	"BNB":  nativeTolerance,
	"POL":  nativeTolerance,
	"BTC":  btcTolerance,
	"SOL":  nativeTolerance,
	"TRX":  nativeTolerance,
}

// New builds the registry from merchant config and the built-in mainnet
// defaults, then applies the per-currency tolerance, per-chain confirmation
// and token contract overrides collected from the environment. Malformed
// overrides fail construction rather than silently keeping a default.
func New(cfg *config.AppConfig) (*Registry, error) {
	merchants := map[model.Chain]string{}

	if cfg.Merchant.EVMAddress != "" {
		if !common.IsHexAddress(cfg.Merchant.EVMAddress) {
			return nil, fmt.Errorf("invalid merchant EVM address: %s", cfg.Merchant.EVMAddress)
		}
		merchants[model.ChainEthereum] = cfg.Merchant.EVMAddress
		merchants[model.ChainBSC] = cfg.Merchant.EVMAddress
		merchants[model.ChainPolygon] = cfg.Merchant.EVMAddress
	}
	if cfg.Merchant.BitcoinAddress != "" {
		if _, err := btcutil.DecodeAddress(cfg.Merchant.BitcoinAddress, &chaincfg.MainNetParams); err != nil {
			return nil, fmt.Errorf("invalid merchant BTC address: %v", err)
		}
		merchants[model.ChainBitcoin] = cfg.Merchant.BitcoinAddress
	}
	if cfg.Merchant.SolanaAddress != "" {
		merchants[model.ChainSolana] = cfg.Merchant.SolanaAddress
	}
	if cfg.Merchant.TronAddress != "" {
		merchants[model.ChainTron] = cfg.Merchant.TronAddress
	}

	tolerances := make(map[string]decimal.Decimal, len(defaultTolerances))
	for currency, tol := range defaultTolerances {
		tolerances[currency] = tol
	}
	for currency, raw := range cfg.Payment.TolerancesByCurrency {
		tol, err := decimal.NewFromString(raw)
		if err != nil || tol.Sign() < 0 {
			return nil, fmt.Errorf("invalid tolerance for %s: %s", currency, raw)
		}
		tolerances[strings.ToUpper(currency)] = tol
	}

	tokens := make(map[model.Chain]map[string]Token, len(defaultTokens))
	for chain, chainTokens := range defaultTokens {
		tokens[chain] = make(map[string]Token, len(chainTokens))
		for currency, token := range chainTokens {
			tokens[chain][currency] = token
		}
	}
	for key, raw := range cfg.Payment.TokenContracts {
		chainName, currency, ok := strings.Cut(key, "_")
		if !ok || currency == "" {
			return nil, fmt.Errorf("invalid token contract key: %s", key)
		}
		chain, err := model.ParseChain(chainName)
		if err != nil {
			return nil, fmt.Errorf("invalid token contract key %s: %v", key, err)
		}
		addr, decimalsStr, ok := strings.Cut(raw, ":")
		if !ok || !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid token contract for %s: want <address>:<decimals>, got %s", key, raw)
		}
		decimals, err := strconv.ParseInt(decimalsStr, 10, 32)
		if err != nil || decimals < 0 {
			return nil, fmt.Errorf("invalid token decimals for %s: %s", key, decimalsStr)
		}
		if tokens[chain] == nil {
			tokens[chain] = map[string]Token{}
		}
		tokens[chain][strings.ToUpper(currency)] = Token{ContractAddress: addr, Decimals: int32(decimals)}
	}

	confirmations := map[model.Chain]int64{}
	for _, chain := range model.AllChains() {
		confirmations[chain] = int64(cfg.Payment.ConfirmationsRequired)
	}
	for chainName, raw := range cfg.Payment.ConfirmationsByChain {
		chain, err := model.ParseChain(chainName)
		if err != nil {
			return nil, fmt.Errorf("invalid confirmations override %s: %v", chainName, err)
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid confirmations for %s: %s", chainName, raw)
		}
		confirmations[chain] = n
	}

	return &Registry{
		merchantAddresses: merchants,
		tokens:            tokens,
		tolerances:        tolerances,
		confirmations:     confirmations,
	}, nil
}

// MerchantAddress returns the receiving address for a chain.
func (r *Registry) MerchantAddress(chain model.Chain) (string, bool) {
	addr, ok := r.merchantAddresses[chain]
	return addr, ok
}

// Chains returns the chains with a configured receiving address.
func (r *Registry) Chains() []model.Chain {
	chains := []model.Chain{}
	for _, c := range model.AllChains() {
		if _, ok := r.merchantAddresses[c]; ok {
			chains = append(chains, c)
		}
	}
	return chains
}

// IsNative reports whether a currency is the chain's native coin rather than
// a token transfer.
func (r *Registry) IsNative(chain model.Chain, currency string) bool {
	return strings.EqualFold(currency, chain.NativeCurrency())
}

// TokenFor resolves the token contract for a (chain, currency) pair.
func (r *Registry) TokenFor(chain model.Chain, currency string) (Token, bool) {
	tokens, ok := r.tokens[chain]
	if !ok {
		return Token{}, false
	}
	token, ok := tokens[strings.ToUpper(currency)]
	return token, ok
}

// TokenContracts returns every accepted token contract on a chain, keyed by
// currency symbol. Consumed by the passive scanner's log filter.
func (r *Registry) TokenContracts(chain model.Chain) map[string]Token {
	return r.tokens[chain]
}

// Tolerance returns the absolute amount tolerance for a currency. Comparison
// is never exact equality: decimal conversion rounding must be absorbed.
func (r *Registry) Tolerance(currency string) decimal.Decimal {
	if tol, ok := r.tolerances[strings.ToUpper(currency)]; ok {
		return tol
	}
	return stableTolerance
}

// ConfirmationsRequired returns the confirmation threshold for a chain.
func (r *Registry) ConfirmationsRequired(chain model.Chain) int64 {
	if n, ok := r.confirmations[chain]; ok {
		return n
	}
	return 2
}
