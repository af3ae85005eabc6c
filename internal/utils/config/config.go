package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/novaluna/payment-engine/internal/types/environments"
)

type AppConfig struct {
	Environment environments.Environment
	ApiServer   ApiServerConfig
	Postgres    DBConnection
	Chains      ChainConfig
	Merchant    MerchantConfig
	Payment     PaymentConfig
}

type ApiServerConfig struct {
	Port           string
	AllowedOrigins string
}

type ChainConfig struct {
	EthereumRPCEndpoint string
	BSCRPCEndpoint      string
	PolygonRPCEndpoint  string
	BitcoinExplorerURL  string
}

type MerchantConfig struct {
	EVMAddress     string
	BitcoinAddress string
	SolanaAddress  string
	TronAddress    string
}

type PaymentConfig struct {
	ConfirmationsRequired int
	ExpiryHours           int
	PollIntervalSeconds   int
	MaxBlockRangePerScan  uint64
	RPCTimeoutSeconds     int
	WebhookURL            string

	// TolerancesByCurrency holds PAYMENT_TOLERANCE_<CURRENCY> overrides,
	// keyed by currency symbol, values as decimal strings.
	TolerancesByCurrency map[string]string
	// ConfirmationsByChain holds PAYMENT_CONFIRMATIONS_<CHAIN> overrides,
	// keyed by chain name.
	ConfirmationsByChain map[string]string
	// TokenContracts holds TOKEN_CONTRACT_<CHAIN>_<CURRENCY> overrides,
	// values as "<address>:<decimals>".
	TokenContracts map[string]string
}

type DBConnection struct {
	Host string
	Port string
	User string
	Name string
	Pass string

	SSLMode string
}

func New() *AppConfig {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// this will not override env variables if they already exist
	godotenv.Load(".env." + env)

	return &AppConfig{
		Environment: environments.Environment(env),
		ApiServer: ApiServerConfig{
			Port:           envVarWithDefault("API_PORT", "8080"),
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		},
		Postgres: DBConnection{
			Host:    os.Getenv("DB_HOST"),
			Port:    os.Getenv("DB_PORT"),
			User:    os.Getenv("DB_USER"),
			Name:    os.Getenv("DB_NAME"),
			Pass:    os.Getenv("DB_PASS"),
			SSLMode: os.Getenv("DB_SSL_MODE"),
		},
		Chains: ChainConfig{
			EthereumRPCEndpoint: envVarWithDefault("ETH_RPC_ENDPOINT", "https://cloudflare-eth.com"),
			BSCRPCEndpoint:      envVarWithDefault("BSC_RPC_ENDPOINT", "https://bsc-dataseed.binance.org"),
			PolygonRPCEndpoint:  envVarWithDefault("POLYGON_RPC_ENDPOINT", "https://polygon-rpc.com"),
			BitcoinExplorerURL:  envVarWithDefault("BTC_EXPLORER_API_URL", "https://blockstream.info/api"),
		},
		Merchant: MerchantConfig{
			EVMAddress:     os.Getenv("MERCHANT_EVM_ADDRESS"),
			BitcoinAddress: os.Getenv("MERCHANT_BTC_ADDRESS"),
			SolanaAddress:  os.Getenv("MERCHANT_SOL_ADDRESS"),
			TronAddress:    os.Getenv("MERCHANT_TRX_ADDRESS"),
		},
		Payment: PaymentConfig{
			ConfirmationsRequired: envVarAtoiWithDefault("PAYMENT_CONFIRMATIONS_REQUIRED", 2),
			ExpiryHours:           envVarAtoiWithDefault("PAYMENT_EXPIRY_HOURS", 24),
			PollIntervalSeconds:   envVarAtoiWithDefault("PAYMENT_POLL_INTERVAL_SECONDS", 60),
			MaxBlockRangePerScan:  uint64(envVarAtoiWithDefault("PAYMENT_MAX_BLOCK_RANGE", 100)),
			RPCTimeoutSeconds:     envVarAtoiWithDefault("PAYMENT_RPC_TIMEOUT_SECONDS", 5),
			WebhookURL:            os.Getenv("PAYMENT_EVENT_WEBHOOK_URL"),
			TolerancesByCurrency:  envVarsWithPrefix("PAYMENT_TOLERANCE_"),
			ConfirmationsByChain:  perChainConfirmations(),
			TokenContracts:        envVarsWithPrefix("TOKEN_CONTRACT_"),
		},
	}
}

func envVarsWithPrefix(prefix string) map[string]string {
	values := map[string]string{}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" || !strings.HasPrefix(name, prefix) {
			continue
		}
		values[strings.TrimPrefix(name, prefix)] = value
	}
	return values
}

func perChainConfirmations() map[string]string {
	values := envVarsWithPrefix("PAYMENT_CONFIRMATIONS_")
	// PAYMENT_CONFIRMATIONS_REQUIRED is the global default, not a chain.
	delete(values, "REQUIRED")
	return values
}

func envVarWithDefault(envName, defaultValue string) string {
	value := os.Getenv(envName)
	if value == "" {
		return defaultValue
	}

	return value
}

func envVarAtoiWithDefault(envName string, defaultValue int) int {
	valueStr := os.Getenv(envName)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
