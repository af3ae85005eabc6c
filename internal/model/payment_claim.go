package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentClaim is a caller-submitted assertion that a payment happened
// on-chain. It is transient: persistence belongs to the ledger.
type PaymentClaim struct {
	UserID         int64           `json:"user_id"`
	Chain          Chain           `json:"chain"`
	Currency       string          `json:"currency"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	TxRef          string          `json:"tx_ref"`
	CreatedAt      time.Time       `json:"created_at"`
}
