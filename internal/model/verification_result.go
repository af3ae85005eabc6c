package model

import "github.com/shopspring/decimal"

// VerificationReason classifies why a check did not verify.
type VerificationReason string

const (
	ReasonNone                      VerificationReason = ""
	ReasonNotFound                  VerificationReason = "not_found"
	ReasonWrongRecipient            VerificationReason = "wrong_recipient"
	ReasonAmountMismatch            VerificationReason = "amount_mismatch"
	ReasonInsufficientConfirmations VerificationReason = "insufficient_confirmations"
	ReasonReverted                  VerificationReason = "transaction_reverted"
	ReasonUnavailable               VerificationReason = "verification_unavailable"
)

// Definitive reports whether the reason can never resolve by waiting for more
// confirmations. A definitive reason observed at or above the confirmation
// threshold fails the claim; everything else keeps it pending.
func (r VerificationReason) Definitive() bool {
	switch r {
	case ReasonWrongRecipient, ReasonAmountMismatch, ReasonReverted:
		return true
	}
	return false
}

// VerificationResult is the output of one adapter check. When Verified is
// true, Amount, Confirmations, FromAddress, ToAddress and BlockNumber are all
// populated.
type VerificationResult struct {
	Verified      bool               `json:"verified"`
	Amount        decimal.Decimal    `json:"amount"`
	Confirmations int64              `json:"confirmations"`
	FromAddress   string             `json:"from_address"`
	ToAddress     string             `json:"to_address"`
	BlockNumber   uint64             `json:"block_number"`
	Reason        VerificationReason `json:"reason,omitempty"`
	Message       string             `json:"message"`
}
