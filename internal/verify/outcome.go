package verify

import "github.com/novaluna/payment-engine/internal/model"

type OutcomeStatus string

const (
	// OutcomeCompleted means the payment verified and the credit landed.
	OutcomeCompleted OutcomeStatus = "completed"
	// OutcomeAlreadyProcessed means the reference was credited earlier, by
	// this or any other caller.
	OutcomeAlreadyProcessed OutcomeStatus = "already_processed"
	// OutcomeAwaitingConfirmation means nothing is wrong yet: the claim stays
	// pending for the reconciler to retry.
	OutcomeAwaitingConfirmation OutcomeStatus = "awaiting_confirmation"
	// OutcomePendingRetry means the chain could not be reached; the claim is
	// untouched.
	OutcomePendingRetry OutcomeStatus = "pending_retry"
	// OutcomeFailed means verification found a definitive mismatch after the
	// confirmation threshold.
	OutcomeFailed OutcomeStatus = "failed"
)

// Outcome is the engine's answer to a single verification attempt.
type Outcome struct {
	Status  OutcomeStatus             `json:"status"`
	Result  *model.VerificationResult `json:"result,omitempty"`
	Message string                    `json:"message"`
}
