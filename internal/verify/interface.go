package verify

import (
	"context"

	"github.com/novaluna/payment-engine/internal/model"
)

type IOrchestrator interface {
	// VerifyPayment checks one claim against its chain and settles it when
	// possible. It is safe to call repeatedly and concurrently for the same
	// reference: at most one call ever credits.
	VerifyPayment(ctx context.Context, claim *model.PaymentClaim) (*Outcome, error)
}
