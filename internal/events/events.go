package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/novaluna/payment-engine/internal/model"
)

type EventType string

const (
	EventPaymentCompleted EventType = "payment_completed"
	EventPaymentExpired   EventType = "payment_expired"
	EventPaymentFailed    EventType = "payment_failed"
)

// Event is the outbound notification emitted on every terminal transition of
// a payment claim.
type Event struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	UserID     int64           `json:"user_id"`
	Chain      model.Chain     `json:"chain"`
	TxRef      string          `json:"tx_ref"`
	Currency   string          `json:"currency"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewEvent stamps the event with a fresh id and the current time.
func NewEvent(eventType EventType, userID int64, chain model.Chain, txRef, currency string, amount decimal.Decimal, reason string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		Chain:      chain,
		TxRef:      txRef,
		Currency:   currency,
		Amount:     amount,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}

// IPublisher delivers events to downstream consumers. Delivery is best
// effort: publish failures must never roll back ledger state.
type IPublisher interface {
	Publish(event Event)
}
