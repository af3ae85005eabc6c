package events

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novaluna/payment-engine/internal/model"
	"github.com/novaluna/payment-engine/internal/types/environments"
	"github.com/novaluna/payment-engine/internal/utils/config"
	"github.com/novaluna/payment-engine/internal/utils/logger"
)

func TestWebhookPublisher_DeliversEvent(t *testing.T) {
	delivered := make(chan Event, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var received Event
		require.NoError(t, json.Unmarshal(body, &received))
		delivered <- received
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	publisher := New(&config.AppConfig{
		Payment: config.PaymentConfig{WebhookURL: server.URL},
	}, logger.New(environments.Test))

	event := NewEvent(EventPaymentCompleted, 42, model.ChainBSC, "0xdeposit", "USDT",
		decimal.RequireFromString("10.50"), "")
	publisher.Publish(event)

	select {
	case received := <-delivered:
		assert.Equal(t, EventPaymentCompleted, received.Type)
		assert.Equal(t, "0xdeposit", received.TxRef)
		assert.Equal(t, int64(42), received.UserID)
		assert.NotEmpty(t, received.ID)
		assert.False(t, received.OccurredAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWebhookPublisher_PublishDoesNotBlockOnSlowConsumer(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	publisher := New(&config.AppConfig{
		Payment: config.PaymentConfig{WebhookURL: server.URL},
	}, logger.New(environments.Test))

	start := time.Now()
	publisher.Publish(NewEvent(EventPaymentCompleted, 42, model.ChainBSC, "0xdeposit", "USDT",
		decimal.RequireFromString("10.50"), ""))
	assert.Less(t, time.Since(start), time.Second)
}

func TestWebhookPublisher_DeliveryFailureDoesNotPanic(t *testing.T) {
	publisher := New(&config.AppConfig{
		Payment: config.PaymentConfig{WebhookURL: "http://127.0.0.1:1"},
	}, logger.New(environments.Test))

	// Best effort: an unreachable consumer is logged and dropped.
	publisher.Publish(NewEvent(EventPaymentFailed, 1, model.ChainEthereum, "0xref", "ETH",
		decimal.RequireFromString("1"), "amount_mismatch"))
}

func TestNew_NoWebhookConfiguredUsesNoop(t *testing.T) {
	publisher := New(&config.AppConfig{}, logger.New(environments.Test))

	_, ok := publisher.(noopPublisher)
	assert.True(t, ok)
}
