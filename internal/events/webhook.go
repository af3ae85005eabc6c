package events

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/novaluna/payment-engine/internal/utils/config"
	"github.com/novaluna/payment-engine/internal/utils/logger"
)

type webhookPublisher struct {
	url    string
	client *http.Client
	logger *logger.Logger
}

type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// New returns a webhook publisher when a webhook URL is configured, and a
// no-op publisher otherwise.
func New(cfg *config.AppConfig, logger *logger.Logger) IPublisher {
	if cfg.Payment.WebhookURL == "" {
		return noopPublisher{}
	}
	return &webhookPublisher{
		url:    cfg.Payment.WebhookURL,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Publish hands the event to a delivery goroutine and returns immediately.
// Verification and reconciliation must never wait on a slow consumer.
func (w *webhookPublisher) Publish(event Event) {
	go w.deliver(event)
}

func (w *webhookPublisher) deliver(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		w.logger.Error("[Publish] failed to marshal event", map[string]string{
			"eventType": string(event.Type),
			"error":     err.Error(),
		})
		return
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		w.logger.Error("[Publish] failed to deliver event", map[string]string{
			"eventType": string(event.Type),
			"txRef":     event.TxRef,
			"error":     err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		w.logger.Error("[Publish] webhook returned error status", map[string]string{
			"eventType":  string(event.Type),
			"txRef":      event.TxRef,
			"statusCode": strconv.Itoa(resp.StatusCode),
		})
	}
}
