package btcrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/novaluna/payment-engine/internal/chainrpc"
	"github.com/novaluna/payment-engine/internal/model"
	"github.com/novaluna/payment-engine/internal/registry"
	"github.com/novaluna/payment-engine/internal/utils/config"
	"github.com/novaluna/payment-engine/internal/utils/logger"
)

const btcDecimals = 8

const (
	maxRetries = 3
	maxBackoff = 8 * time.Second
)

type BtcRpc struct {
	baseURL  string
	client   *http.Client
	registry *registry.Registry
	logger   *logger.Logger
}

func New(cfg *config.AppConfig, registry *registry.Registry, logger *logger.Logger) chainrpc.Adapter {
	return &BtcRpc{
		baseURL:  cfg.Chains.BitcoinExplorerURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		registry: registry,
		logger:   logger,
	}
}

func (b *BtcRpc) Chain() model.Chain {
	return model.ChainBitcoin
}

func (b *BtcRpc) Verify(ctx context.Context, currency, txRef string, expectedAmount decimal.Decimal) (*model.VerificationResult, error) {
	if !strings.EqualFold(currency, "BTC") {
		return nil, fmt.Errorf("%w: %s on bitcoin", chainrpc.ErrUnsupportedCurrency, currency)
	}

	merchant, ok := b.registry.MerchantAddress(model.ChainBitcoin)
	if !ok {
		return nil, fmt.Errorf("%w: no merchant address for bitcoin", chainrpc.ErrUnsupportedChain)
	}

	tx, found, err := b.getTransaction(ctx, txRef)
	if err != nil {
		return nil, err
	}
	if !found {
		return &model.VerificationResult{
			Reason:  model.ReasonNotFound,
			Message: "transaction not found",
		}, nil
	}

	result := &model.VerificationResult{}

	var received int64
	for _, vout := range tx.Vout {
		if vout.ScriptPubKeyAddress == merchant {
			received += vout.Value
		}
	}
	if received == 0 {
		result.Reason = model.ReasonWrongRecipient
		result.Message = "no output to merchant address found"
		if tx.Status.Confirmed {
			result.BlockNumber = tx.Status.BlockHeight
			confirmations, err := b.confirmations(ctx, tx.Status.BlockHeight)
			if err != nil {
				return nil, err
			}
			result.Confirmations = confirmations
		}
		return result, nil
	}

	result.Amount = decimal.New(received, -btcDecimals)
	result.ToAddress = merchant
	if len(tx.Vin) > 0 && tx.Vin[0].Prevout != nil {
		result.FromAddress = tx.Vin[0].Prevout.ScriptPubKeyAddress
	}

	if tx.Status.Confirmed {
		result.BlockNumber = tx.Status.BlockHeight
		confirmations, err := b.confirmations(ctx, tx.Status.BlockHeight)
		if err != nil {
			return nil, err
		}
		result.Confirmations = confirmations
	}

	tolerance := b.registry.Tolerance("BTC")
	required := b.registry.ConfirmationsRequired(model.ChainBitcoin)

	if result.Amount.Sub(expectedAmount).Abs().GreaterThan(tolerance) {
		result.Reason = model.ReasonAmountMismatch
		result.Message = fmt.Sprintf("amount mismatch: expected %s, got %s", expectedAmount, result.Amount)
		return result, nil
	}

	if result.Confirmations < required {
		result.Reason = model.ReasonInsufficientConfirmations
		result.Message = fmt.Sprintf("waiting for confirmations: %d/%d", result.Confirmations, required)
		return result, nil
	}

	result.Verified = true
	result.Message = "payment verified"
	return result, nil
}

// getTransaction returns (nil, false, nil) for a reference the explorer has
// never seen, distinguishing it from transport failures.
func (b *BtcRpc) getTransaction(ctx context.Context, txRef string) (*Transaction, bool, error) {
	url := fmt.Sprintf("%s/tx/%s", b.baseURL, txRef)

	body, status, err := b.get(ctx, url)
	if err != nil {
		return nil, false, err
	}
	if status == http.StatusNotFound {
		return nil, false, nil
	}

	var tx Transaction
	if err := json.Unmarshal(body, &tx); err != nil {
		return nil, false, &chainrpc.TransportError{
			Chain: model.ChainBitcoin,
			Op:    "getTransaction",
			Err:   errors.Wrap(err, "failed to parse transaction"),
		}
	}

	return &tx, true, nil
}

func (b *BtcRpc) confirmations(ctx context.Context, blockHeight uint64) (int64, error) {
	url := fmt.Sprintf("%s/blocks/tip/height", b.baseURL)

	body, _, err := b.get(ctx, url)
	if err != nil {
		return 0, err
	}

	tip, err := strconv.ParseUint(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, &chainrpc.TransportError{
			Chain: model.ChainBitcoin,
			Op:    "confirmations",
			Err:   errors.Wrap(err, "failed to parse tip height"),
		}
	}

	if tip < blockHeight {
		return 0, nil
	}
	return int64(tip - blockHeight), nil
}

// get retries transient failures with a capped exponential backoff before
// giving up and reporting a transport error. 404 is not retried: it is an
// answer.
func (b *BtcRpc) get(ctx context.Context, url string) ([]byte, int, error) {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, 0, &chainrpc.TransportError{Chain: model.ChainBitcoin, Op: "get", Err: err}
		}

		resp, err := b.client.Do(req)
		if err != nil {
			lastErr = errors.Wrap(err, "request failed")
			b.logger.Error("[BtcRpc][get]", map[string]string{
				"url":     url,
				"error":   err.Error(),
				"attempt": strconv.Itoa(attempt),
			})
			if !sleepCtx(ctx, backoffFor(attempt)) {
				break
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = errors.Wrap(err, "failed to read response body")
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			return body, resp.StatusCode, nil
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			b.logger.Error("[BtcRpc][get]", map[string]string{
				"url":        url,
				"statusCode": strconv.Itoa(resp.StatusCode),
				"attempt":    strconv.Itoa(attempt),
			})
			if !sleepCtx(ctx, backoffFor(attempt)) {
				break
			}
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, &chainrpc.TransportError{Chain: model.ChainBitcoin, Op: "get", Err: lastErr}
}

// backoffFor doubles the wait per attempt: 1s, 2s, 4s, capped at maxBackoff.
func backoffFor(attempt int) time.Duration {
	d := time.Second << uint(attempt-1)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
