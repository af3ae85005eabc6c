package chainrpc

import (
	"errors"
	"fmt"

	"github.com/novaluna/payment-engine/internal/model"
)

// ErrUnsupportedChain and ErrUnsupportedCurrency are configuration errors:
// surfaced immediately, never retried.
var (
	ErrUnsupportedChain    = errors.New("unsupported chain")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

// TransportError wraps node/explorer failures (timeout, connection refused,
// malformed response). It never changes ledger state; callers defer the item
// and retry on a later cycle.
type TransportError struct {
	Chain model.Chain
	Op    string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Chain, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transport failure worth retrying.
func IsRetryable(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
