package storage

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/cenkalti/backoff/v4"

	"github.com/guttosm/idxpulse/internal/logger"
)

const (
	retryInitialInterval = 1 * time.Second
	retryMaxInterval     = 5 * time.Second
	defaultRetryAttempts = 4
)

// retryPolicy wraps remote calls in exponential backoff (1s, 2s, 4s, capped
// at 5s) for the classified-retryable error set. Non-retryable errors fail
// the call immediately.
type retryPolicy struct {
	attempts int
}

func newRetryPolicy(attempts int) retryPolicy {
	if attempts < 1 {
		attempts = defaultRetryAttempts
	}
	return retryPolicy{attempts: attempts}
}

// do runs fn, retrying on retryable errors up to the attempt ceiling.
// The context is honored between attempts, so a cancelled batch stops
// waiting out backoff delays.
func (p retryPolicy) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.MaxInterval = retryMaxInterval
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0 // bounded by attempt count, not wall time

	attempt := 0
	operation := func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.L().Warn().
			Str("op", op).
			Int("attempt", attempt).
			Dur("wait", wait).
			Err(err).
			Msg("remote call retry")
	}

	wrapped := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.attempts-1)), ctx)
	return backoff.RetryNotify(operation, wrapped, notify)
}

// IsRetryable classifies an error as transient. Retryable kinds: network
// timeouts, connection reset/refused, DNS failure, HTTP 5xx from the store,
// and SDK deserialization errors (truncated/garbled responses). Context
// cancellation and everything else is permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() >= 500 {
		return true
	}
	var deserErr *smithy.DeserializationError
	return errors.As(err, &deserErr)
}
