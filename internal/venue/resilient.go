package venue

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cdts/execution/pkg/types"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
)

// ResilientClient decorates a venue client with retry/backoff for
// read-style calls and exception-driven geo disabling. PlaceOrder is never
// retried: order submission is not idempotent.
type ResilientClient struct {
	inner       types.VenueClient
	geo         *GeoBlockRegistry
	maxAttempts int
	baseDelay   time.Duration
	logger      *logrus.Entry
}

// NewResilientClient wraps inner with the default retry policy.
func NewResilientClient(inner types.VenueClient, geo *GeoBlockRegistry) *ResilientClient {
	return &ResilientClient{
		inner:       inner,
		geo:         geo,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      logrus.WithField("component", "resilient-client").WithField("venue", inner.Name()),
	}
}

// Name returns the wrapped venue's identifier.
func (rc *ResilientClient) Name() string { return rc.inner.Name() }

// executeWithRetry runs fn up to rc.maxAttempts times with exponential
// backoff. A geo-block match short-circuits to a neutral zero result; a
// non-transient error or exhausted attempts surface to the caller.
func executeWithRetry[T any](ctx context.Context, rc *ResilientClient, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if rc.geo.TryDisableFromError(rc.inner.Name(), err) {
			return zero, nil
		}
		if attempt >= rc.maxAttempts || !IsTransient(err) {
			return zero, err
		}
		delay := rc.baseDelay * time.Duration(1<<(attempt-1))
		rc.logger.WithError(err).WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
			"delay":   delay.String(),
		}).Debug("transient venue error, backing off")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// ListProducts lists tradable symbols with retry.
func (rc *ResilientClient) ListProducts(ctx context.Context) ([]string, error) {
	return executeWithRetry(ctx, rc, "list-products", rc.inner.ListProducts)
}

// GetCandles fetches OHLCV data with retry.
func (rc *ResilientClient) GetCandles(ctx context.Context, symbol string, granularityMin int, start, end time.Time) ([]types.Candle, error) {
	return executeWithRetry(ctx, rc, "get-candles", func(ctx context.Context) ([]types.Candle, error) {
		return rc.inner.GetCandles(ctx, symbol, granularityMin, start, end)
	})
}

// GetTicker fetches top-of-book with retry.
func (rc *ResilientClient) GetTicker(ctx context.Context, symbol string) (types.Ticker, error) {
	return executeWithRetry(ctx, rc, "get-ticker", func(ctx context.Context) (types.Ticker, error) {
		return rc.inner.GetTicker(ctx, symbol)
	})
}

// GetFees fetches the fee schedule with retry.
func (rc *ResilientClient) GetFees(ctx context.Context) (types.FeeSchedule, error) {
	return executeWithRetry(ctx, rc, "get-fees", rc.inner.GetFees)
}

// GetOpenOrders lists resting orders with retry.
func (rc *ResilientClient) GetOpenOrders(ctx context.Context, symbol string) ([]types.OpenOrder, error) {
	return executeWithRetry(ctx, rc, "get-open-orders", func(ctx context.Context) ([]types.OpenOrder, error) {
		return rc.inner.GetOpenOrders(ctx, symbol)
	})
}

// GetBalances fetches balances with retry.
func (rc *ResilientClient) GetBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	return executeWithRetry(ctx, rc, "get-balances", rc.inner.GetBalances)
}

// CancelOrder cancels with retry; cancellation is idempotent at the venue.
func (rc *ResilientClient) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	return executeWithRetry(ctx, rc, "cancel-order", func(ctx context.Context) (bool, error) {
		return rc.inner.CancelOrder(ctx, orderID)
	})
}

// PlaceOrder submits exactly once. Geo-disabled venues get a rejected
// result rather than an error so callers stay on the fail-closed path.
func (rc *ResilientClient) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	if reason, disabled := rc.geo.Reason(rc.inner.Name()); disabled {
		return types.OrderResult{Accepted: false, Message: "service-disabled:" + reason}, nil
	}

	res, err := rc.inner.PlaceOrder(ctx, req)
	if err != nil {
		if rc.geo.TryDisableFromError(rc.inner.Name(), err) {
			reason, _ := rc.geo.Reason(rc.inner.Name())
			return types.OrderResult{Accepted: false, Message: "service-disabled:" + reason}, nil
		}
		return types.OrderResult{}, err
	}
	return res, nil
}

// IsTransient classifies an error as worth retrying: timeouts, connection
// drops, and HTTP 429/5xx-style throttling.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"429",
		"too many requests",
		"timeout",
		"timed out",
		"connection reset",
		"connection refused",
		"temporarily unavailable",
		"unexpected eof",
		"502",
		"503",
		"504",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
