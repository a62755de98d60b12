package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vietddude/bridge/internal/infra/rpc/provider"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig is used for idempotent reads.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    500 * time.Millisecond,
	MaxDelay:        5 * time.Second,
	BackoffMultiple: 2.0,
}

// Backoff returns the wait before attempt n+1.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	delay := c.InitialDelay
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * c.BackoffMultiple)
		if c.MaxDelay > 0 && delay >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	return delay
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry    ErrorAction = iota // transient, same provider may succeed
	ActionFailover                    // provider refused the request, try another
	ActionFatal                       // the request itself was rejected
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFailover:
		return "failover"
	case ActionFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Provider-side refusals that arrive without a typed error.
var failoverHints = []string{
	"too many requests",
	"rate limit",
	"quota",
	"plan limit",
	"count exceeded",
	"unauthorized",
	"forbidden",
}

// Standard JSON-RPC codes for malformed requests.
var fatalCodes = []string{"-32700", "-32600", "-32601", "-32602"}

// ClassifyError determines the action for a given error.
func ClassifyError(err error) ErrorAction {
	switch {
	case err == nil:
		return ActionRetry
	case errors.Is(err, context.Canceled):
		return ActionFatal
	case errors.Is(err, provider.ErrThrottled),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		return ActionFailover
	}

	// The node answered: the request itself is wrong or was rejected.
	var rpcErr *provider.RPCError
	if errors.As(err, &rpcErr) {
		return ActionFatal
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "403") {
		return ActionFailover
	}
	for _, hint := range failoverHints {
		if strings.Contains(msg, hint) {
			return ActionFailover
		}
	}
	for _, code := range fatalCodes {
		if strings.Contains(msg, code) {
			return ActionFatal
		}
	}

	// Network errors, 5xx and timeouts.
	return ActionRetry
}

// CallWithRetry executes an RPC call with exponential backoff. Only
// ActionRetry errors are retried on the same provider.
func CallWithRetry(
	ctx context.Context,
	p provider.Provider,
	method string,
	params []any,
	config RetryConfig,
) (any, error) {
	attempts := max(config.MaxAttempts, 1)

	var lastErr error
	for attempt := range attempts {
		result, err := p.Call(ctx, method, params)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ClassifyError(err) != ActionRetry || attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(config.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if attempts == 1 || ClassifyError(lastErr) != ActionRetry {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%s failed after %d attempts: %w", method, attempts, lastErr)
}

// CallWithRetryAndFailover tries each usable provider in turn with retry.
// It returns the name of the provider that produced the result or the error.
func CallWithRetryAndFailover(
	ctx context.Context,
	router Router,
	chainID string,
	method string,
	params []any,
	config RetryConfig,
) (any, string, error) {
	return failover(ctx, router, chainID, func(p provider.Provider) (any, error) {
		return CallWithRetry(ctx, p, method, params, config)
	})
}

// SendWithFailover makes one attempt per provider and moves on only when the
// provider refused the request before processing it.
func SendWithFailover(
	ctx context.Context,
	router Router,
	chainID string,
	method string,
	params []any,
) (any, string, error) {
	return failover(ctx, router, chainID, func(p provider.Provider) (any, error) {
		result, err := p.Call(ctx, method, params)
		if err != nil && ClassifyError(err) != ActionFailover {
			return nil, &stopError{err: err}
		}
		return result, err
	})
}

// stopError ends failover for errors that must not reach another provider.
type stopError struct{ err error }

func (e *stopError) Error() string { return e.err.Error() }
func (e *stopError) Unwrap() error { return e.err }

func failover(
	ctx context.Context,
	router Router,
	chainID string,
	call func(p provider.Provider) (any, error),
) (any, string, error) {
	providers := router.GetAllProviders(chainID)
	if len(providers) == 0 {
		return nil, "", fmt.Errorf("no providers for chain %s", chainID)
	}

	var lastErr error
	for _, p := range providers {
		result, err := router.Execute(p, func() (any, error) {
			return call(p)
		})
		if err == nil {
			return result, p.GetName(), nil
		}

		var stop *stopError
		if errors.As(err, &stop) {
			return nil, p.GetName(), stop.err
		}
		if ClassifyError(err) == ActionFatal {
			return nil, p.GetName(), err
		}
		if ctx.Err() != nil {
			return nil, p.GetName(), ctx.Err()
		}
		lastErr = err
	}

	return nil, "", fmt.Errorf("all providers failed: %w", lastErr)
}
