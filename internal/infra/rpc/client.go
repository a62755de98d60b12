package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vietddude/bridge/internal/infra/rpc/provider"
	"github.com/vietddude/bridge/internal/infra/rpc/routing"
	"github.com/vietddude/bridge/internal/metrics"
)

// Client is the high-level interface for making RPC calls on one chain.
// This is what chain adapters should use.
type Client struct {
	router  routing.Router
	chainID string
	retry   routing.RetryConfig
}

// NewClient creates a new RPC client.
func NewClient(chainID string, router routing.Router) *Client {
	return &Client{
		chainID: chainID,
		router:  router,
		retry:   routing.DefaultRetryConfig,
	}
}

// WithRetryConfig overrides the retry policy used for reads.
func (c *Client) WithRetryConfig(cfg routing.RetryConfig) *Client {
	c.retry = cfg
	return c
}

// ChainID returns the chain this client talks to.
func (c *Client) ChainID() string {
	return c.chainID
}

// Call makes an idempotent RPC call with retry and provider failover.
func (c *Client) Call(ctx context.Context, method string, params []any) (any, error) {
	start := time.Now()
	result, name, err := routing.CallWithRetryAndFailover(ctx, c.router, c.chainID, method, params, c.retry)
	c.observe(name, method, start, err)
	return result, err
}

// Send never repeats a request on the same provider. Use it for calls with
// on-chain side effects. It moves to the next provider only when one refused
// the request outright (throttled or circuit open).
func (c *Client) Send(ctx context.Context, method string, params []any) (any, error) {
	start := time.Now()
	result, name, err := routing.SendWithFailover(ctx, c.router, c.chainID, method, params)
	c.observe(name, method, start, err)
	return result, err
}

// CallInto is Call with the result decoded into out.
func (c *Client) CallInto(ctx context.Context, out any, method string, params ...any) error {
	result, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}
	return decode(result, out)
}

// SendInto is Send with the result decoded into out.
func (c *Client) SendInto(ctx context.Context, out any, method string, params ...any) error {
	result, err := c.Send(ctx, method, params)
	if err != nil {
		return err
	}
	return decode(result, out)
}

func (c *Client) observe(providerName, method string, start time.Time, err error) {
	metrics.RPCLatency.WithLabelValues(c.chainID, method).Observe(time.Since(start).Seconds())
	metrics.RPCCallsTotal.WithLabelValues(c.chainID, providerName, method).Inc()
	if err != nil {
		metrics.RPCErrorsTotal.WithLabelValues(c.chainID, providerName, routing.ClassifyError(err).String()).Inc()
	}
}

func decode(result any, out any) error {
	if out == nil || result == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("re-encode result: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode result into %T: %w", out, err)
	}
	return nil
}

// ProviderHealth returns the health of every provider registered for the chain.
func (c *Client) ProviderHealth() map[string]provider.HealthStatus {
	return c.router.Health(c.chainID)
}
