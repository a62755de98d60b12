package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// maxResponseSize bounds a single JSON-RPC response body.
const maxResponseSize = 10 << 20

// HTTPProvider implements Provider for JSON-RPC over HTTP.
type HTTPProvider struct {
	name       string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	nextID     atomic.Uint64

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int

	Monitor *ProviderMonitor
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// NewHTTPProvider creates a new HTTP-based RPC provider.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:     name,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
		Monitor: NewProviderMonitor(),
	}
}

// WithRateLimit caps outgoing requests to limit per interval.
func (p *HTTPProvider) WithRateLimit(limit int, interval time.Duration) *HTTPProvider {
	if limit > 0 && interval > 0 {
		p.limiter = rate.NewLimiter(rate.Every(interval/time.Duration(limit)), limit)
	}
	return p
}

// Call makes a single JSON-RPC call and decodes the result generically.
func (p *HTTPProvider) Call(ctx context.Context, method string, params []any) (any, error) {
	raw, err := p.CallRaw(ctx, method, params)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("parse result: %w", err)
	}
	return result, nil
}

// CallRaw makes a JSON-RPC call and returns the undecoded result.
func (p *HTTPProvider) CallRaw(ctx context.Context, method string, params []any) (result json.RawMessage, err error) {
	if status := p.Monitor.CheckProviderStatus(); status == StatusThrottled || status == StatusBlocked {
		return nil, &ThrottleError{Provider: p.name, RetryAfter: p.Monitor.GetRetryAfter(), Detail: status.String()}
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	defer func() {
		if err != nil {
			p.recordFailure()
			return
		}
		latency := time.Since(start)
		p.Monitor.RecordRequest(latency)
		p.recordSuccess(latency)
	}()

	if params == nil {
		params = []any{}
	}
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      p.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc call %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return p.decode(resp, body)
}

// decode turns an HTTP response into a result, a node error or a throttle.
func (p *HTTPProvider) decode(resp *http.Response, body []byte) (json.RawMessage, error) {
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		p.Monitor.RecordThrottle(resp.StatusCode, retryAfter)
		return nil, &ThrottleError{Provider: p.name, Status: resp.StatusCode, RetryAfter: p.Monitor.GetRetryAfter()}
	case http.StatusForbidden:
		p.Monitor.RecordThrottle(resp.StatusCode, "")
		return nil, &ThrottleError{Provider: p.name, Status: resp.StatusCode, Detail: "ip blocked"}
	default:
		if p.Monitor.DetectThrottlePattern(string(body)) {
			return nil, &ThrottleError{Provider: p.name, Status: resp.StatusCode, Detail: string(body)}
		}
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var out rpcResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if out.Error != nil {
		if p.Monitor.DetectThrottlePattern(out.Error.Message) {
			return nil, &ThrottleError{Provider: p.name, Detail: out.Error.Message}
		}
		return nil, out.Error
	}
	return out.Result, nil
}

// GetName returns the provider's name.
func (p *HTTPProvider) GetName() string {
	return p.name
}

// GetHealth returns the provider's health with current monitor stats.
func (p *HTTPProvider) GetHealth() HealthStatus {
	p.mu.RLock()
	health := p.health
	p.mu.RUnlock()

	stats := p.Monitor.GetStats()
	health.MonitorStats = &stats
	health.Available = health.Available && p.IsAvailable()
	return health
}

// Close releases idle connections.
func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// IsAvailable reports whether the monitor still lets requests through.
func (p *HTTPProvider) IsAvailable() bool {
	status := p.Monitor.CheckProviderStatus()
	return status == StatusHealthy || status == StatusDegraded
}

func (p *HTTPProvider) recordSuccess(latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.successCount++
	p.totalLatency += latency
	p.health.LastSuccessAt = time.Now()
	p.health.Available = true
	p.updateRatesLocked()
	p.health.Latency = p.totalLatency / time.Duration(p.successCount)
}

func (p *HTTPProvider) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failureCount++
	p.health.LastFailureAt = time.Now()
	p.updateRatesLocked()
	if p.health.ErrorRate > 0.5 {
		p.health.Available = false
	}
}

func (p *HTTPProvider) updateRatesLocked() {
	total := p.successCount + p.failureCount
	p.health.ErrorRate = float64(p.failureCount) / float64(total)
}
