// Package provider implements RPC provider interfaces.
//
// This package contains:
//   - Provider interface: core abstraction for JSON-RPC endpoints
//   - HTTPProvider: JSON-RPC 2.0 over HTTP with client-side rate limiting
//   - ProviderMonitor: health and throttle tracking
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider defines the interface for a JSON-RPC endpoint.
type Provider interface {
	// GetName returns provider identifier (e.g., "alchemy", "infura")
	GetName() string

	// GetHealth returns current health metrics
	GetHealth() HealthStatus

	// IsAvailable checks if the provider is healthy enough to use
	IsAvailable() bool

	// Call makes a single RPC request
	Call(ctx context.Context, method string, params []any) (any, error)

	// Close cleans up resources
	Close() error
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool
	Latency       time.Duration
	ErrorRate     float64
	LastSuccessAt time.Time
	LastFailureAt time.Time
	MonitorStats  *MonitorStats `json:"monitor_stats,omitempty"`
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// ErrThrottled matches every ThrottleError.
var ErrThrottled = errors.New("provider throttled")

// ThrottleError reports that a provider refused work because of rate limits,
// quotas or an IP block. Another provider may still serve the request.
type ThrottleError struct {
	Provider   string
	Status     int // HTTP status, 0 when detected from the message body
	RetryAfter time.Duration
	Detail     string
}

func (e *ThrottleError) Error() string {
	msg := fmt.Sprintf("provider %s throttled", e.Provider)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (http %d)", e.Status)
	}
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(", retry after %s", e.RetryAfter.Round(time.Second))
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ThrottleError) Is(target error) bool {
	return target == ErrThrottled
}
