// Package rpc provides a resilient JSON-RPC client for blockchain networks.
//
// This package offers:
//   - Multiple provider support with round-robin selection
//   - Circuit breaking and failover for idempotent reads
//   - Single-shot sends for calls with on-chain side effects
//
// # Quick Start
//
//	router := rpc.NewRouter()
//	router.AddProvider("1", rpc.NewHTTPProvider("alchemy", alchemyURL, 30*time.Second))
//	router.AddProvider("1", rpc.NewHTTPProvider("infura", infuraURL, 30*time.Second))
//
//	client := rpc.NewClient("1", router)
//	var head string
//	err := client.CallInto(ctx, &head, "eth_blockNumber")
//
// # Package Structure
//
//   - provider/ - Provider implementations (HTTPProvider, monitoring)
//   - routing/  - Provider selection, circuit breaking, retry logic
package rpc

import (
	"time"

	"github.com/vietddude/bridge/internal/infra/rpc/provider"
	"github.com/vietddude/bridge/internal/infra/rpc/routing"
)

// Provider is the core interface for RPC endpoints.
type Provider = provider.Provider

// HTTPProvider implements Provider for JSON-RPC over HTTP.
type HTTPProvider = provider.HTTPProvider

// HealthStatus represents the health state of a provider.
type HealthStatus = provider.HealthStatus

// RPCError is a JSON-RPC error object returned by a node.
type RPCError = provider.RPCError

// Router handles provider selection and health tracking.
type Router = routing.Router

// NewHTTPProvider creates a new HTTP-based RPC provider.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return provider.NewHTTPProvider(name, endpoint, timeout)
}

// NewRouter creates a new router.
func NewRouter() *routing.DefaultRouter {
	return routing.NewRouter()
}
