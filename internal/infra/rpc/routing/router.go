// Package routing handles provider selection, circuit breaking and failover.
//
// This package contains:
//   - Router: interface for provider selection and health tracking
//   - DefaultRouter: round-robin selection guarded by per-provider circuit breakers
//   - Retry: retry logic with exponential backoff and failover
package routing

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vietddude/bridge/internal/infra/rpc/provider"
)

// Router handles provider selection and health tracking.
type Router interface {
	// AddProvider registers a provider for a specific chain
	AddProvider(chainID string, p provider.Provider)

	// GetProvider returns the next available provider for a chain
	GetProvider(chainID string) (provider.Provider, error)

	// GetAllProviders returns the usable providers for a chain, preferred first
	GetAllProviders(chainID string) []provider.Provider

	// Execute runs fn against p through the provider's circuit breaker
	Execute(p provider.Provider, fn func() (any, error)) (any, error)

	// Health reports every registered provider, including unusable ones
	Health(chainID string) map[string]provider.HealthStatus
}

// DefaultRouter implements round-robin provider selection with circuit breakers.
type DefaultRouter struct {
	mu             sync.RWMutex
	chainProviders map[string][]provider.Provider
	breakers       map[string]*gobreaker.CircuitBreaker
	lastUsedIndex  map[string]int
	log            *slog.Logger
}

// NewRouter creates a new router.
func NewRouter() *DefaultRouter {
	return &DefaultRouter{
		chainProviders: make(map[string][]provider.Provider),
		breakers:       make(map[string]*gobreaker.CircuitBreaker),
		lastUsedIndex:  make(map[string]int),
		log:            slog.Default(),
	}
}

// AddProvider registers a provider for a chain.
func (r *DefaultRouter) AddProvider(chainID string, p provider.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.chainProviders[chainID] = append(r.chainProviders[chainID], p)
	r.breakers[p.GetName()] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        p.GetName(),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A node that answered with an application error is healthy.
		IsSuccessful: func(err error) bool {
			return err == nil || ClassifyError(err) == ActionFatal
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.log.Warn("RPC provider circuit changed",
				"provider", name, "from", from.String(), "to", to.String())
		},
	})
}

// GetProvider returns the next available provider for a chain.
func (r *DefaultRouter) GetProvider(chainID string) (provider.Provider, error) {
	available := r.GetAllProviders(chainID)
	if len(available) == 0 {
		return nil, fmt.Errorf("no available providers for chain %s", chainID)
	}
	return available[0], nil
}

// GetAllProviders returns usable providers starting at the round-robin cursor.
// Providers with an open circuit or a blocked monitor are skipped.
func (r *DefaultRouter) GetAllProviders(chainID string) []provider.Provider {
	r.mu.Lock()
	defer r.mu.Unlock()

	providers := r.chainProviders[chainID]
	if len(providers) == 0 {
		return nil
	}

	start := r.lastUsedIndex[chainID] % len(providers)
	r.lastUsedIndex[chainID] = (start + 1) % len(providers)

	result := make([]provider.Provider, 0, len(providers))
	for i := 0; i < len(providers); i++ {
		p := providers[(start+i)%len(providers)]
		if cb, ok := r.breakers[p.GetName()]; ok && cb.State() == gobreaker.StateOpen {
			continue
		}
		if !p.IsAvailable() {
			continue
		}
		result = append(result, p)
	}
	return result
}

// Execute runs fn through the provider's circuit breaker.
func (r *DefaultRouter) Execute(p provider.Provider, fn func() (any, error)) (any, error) {
	r.mu.RLock()
	cb, ok := r.breakers[p.GetName()]
	r.mu.RUnlock()

	if !ok {
		return fn()
	}
	return cb.Execute(fn)
}

// Health reports every provider registered for a chain without moving the
// round-robin cursor. A provider with an open circuit is reported unavailable.
func (r *DefaultRouter) Health(chainID string) map[string]provider.HealthStatus {
	r.mu.RLock()
	providers := append([]provider.Provider(nil), r.chainProviders[chainID]...)
	breakers := make(map[string]*gobreaker.CircuitBreaker, len(providers))
	for _, p := range providers {
		breakers[p.GetName()] = r.breakers[p.GetName()]
	}
	r.mu.RUnlock()

	out := make(map[string]provider.HealthStatus, len(providers))
	for _, p := range providers {
		h := p.GetHealth()
		if cb := breakers[p.GetName()]; cb != nil && cb.State() == gobreaker.StateOpen {
			h.Available = false
		}
		out[p.GetName()] = h
	}
	return out
}
