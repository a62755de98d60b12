// Package wallet exposes the connected account on each chain.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	logger "log/slog"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/chain"
)

// ErrNoAccounts is returned when the wallet answers with an empty list.
var ErrNoAccounts = errors.New("wallet returned no accounts")

// Connector is the injected wallet handle for one chain.
type Connector = chain.AccountConnector

// Provider connects a wallet on one chain and caches the first account it
// returns. Accounts live only in memory.
type Provider struct {
	kind      domain.ChainKind
	connector Connector
	log       *logger.Logger

	mu      sync.RWMutex
	account domain.Account
}

func NewProvider(kind domain.ChainKind, connector Connector) *Provider {
	return &Provider{
		kind:      kind,
		connector: connector,
		log:       logger.Default().With("component", "wallet", "chain", kind),
	}
}

// Connect asks the wallet for accounts and keeps the first one. Any failure
// is reported as a connection error and leaves the previous account intact.
func (p *Provider) Connect(ctx context.Context) (domain.Account, error) {
	if p.connector == nil {
		return domain.Account{}, domain.NewConnectionError(fmt.Errorf("no %s wallet available", p.kind))
	}

	accounts, err := p.connector.RequestAccounts(ctx)
	if err != nil {
		return domain.Account{}, domain.NewConnectionError(err)
	}
	if len(accounts) == 0 || accounts[0] == "" {
		return domain.Account{}, domain.NewConnectionError(ErrNoAccounts)
	}

	acc := domain.Account{Kind: p.kind, Address: accounts[0]}

	p.mu.Lock()
	p.account = acc
	p.mu.Unlock()

	p.log.Info("Wallet connected", "address", acc.Address)
	return acc, nil
}

// Current returns the cached account without touching the wallet.
func (p *Provider) Current() (domain.Account, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.account, !p.account.IsZero()
}

func (p *Provider) Disconnect() {
	p.mu.Lock()
	p.account = domain.Account{}
	p.mu.Unlock()
}

func (p *Provider) Kind() domain.ChainKind {
	return p.kind
}
