package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/bridge/internal/core/domain"
)

type mockConnector struct {
	accounts []string
	err      error
	calls    int
}

func (m *mockConnector) RequestAccounts(ctx context.Context) ([]string, error) {
	m.calls++
	return m.accounts, m.err
}

func TestProvider_Connect(t *testing.T) {
	conn := &mockConnector{accounts: []string{"0xabc", "0xdef"}}
	p := NewProvider(domain.ChainSource, conn)

	if _, ok := p.Current(); ok {
		t.Fatal("expected no account before connect")
	}

	acc, err := p.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if acc.Address != "0xabc" || acc.Kind != domain.ChainSource {
		t.Errorf("unexpected account %+v", acc)
	}

	cur, ok := p.Current()
	if !ok || cur != acc {
		t.Errorf("Current = %+v, %v", cur, ok)
	}
	if conn.calls != 1 {
		t.Errorf("Current must not call the wallet, calls=%d", conn.calls)
	}

	p.Disconnect()
	if _, ok := p.Current(); ok {
		t.Error("expected no account after disconnect")
	}
}

func TestProvider_ConnectFailures(t *testing.T) {
	tests := []struct {
		name string
		conn Connector
	}{
		{"no wallet", nil},
		{"declined", &mockConnector{err: errors.New("user rejected the request")}},
		{"no accounts", &mockConnector{}},
		{"empty address", &mockConnector{accounts: []string{""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider(domain.ChainDestination, tt.conn)
			_, err := p.Connect(context.Background())
			if !errors.Is(err, domain.ErrConnection) {
				t.Fatalf("expected connection error, got %v", err)
			}
			if _, ok := p.Current(); ok {
				t.Error("failed connect must not cache an account")
			}
		})
	}
}

func TestProvider_FailedReconnectKeepsAccount(t *testing.T) {
	conn := &mockConnector{accounts: []string{"0xabc"}}
	p := NewProvider(domain.ChainSource, conn)
	if _, err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	conn.err = errors.New("locked")
	if _, err := p.Connect(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if acc, ok := p.Current(); !ok || acc.Address != "0xabc" {
		t.Errorf("Current = %+v, %v", acc, ok)
	}
}
