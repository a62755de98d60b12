package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vietddude/bridge/internal/infra/chain"
)

var (
	ErrNoWallet     = errors.New("no ethereum wallet configured")
	ErrNotConnected = errors.New("ethereum wallet not connected")
)

// Signer signs source-chain transactions for one account.
type Signer interface {
	Address() common.Address
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

var (
	_ Signer                 = (*KeyWallet)(nil)
	_ chain.AccountConnector = (*KeyWallet)(nil)
)

// KeyWallet is a local secp256k1 key acting as the injected wallet. The key
// is only parsed when an account is requested.
type KeyWallet struct {
	rawKey string

	mu      sync.RWMutex
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewKeyWallet(hexKey string) *KeyWallet {
	return &KeyWallet{rawKey: strings.TrimSpace(hexKey)}
}

// RequestAccounts loads the key and returns its checksummed address.
func (w *KeyWallet) RequestAccounts(ctx context.Context) ([]string, error) {
	if w.rawKey == "" {
		return nil, ErrNoWallet
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(w.rawKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("load ethereum key: %w", err)
	}

	w.mu.Lock()
	w.key = key
	w.address = crypto.PubkeyToAddress(key.PublicKey)
	w.mu.Unlock()

	return []string{w.address.Hex()}, nil
}

func (w *KeyWallet) Address() common.Address {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.address
}

// SignTx signs tx with the latest signer for chainID.
func (w *KeyWallet) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	w.mu.RLock()
	key := w.key
	w.mu.RUnlock()

	if key == nil {
		return nil, ErrNotConnected
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
}
