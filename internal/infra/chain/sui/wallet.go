package sui

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/vietddude/bridge/internal/infra/chain"
)

// Signature scheme flag for Ed25519 keys.
const flagEd25519 byte = 0x00

// Intent prefix for transaction data: scope TransactionData, version V0, app Sui.
var transactionIntent = []byte{0, 0, 0}

var (
	ErrNoWallet     = errors.New("no sui wallet configured")
	ErrNotConnected = errors.New("sui wallet not connected")
)

// Signer signs destination-chain transaction bytes for one account.
type Signer interface {
	Address() string
	SignTransaction(ctx context.Context, txBytes []byte) (string, error)
}

var (
	_ Signer                 = (*KeyWallet)(nil)
	_ chain.AccountConnector = (*KeyWallet)(nil)
)

// KeyWallet is a local Ed25519 key acting as the destination wallet. It
// accepts the keystore encoding (base64 of flag and seed), a bare base64
// seed, or a hex seed.
type KeyWallet struct {
	chain  string
	rawKey string

	mu      sync.RWMutex
	key     ed25519.PrivateKey
	address string
}

func NewKeyWallet(chain, key string) *KeyWallet {
	return &KeyWallet{chain: chain, rawKey: strings.TrimSpace(key)}
}

// Chain returns the chain selector the wallet connects to, e.g. sui:mainnet.
func (w *KeyWallet) Chain() string {
	return w.chain
}

func (w *KeyWallet) RequestAccounts(ctx context.Context) ([]string, error) {
	if w.rawKey == "" {
		return nil, ErrNoWallet
	}

	seed, err := decodeSeed(w.rawKey)
	if err != nil {
		return nil, fmt.Errorf("load sui key: %w", err)
	}
	key := ed25519.NewKeyFromSeed(seed)

	w.mu.Lock()
	w.key = key
	w.address = AddressFromPublicKey(key.Public().(ed25519.PublicKey))
	w.mu.Unlock()

	return []string{w.address}, nil
}

func (w *KeyWallet) Address() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.address
}

// SignTransaction returns the serialized signature over txBytes: base64 of
// flag, signature and public key.
func (w *KeyWallet) SignTransaction(ctx context.Context, txBytes []byte) (string, error) {
	w.mu.RLock()
	key := w.key
	w.mu.RUnlock()

	if key == nil {
		return "", ErrNotConnected
	}

	msg := make([]byte, 0, len(transactionIntent)+len(txBytes))
	msg = append(msg, transactionIntent...)
	msg = append(msg, txBytes...)
	digest := blake2b.Sum256(msg)

	sig := ed25519.Sign(key, digest[:])
	pub := key.Public().(ed25519.PublicKey)

	out := make([]byte, 0, 1+len(sig)+len(pub))
	out = append(out, flagEd25519)
	out = append(out, sig...)
	out = append(out, pub...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// AddressFromPublicKey derives the account address for an Ed25519 key.
func AddressFromPublicKey(pub ed25519.PublicKey) string {
	buf := make([]byte, 0, 1+len(pub))
	buf = append(buf, flagEd25519)
	buf = append(buf, pub...)
	sum := blake2b.Sum256(buf)
	return "0x" + hex.EncodeToString(sum[:])
}

func decodeSeed(raw string) ([]byte, error) {
	if s := strings.TrimPrefix(raw, "0x"); len(s) == 2*ed25519.SeedSize {
		if seed, err := hex.DecodeString(s); err == nil {
			return seed, nil
		}
	}

	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("key is neither hex nor base64")
	}
	switch {
	case len(b) == ed25519.SeedSize:
		return b, nil
	case len(b) == ed25519.SeedSize+1 && b[0] == flagEd25519:
		return b[1:], nil
	case len(b) == ed25519.SeedSize+1:
		return nil, fmt.Errorf("unsupported signature scheme flag 0x%02x", b[0])
	}
	return nil, fmt.Errorf("unexpected key length %d", len(b))
}
