package sui

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/vietddude/bridge/internal/core/domain"
)

const testSeedHex = "0101010101010101010101010101010101010101010101010101010101010101"

type fakeNode struct {
	mu       sync.Mutex
	handlers map[string]func(params []any) (any, error)
	calls    map[string][][]any
	sends    int
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		handlers: make(map[string]func([]any) (any, error)),
		calls:    make(map[string][][]any),
	}
}

func (n *fakeNode) on(method string, result any) {
	n.handlers[method] = func([]any) (any, error) { return result, nil }
}

func (n *fakeNode) CallInto(ctx context.Context, out any, method string, params ...any) error {
	n.mu.Lock()
	n.calls[method] = append(n.calls[method], params)
	h, ok := n.handlers[method]
	n.mu.Unlock()
	if !ok {
		return fmt.Errorf("unexpected method %s", method)
	}
	result, err := h(params)
	if err != nil || result == nil {
		return err
	}
	data, _ := json.Marshal(result)
	return json.Unmarshal(data, out)
}

func (n *fakeNode) SendInto(ctx context.Context, out any, method string, params ...any) error {
	n.mu.Lock()
	n.sends++
	n.mu.Unlock()
	return n.CallInto(ctx, out, method, params...)
}

func connectedWallet(t *testing.T) *KeyWallet {
	t.Helper()
	w := NewKeyWallet(domain.SuiMainnet, testSeedHex)
	if _, err := w.RequestAccounts(context.Background()); err != nil {
		t.Fatalf("RequestAccounts: %v", err)
	}
	return w
}

func mintCall(t *testing.T) *domain.MoveCall {
	t.Helper()
	pkg := "0x2c5d"
	call, err := domain.NewMoveCall(pkg, "suipart", "mint",
		[]string{domain.TypeTag(pkg, "suipart", "SUIPART")},
		[]string{domain.TypeTag(pkg, "suipart", "SUIPART"), "1500000000000000000000", "0xabc"},
	)
	if err != nil {
		t.Fatalf("NewMoveCall: %v", err)
	}
	return call
}

func TestKeyWallet_KeyEncodings(t *testing.T) {
	seed, _ := hex.DecodeString(testSeedHex)
	keystore := base64.StdEncoding.EncodeToString(append([]byte{flagEd25519}, seed...))

	want := connectedWallet(t).Address()
	for _, raw := range []string{testSeedHex, "0x" + testSeedHex, base64.StdEncoding.EncodeToString(seed), keystore} {
		w := NewKeyWallet(domain.SuiMainnet, raw)
		accounts, err := w.RequestAccounts(context.Background())
		if err != nil {
			t.Fatalf("RequestAccounts(%q): %v", raw, err)
		}
		if accounts[0] != want {
			t.Errorf("address for %q = %s, want %s", raw, accounts[0], want)
		}
	}

	if _, err := NewKeyWallet(domain.SuiMainnet, "").RequestAccounts(context.Background()); !errors.Is(err, ErrNoWallet) {
		t.Errorf("expected ErrNoWallet, got %v", err)
	}
	secp := base64.StdEncoding.EncodeToString(append([]byte{0x01}, seed...))
	if _, err := NewKeyWallet(domain.SuiMainnet, secp).RequestAccounts(context.Background()); err == nil {
		t.Error("expected error for non-ed25519 key")
	}
}

func TestKeyWallet_Address(t *testing.T) {
	w := connectedWallet(t)
	addr := w.Address()
	if !strings.HasPrefix(addr, "0x") || len(addr) != 66 {
		t.Fatalf("address %q is not a 32-byte hex address", addr)
	}

	seed, _ := hex.DecodeString(testSeedHex)
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	sum := blake2b.Sum256(append([]byte{0x00}, pub...))
	if addr != "0x"+hex.EncodeToString(sum[:]) {
		t.Errorf("address = %s", addr)
	}
}

func TestKeyWallet_SignTransaction(t *testing.T) {
	if _, err := NewKeyWallet(domain.SuiMainnet, testSeedHex).SignTransaction(context.Background(), []byte{1}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}

	w := connectedWallet(t)
	txBytes := []byte("transaction data")
	encoded, err := w.SignTransaction(context.Background(), txBytes)
	if err != nil {
		t.Fatalf("SignTransaction: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	if len(raw) != 1+ed25519.SignatureSize+ed25519.PublicKeySize || raw[0] != flagEd25519 {
		t.Fatalf("unexpected signature layout, len=%d flag=%x", len(raw), raw[0])
	}
	sig := raw[1 : 1+ed25519.SignatureSize]
	pub := ed25519.PublicKey(raw[1+ed25519.SignatureSize:])

	digest := blake2b.Sum256(append([]byte{0, 0, 0}, txBytes...))
	if !ed25519.Verify(pub, digest[:], sig) {
		t.Error("signature does not verify over the intent digest")
	}
}

func TestExecutor_Execute(t *testing.T) {
	node := newFakeNode()
	node.on("unsafe_moveCall", map[string]any{"txBytes": base64.StdEncoding.EncodeToString([]byte("tx"))})
	node.on("sui_executeTransactionBlock", map[string]any{"digest": "Dig3st"})

	w := connectedWallet(t)
	e := NewExecutor(node, w, ExecutorConfig{GasBudget: 5_000_000})

	call := mintCall(t)
	digest, err := e.Execute(context.Background(), call)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if digest != "Dig3st" {
		t.Errorf("digest = %s", digest)
	}
	if node.sends != 1 {
		t.Errorf("sends = %d, want 1", node.sends)
	}

	build := node.calls["unsafe_moveCall"][0]
	if build[0] != w.Address() || build[1] != call.PackageID || build[2] != "suipart" || build[3] != "mint" {
		t.Errorf("unexpected move call params %v", build[:4])
	}
	if build[7] != "5000000" {
		t.Errorf("gas budget = %v", build[7])
	}
	args := build[5].([]any)
	if len(args) != 3 || args[1] != "1500000000000000000000" || args[2] != "0xabc" {
		t.Errorf("arguments = %v", args)
	}
}

func TestExecutor_ExecuteRejections(t *testing.T) {
	node := newFakeNode()
	e := NewExecutor(node, NewKeyWallet(domain.SuiMainnet, testSeedHex), ExecutorConfig{})
	if _, err := e.Execute(context.Background(), mintCall(t)); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	e = NewExecutor(node, connectedWallet(t), ExecutorConfig{})
	bad := *mintCall(t)
	bad.Kind = "transferObjects"
	if _, err := e.Execute(context.Background(), &bad); err == nil {
		t.Error("expected error for unsupported kind")
	}
	if node.sends != 0 {
		t.Errorf("sends = %d, want 0", node.sends)
	}
}

func TestExecutor_VerifiesNodeChain(t *testing.T) {
	t.Run("match checked once", func(t *testing.T) {
		node := newFakeNode()
		node.on("sui_getChainIdentifier", "35834a8a")
		node.on("unsafe_moveCall", map[string]any{"txBytes": base64.StdEncoding.EncodeToString([]byte("tx"))})
		node.on("sui_executeTransactionBlock", map[string]any{"digest": "Dig3st"})

		w := connectedWallet(t)
		e := NewExecutor(node, w, ExecutorConfig{Chain: w.Chain()})
		for i := 0; i < 2; i++ {
			if _, err := e.Execute(context.Background(), mintCall(t)); err != nil {
				t.Fatalf("Execute #%d: %v", i, err)
			}
		}
		if got := len(node.calls["sui_getChainIdentifier"]); got != 1 {
			t.Errorf("chain identifier lookups = %d, want 1", got)
		}
	})

	t.Run("mismatch blocks submission", func(t *testing.T) {
		node := newFakeNode()
		node.on("sui_getChainIdentifier", "4c78adac")
		node.on("unsafe_moveCall", map[string]any{"txBytes": base64.StdEncoding.EncodeToString([]byte("tx"))})
		node.on("sui_executeTransactionBlock", map[string]any{"digest": "Dig3st"})

		e := NewExecutor(node, connectedWallet(t), ExecutorConfig{Chain: domain.SuiMainnet})
		if _, err := e.Execute(context.Background(), mintCall(t)); !errors.Is(err, ErrWrongChain) {
			t.Fatalf("expected ErrWrongChain, got %v", err)
		}
		if len(node.calls["unsafe_moveCall"]) != 0 || node.sends != 0 {
			t.Errorf("nothing should be built or sent on the wrong chain, sends = %d", node.sends)
		}
	})

	t.Run("devnet skips the check", func(t *testing.T) {
		node := newFakeNode()
		node.on("unsafe_moveCall", map[string]any{"txBytes": base64.StdEncoding.EncodeToString([]byte("tx"))})
		node.on("sui_executeTransactionBlock", map[string]any{"digest": "Dig3st"})

		e := NewExecutor(node, connectedWallet(t), ExecutorConfig{Chain: domain.SuiDevnet})
		if _, err := e.Execute(context.Background(), mintCall(t)); err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if got := len(node.calls["sui_getChainIdentifier"]); got != 0 {
			t.Errorf("chain identifier lookups = %d, want 0", got)
		}
	})
}

func TestExecutor_AwaitConfirmation(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		node := newFakeNode()
		var polls int
		node.handlers["sui_getTransactionBlock"] = func([]any) (any, error) {
			polls++
			if polls == 1 {
				return nil, errors.New("could not find the referenced transaction")
			}
			return map[string]any{
				"digest":     "Dig3st",
				"checkpoint": "42",
				"effects": map[string]any{
					"status":  map[string]any{"status": "success"},
					"gasUsed": map[string]any{"computationCost": "1000", "storageCost": "500", "storageRebate": "200"},
				},
			}, nil
		}
		e := NewExecutor(node, connectedWallet(t), ExecutorConfig{PollInterval: 5 * time.Millisecond})

		receipt, err := e.AwaitConfirmation(context.Background(), "Dig3st")
		if err != nil {
			t.Fatalf("AwaitConfirmation: %v", err)
		}
		if receipt.Block != 42 || receipt.GasUsed != 1300 || receipt.Status != domain.TxStatusSuccess {
			t.Errorf("unexpected receipt %+v", receipt)
		}
	})

	t.Run("failure", func(t *testing.T) {
		node := newFakeNode()
		node.on("sui_getTransactionBlock", map[string]any{
			"digest":  "Dig3st",
			"effects": map[string]any{"status": map[string]any{"status": "failure", "error": "MoveAbort"}},
		})
		e := NewExecutor(node, connectedWallet(t), ExecutorConfig{PollInterval: 5 * time.Millisecond})

		_, err := e.AwaitConfirmation(context.Background(), "Dig3st")
		if !errors.Is(err, ErrExecutionFailed) {
			t.Fatalf("expected ErrExecutionFailed, got %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		node := newFakeNode()
		node.on("sui_getTransactionBlock", map[string]any{"digest": "Dig3st"})
		e := NewExecutor(node, connectedWallet(t), ExecutorConfig{PollInterval: 5 * time.Millisecond})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := e.AwaitConfirmation(ctx, "Dig3st"); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
	})
}
