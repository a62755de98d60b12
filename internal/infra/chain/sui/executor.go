package sui

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	logger "log/slog"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/chain"
)

// ErrExecutionFailed is returned when a transaction's effects report failure.
var ErrExecutionFailed = errors.New("transaction execution failed")

// ErrWrongChain is returned when the node serves a different chain than the
// wallet's chain selector.
var ErrWrongChain = errors.New("node is on a different sui chain")

// chainIdentifiers maps selectors to the genesis checkpoint digest prefix
// returned by sui_getChainIdentifier. Devnet is reset regularly and has none.
var chainIdentifiers = map[string]string{
	domain.SuiMainnet: "35834a8a",
	domain.SuiTestnet: "4c78adac",
}

// RPCClient is the subset of rpc.Client the executor needs.
type RPCClient interface {
	CallInto(ctx context.Context, out any, method string, params ...any) error
	SendInto(ctx context.Context, out any, method string, params ...any) error
}

type ExecutorConfig struct {
	// Chain is the expected chain selector. Empty skips the node check.
	Chain        string
	GasBudget    uint64
	PollInterval time.Duration
}

// Ensure Executor implements chain.DestinationExecutor
var _ chain.DestinationExecutor = (*Executor)(nil)

// Executor builds, signs and executes Move calls on Sui over JSON-RPC.
type Executor struct {
	client RPCClient
	signer Signer
	cfg    ExecutorConfig
	log    *logger.Logger

	mu       sync.Mutex
	verified bool
}

func NewExecutor(client RPCClient, signer Signer, cfg ExecutorConfig) *Executor {
	if cfg.GasBudget == 0 {
		cfg.GasBudget = 10_000_000
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Executor{
		client: client,
		signer: signer,
		cfg:    cfg,
		log:    logger.Default().With("component", "sui"),
	}
}

type transactionBytes struct {
	TxBytes string `json:"txBytes"`
}

type executionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type gasCostSummary struct {
	ComputationCost string `json:"computationCost"`
	StorageCost     string `json:"storageCost"`
	StorageRebate   string `json:"storageRebate"`
}

type transactionBlock struct {
	Digest     string `json:"digest"`
	Checkpoint string `json:"checkpoint,omitempty"`
	Effects    *struct {
		Status  executionStatus `json:"status"`
		GasUsed gasCostSummary  `json:"gasUsed"`
	} `json:"effects,omitempty"`
}

// Execute builds the transaction for call, signs it and submits it once.
// It returns the transaction digest.
func (e *Executor) Execute(ctx context.Context, call *domain.MoveCall) (string, error) {
	if call == nil {
		return "", errors.New("missing move call")
	}
	if call.Kind != domain.MoveCallKind {
		return "", fmt.Errorf("unsupported call kind %q", call.Kind)
	}
	sender := e.signer.Address()
	if sender == "" {
		return "", ErrNotConnected
	}
	if err := e.verifyChain(ctx); err != nil {
		return "", err
	}

	args := make([]any, len(call.Arguments))
	for i, a := range call.Arguments {
		args[i] = a
	}

	var built transactionBytes
	if err := e.client.CallInto(ctx, &built, "unsafe_moveCall",
		sender,
		call.PackageID,
		call.Module,
		call.Function,
		call.TypeArguments,
		args,
		nil,
		strconv.FormatUint(e.cfg.GasBudget, 10),
	); err != nil {
		return "", fmt.Errorf("unsafe_moveCall failed: %w", err)
	}

	txBytes, err := base64.StdEncoding.DecodeString(built.TxBytes)
	if err != nil || len(txBytes) == 0 {
		return "", fmt.Errorf("invalid transaction bytes from node")
	}

	sig, err := e.signer.SignTransaction(ctx, txBytes)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	var res transactionBlock
	if err := e.client.SendInto(ctx, &res, "sui_executeTransactionBlock",
		built.TxBytes,
		[]string{sig},
		map[string]bool{"showEffects": true},
		"WaitForLocalExecution",
	); err != nil {
		return "", fmt.Errorf("sui_executeTransactionBlock failed: %w", err)
	}
	if res.Digest == "" {
		return "", errors.New("node returned no transaction digest")
	}

	e.log.Info("Transaction submitted", "target", call.Target(), "digest", res.Digest)
	return res.Digest, nil
}

// AwaitConfirmation polls until the transaction is known to the node with
// effects, or ctx ends.
func (e *Executor) AwaitConfirmation(ctx context.Context, digest string) (domain.Receipt, error) {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		var tx transactionBlock
		err := e.client.CallInto(ctx, &tx, "sui_getTransactionBlock", digest, map[string]bool{"showEffects": true})
		if err != nil {
			lastErr = err
			e.log.Debug("Transaction not yet available", "digest", digest, "error", err)
		} else if tx.Effects != nil {
			receipt := domain.Receipt{
				TxID:    digest,
				Block:   parseUint(tx.Checkpoint),
				GasUsed: gasUsed(tx.Effects.GasUsed),
				Status:  domain.TxStatusSuccess,
			}
			if tx.Effects.Status.Status != "success" {
				receipt.Status = domain.TxStatusReverted
				return receipt, fmt.Errorf("%w: %s", ErrExecutionFailed, tx.Effects.Status.Error)
			}
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return domain.Receipt{}, fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			}
			return domain.Receipt{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func gasUsed(g gasCostSummary) uint64 {
	total := parseUint(g.ComputationCost) + parseUint(g.StorageCost)
	rebate := parseUint(g.StorageRebate)
	if rebate > total {
		return 0
	}
	return total - rebate
}

func parseUint(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}

// verifyChain checks once that the node serves the configured chain. A failed
// lookup is retried on the next call; a mismatch is returned every time.
func (e *Executor) verifyChain(ctx context.Context) error {
	want, ok := chainIdentifiers[e.cfg.Chain]
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.verified {
		return nil
	}

	var got string
	if err := e.client.CallInto(ctx, &got, "sui_getChainIdentifier"); err != nil {
		return fmt.Errorf("sui_getChainIdentifier failed: %w", err)
	}
	if got != want {
		return fmt.Errorf("%w: expected %s (%s), node reports %s", ErrWrongChain, e.cfg.Chain, want, got)
	}
	e.verified = true
	e.log.Debug("node chain verified", "chain", e.cfg.Chain, "identifier", got)
	return nil
}
