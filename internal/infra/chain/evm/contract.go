package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	logger "log/slog"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/chain"
)

// ErrReverted is returned when a mined transaction has a failed status.
var ErrReverted = errors.New("transaction reverted")

// gasHeadroom is applied to eth_estimateGas results, in percent.
const gasHeadroom = 120

// RPCClient is the subset of rpc.Client the contract needs. Reads go through
// CallInto and may be retried; broadcasts go through SendInto exactly once.
type RPCClient interface {
	CallInto(ctx context.Context, out any, method string, params ...any) error
	SendInto(ctx context.Context, out any, method string, params ...any) error
}

type ContractConfig struct {
	ChainID       *big.Int
	Address       common.Address
	Confirmations uint64
	PollInterval  time.Duration
}

// Ensure Contract implements chain.SourceContract
var _ chain.SourceContract = (*Contract)(nil)

// Contract submits bridge token calls to the source chain and waits for
// their receipts.
type Contract struct {
	client RPCClient
	signer Signer
	abi    abi.ABI
	cfg    ContractConfig
	log    *logger.Logger
}

func NewContract(client RPCClient, signer Signer, cfg ContractConfig) (*Contract, error) {
	parsed, err := BridgeTokenABI()
	if err != nil {
		return nil, err
	}
	if cfg.ChainID == nil || cfg.ChainID.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain id %v", cfg.ChainID)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Confirmations == 0 {
		cfg.Confirmations = 1
	}
	return &Contract{
		client: client,
		signer: signer,
		abi:    parsed,
		cfg:    cfg,
		log:    logger.Default().With("component", "evm", "chain", cfg.ChainID.String()),
	}, nil
}

// Submit signs and broadcasts the contract call for kind and returns the
// transaction hash.
func (c *Contract) Submit(ctx context.Context, kind domain.StepKind, p domain.SubmitParams) (string, error) {
	from := c.signer.Address()
	if from == (common.Address{}) {
		return "", ErrNotConnected
	}
	if p.From != "" && !strings.EqualFold(p.From, from.Hex()) {
		return "", fmt.Errorf("sender %s is not the connected account %s", p.From, from.Hex())
	}

	value, data, err := c.pack(kind, p)
	if err != nil {
		return "", err
	}

	tx, err := c.buildTx(ctx, from, value, data)
	if err != nil {
		return "", err
	}

	signed, err := c.signer.SignTx(ctx, tx, c.cfg.ChainID)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encode transaction: %w", err)
	}

	var hash string
	if err := c.client.SendInto(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(raw)); err != nil {
		return "", fmt.Errorf("eth_sendRawTransaction failed: %w", err)
	}
	if hash == "" {
		hash = signed.Hash().Hex()
	}

	c.log.Info("Transaction submitted",
		"step", kind,
		"tx", hash,
		"nonce", signed.Nonce(),
		"gas", signed.Gas(),
	)
	return hash, nil
}

func (c *Contract) pack(kind domain.StepKind, p domain.SubmitParams) (*big.Int, []byte, error) {
	switch kind {
	case domain.StepConvert:
		if p.Value == nil || p.Value.Sign() <= 0 {
			return nil, nil, fmt.Errorf("convert requires a positive value")
		}
		data, err := c.abi.Pack(MethodConvert)
		if err != nil {
			return nil, nil, fmt.Errorf("pack %s: %w", MethodConvert, err)
		}
		return new(big.Int).Set(p.Value), data, nil

	case domain.StepApprove, domain.StepTransfer:
		method := MethodApprove
		if kind == domain.StepTransfer {
			method = MethodTransfer
		}
		if !common.IsHexAddress(p.Spender) {
			return nil, nil, fmt.Errorf("%s: invalid bridge address %q", method, p.Spender)
		}
		if p.Amount == nil || p.Amount.Sign() <= 0 {
			return nil, nil, fmt.Errorf("%s requires a positive amount", method)
		}
		data, err := c.abi.Pack(method, common.HexToAddress(p.Spender), p.Amount)
		if err != nil {
			return nil, nil, fmt.Errorf("pack %s: %w", method, err)
		}
		return new(big.Int), data, nil
	}
	return nil, nil, fmt.Errorf("step %s is not a source chain call", kind)
}

func (c *Contract) buildTx(ctx context.Context, from common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	var nonce hexutil.Uint64
	if err := c.client.CallInto(ctx, &nonce, "eth_getTransactionCount", from.Hex(), "pending"); err != nil {
		return nil, fmt.Errorf("eth_getTransactionCount failed: %w", err)
	}

	to := c.cfg.Address
	msg := map[string]any{
		"from":  from.Hex(),
		"to":    to.Hex(),
		"data":  hexutil.Encode(data),
		"value": (*hexutil.Big)(value),
	}
	var estimate hexutil.Uint64
	if err := c.client.CallInto(ctx, &estimate, "eth_estimateGas", msg); err != nil {
		return nil, fmt.Errorf("eth_estimateGas failed: %w", err)
	}
	gas := uint64(estimate) * gasHeadroom / 100

	tip, baseFee := c.dynamicFees(ctx)
	if tip != nil && baseFee != nil {
		feeCap := new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip)
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   c.cfg.ChainID,
			Nonce:     uint64(nonce),
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        &to,
			Value:     value,
			Data:      data,
		}), nil
	}

	var gasPrice hexutil.Big
	if err := c.client.CallInto(ctx, &gasPrice, "eth_gasPrice"); err != nil {
		return nil, fmt.Errorf("eth_gasPrice failed: %w", err)
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    uint64(nonce),
		GasPrice: gasPrice.ToInt(),
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	}), nil
}

// dynamicFees returns nil values when the chain does not support EIP-1559.
func (c *Contract) dynamicFees(ctx context.Context) (*big.Int, *big.Int) {
	var tip hexutil.Big
	if err := c.client.CallInto(ctx, &tip, "eth_maxPriorityFeePerGas"); err != nil {
		c.log.Debug("eth_maxPriorityFeePerGas unavailable, using legacy pricing", "error", err)
		return nil, nil
	}

	var head struct {
		BaseFee *hexutil.Big `json:"baseFeePerGas"`
	}
	if err := c.client.CallInto(ctx, &head, "eth_getBlockByNumber", "latest", false); err != nil {
		c.log.Debug("latest block unavailable, using legacy pricing", "error", err)
		return nil, nil
	}
	if head.BaseFee == nil {
		return nil, nil
	}
	return tip.ToInt(), head.BaseFee.ToInt()
}

type rpcReceipt struct {
	TransactionHash string         `json:"transactionHash"`
	BlockNumber     hexutil.Uint64 `json:"blockNumber"`
	GasUsed         hexutil.Uint64 `json:"gasUsed"`
	// Status is absent on pre-Byzantium receipts, which carry a state root.
	Status *hexutil.Uint64 `json:"status"`
}

// AwaitConfirmation polls for the receipt of txHash until it has the
// configured number of confirmations, the transaction reverts, or ctx ends.
func (c *Contract) AwaitConfirmation(ctx context.Context, txHash string) (domain.Receipt, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		receipt, done, err := c.checkReceipt(ctx, txHash)
		switch {
		case errors.Is(err, ErrReverted):
			return receipt, err
		case err != nil:
			lastErr = err
			c.log.Warn("Receipt poll failed", "tx", txHash, "error", err)
		case done:
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

func (c *Contract) checkReceipt(ctx context.Context, txHash string) (domain.Receipt, bool, error) {
	var r *rpcReceipt
	if err := c.client.CallInto(ctx, &r, "eth_getTransactionReceipt", txHash); err != nil {
		return domain.Receipt{}, false, fmt.Errorf("eth_getTransactionReceipt failed: %w", err)
	}
	if r == nil {
		return domain.Receipt{}, false, nil
	}

	receipt := domain.Receipt{
		TxID:    txHash,
		Block:   uint64(r.BlockNumber),
		GasUsed: uint64(r.GasUsed),
		Status:  domain.TxStatusSuccess,
	}
	if r.Status != nil && *r.Status == 0 {
		receipt.Status = domain.TxStatusReverted
		return receipt, true, fmt.Errorf("%w in block %d", ErrReverted, receipt.Block)
	}
	if c.cfg.Confirmations <= 1 {
		return receipt, true, nil
	}

	var head hexutil.Uint64
	if err := c.client.CallInto(ctx, &head, "eth_blockNumber"); err != nil {
		return receipt, false, fmt.Errorf("eth_blockNumber failed: %w", err)
	}
	if uint64(head) < receipt.Block {
		return receipt, false, nil
	}
	return receipt, uint64(head)-receipt.Block+1 >= c.cfg.Confirmations, nil
}
