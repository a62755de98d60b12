package chain

import (
	"context"

	"github.com/vietddude/bridge/internal/core/domain"
)

// SourceContract is the source-chain execution boundary: the bridge token
// contract reached through the connected EVM account.
type SourceContract interface {
	// Submit signs and broadcasts the call for a source step and returns
	// the transaction hash. It never retries a broadcast.
	Submit(ctx context.Context, kind domain.StepKind, params domain.SubmitParams) (string, error)

	// AwaitConfirmation blocks until the transaction is mined with enough
	// confirmations, reverts, or ctx ends.
	AwaitConfirmation(ctx context.Context, txHash string) (domain.Receipt, error)
}

// DestinationExecutor is the destination-chain execution boundary.
type DestinationExecutor interface {
	// Execute builds, signs and submits a Move call and returns its digest.
	Execute(ctx context.Context, call *domain.MoveCall) (string, error)

	// AwaitConfirmation blocks until the transaction has effects or ctx ends.
	AwaitConfirmation(ctx context.Context, digest string) (domain.Receipt, error)
}

// AccountConnector is implemented by wallets that can hand out accounts.
type AccountConnector interface {
	RequestAccounts(ctx context.Context) ([]string, error)
}
