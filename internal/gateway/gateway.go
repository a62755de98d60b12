// Package gateway routes bridge steps to the chain that executes them and
// maps chain failures onto the bridge error taxonomy.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	logger "log/slog"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/chain"
)

const DefaultConfirmationTimeout = 3 * time.Minute

type Gateway struct {
	source  chain.SourceContract
	dest    chain.DestinationExecutor
	timeout time.Duration
	log     *logger.Logger
}

type Option func(*Gateway)

// WithConfirmationTimeout bounds every AwaitConfirmation call.
func WithConfirmationTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.log = l
		}
	}
}

func New(source chain.SourceContract, dest chain.DestinationExecutor, opts ...Option) *Gateway {
	g := &Gateway{
		source:  source,
		dest:    dest,
		timeout: DefaultConfirmationTimeout,
		log:     logger.Default().With("component", "gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Submit sends the transaction for kind exactly once. Any error means the
// transaction did not reach the chain.
func (g *Gateway) Submit(ctx context.Context, kind domain.StepKind, p domain.SubmitParams) (domain.Handle, error) {
	if !kind.Valid() {
		return domain.Handle{}, domain.NewSubmissionError(kind, fmt.Errorf("unknown step %q", kind))
	}

	var (
		txID string
		err  error
	)
	switch kind.Chain() {
	case domain.ChainSource:
		if g.source == nil {
			return domain.Handle{}, domain.NewSubmissionError(kind, errors.New("source chain not configured"))
		}
		txID, err = g.source.Submit(ctx, kind, p)
	case domain.ChainDestination:
		if g.dest == nil {
			return domain.Handle{}, domain.NewSubmissionError(kind, errors.New("destination chain not configured"))
		}
		if p.Call == nil {
			return domain.Handle{}, domain.NewSubmissionError(kind, errors.New("missing move call"))
		}
		txID, err = g.dest.Execute(ctx, p.Call)
	}
	if err != nil {
		g.log.Warn("Submission failed", "step", kind, "error", err)
		return domain.Handle{}, domain.NewSubmissionError(kind, err)
	}

	return domain.Handle{Kind: kind, Chain: kind.Chain(), TxID: txID}, nil
}

// AwaitConfirmation waits for the finalized result of h, bounded by the
// confirmation timeout. Any error leaves the on-chain effect indeterminate.
func (g *Gateway) AwaitConfirmation(ctx context.Context, h domain.Handle) (domain.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var (
		receipt domain.Receipt
		err     error
	)
	switch h.Chain {
	case domain.ChainSource:
		if g.source == nil {
			return receipt, domain.NewConfirmationError(h.Kind, errors.New("source chain not configured"))
		}
		receipt, err = g.source.AwaitConfirmation(ctx, h.TxID)
	case domain.ChainDestination:
		if g.dest == nil {
			return receipt, domain.NewConfirmationError(h.Kind, errors.New("destination chain not configured"))
		}
		receipt, err = g.dest.AwaitConfirmation(ctx, h.TxID)
	default:
		return receipt, domain.NewConfirmationError(h.Kind, fmt.Errorf("unknown chain %q", h.Chain))
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("not confirmed within %s: %w", g.timeout, err)
		}
		g.log.Warn("Confirmation failed", "step", h.Kind, "tx", h.TxID, "error", err)
		return receipt, domain.NewConfirmationError(h.Kind, err)
	}
	return receipt, nil
}
