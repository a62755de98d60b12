// Package bridge sequences the four on-chain steps that move value from the
// source chain to the destination chain.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	logger "log/slog"

	"github.com/vietddude/bridge/internal/core/amount"
	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/metrics"
)

var errCancelRequested = errors.New("cancel requested")

// Gateway submits step transactions and waits for their receipts.
type Gateway interface {
	Submit(ctx context.Context, kind domain.StepKind, p domain.SubmitParams) (domain.Handle, error)
	AwaitConfirmation(ctx context.Context, h domain.Handle) (domain.Receipt, error)
}

// AccountSource is a synchronous read of the connected account on one chain.
type AccountSource interface {
	Current() (domain.Account, bool)
}

// Orchestrator runs at most one bridge run at a time. The active run is only
// mutated by the goroutine executing it; everyone else reads snapshots.
type Orchestrator struct {
	gw       Gateway
	src, dst AccountSource

	rate          int64
	decimals      int32
	bridgeAddress string
	mint          mintTarget
	observers     []Observer
	log           *logger.Logger
	now           func() time.Time

	mu   sync.Mutex
	run  domain.Run
	stop chan struct{}
}

func New(gw Gateway, src, dst AccountSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{gw: gw, src: src, dst: dst}
	defaults(o)
	for _, opt := range opts {
		opt(o)
	}
	o.run = idleRun()
	return o
}

func idleRun() domain.Run {
	r := domain.Run{Outcome: domain.Outcome{State: domain.OutcomeNotStarted}}
	for i, k := range domain.StepOrder {
		r.Steps[i] = domain.Step{Kind: k, Status: domain.StepPending}
	}
	return r
}

// plan is everything a run needs, resolved before the first submission.
type plan struct {
	source      domain.Account
	destination domain.Account
	native      *big.Int
	bridged     *big.Int
	mintCall    *domain.MoveCall
}

// Execute runs req to completion or first failure and returns the final
// snapshot. It returns ErrBusy without side effects while another run is in
// progress.
func (o *Orchestrator) Execute(ctx context.Context, req domain.Request) (domain.Run, error) {
	p, stop, snap, err := o.begin(req)
	if err != nil {
		return snap, err
	}
	return o.drive(ctx, p, stop)
}

// Start validates req and claims the orchestrator like Execute, then runs the
// steps in the background. It returns the in-progress snapshot; progress is
// read through Snapshot or observers.
func (o *Orchestrator) Start(ctx context.Context, req domain.Request) (domain.Run, error) {
	p, stop, snap, err := o.begin(req)
	if err != nil {
		return snap, err
	}
	go func() {
		_, _ = o.drive(ctx, p, stop)
	}()
	return snap, nil
}

// begin performs the busy and precondition checks and, when both pass,
// installs a new in-progress run. Preconditions are evaluated outside the
// lock so status reads never wait on them.
func (o *Orchestrator) begin(req domain.Request) (*plan, chan struct{}, domain.Run, error) {
	if o.Busy() {
		return nil, nil, domain.Run{}, domain.ErrBusy
	}

	p, err := o.prepare(&req)

	o.mu.Lock()
	// Another run may have started while preconditions were checked.
	if o.run.InProgress() {
		o.mu.Unlock()
		return nil, nil, domain.Run{}, domain.ErrBusy
	}

	if err != nil {
		run := domain.NewRun(req)
		now := o.now()
		run.StartedAt, run.FinishedAt = now, now
		run.Outcome = domain.Outcome{State: domain.OutcomeFailed, Reason: domain.ReasonMissingPrecondition}
		o.run = run
		snap := run.Clone()
		o.mu.Unlock()

		perr := domain.NewPreconditionError(err)
		o.log.Warn("Bridge request rejected", "run", run.ID, "error", err)
		metrics.RunsTotal.WithLabelValues(string(domain.OutcomeFailed)).Inc()
		metrics.StepFailures.WithLabelValues("none", domain.ErrorKind(perr)).Inc()
		o.publish(snap)
		return nil, nil, snap, perr
	}

	run := domain.NewRun(req)
	run.StartedAt = o.now()
	run.Outcome = domain.Outcome{State: domain.OutcomeInProgress}
	o.run = run
	stop := make(chan struct{})
	o.stop = stop
	snap := run.Clone()
	o.mu.Unlock()

	metrics.RunInProgress.Set(1)
	o.log.Info("Bridge run started",
		"run", run.ID,
		"amount", req.SourceAmount,
		"source", p.source.Address,
		"destination", p.destination.Address,
	)
	o.publish(snap)
	return p, stop, snap, nil
}

// drive executes the steps of the active run in order.
func (o *Orchestrator) drive(ctx context.Context, p *plan, stop <-chan struct{}) (domain.Run, error) {
	for _, kind := range domain.StepOrder {
		if err := o.runStep(ctx, stop, kind, p); err != nil {
			return o.fail(kind, err), err
		}
	}

	final := o.complete(func(r *domain.Run) {
		r.StageLabel = ""
		r.Outcome = domain.Outcome{State: domain.OutcomeSucceeded}
		r.FinishedAt = o.now()
	})

	metrics.RunsTotal.WithLabelValues(string(domain.OutcomeSucceeded)).Inc()
	o.log.Info("Bridge run succeeded", "run", final.ID, "duration", final.FinishedAt.Sub(final.StartedAt))
	return final, nil
}

// prepare checks preconditions without touching any chain. Accounts missing
// from req are taken from the connected wallets.
func (o *Orchestrator) prepare(req *domain.Request) (*plan, error) {
	var errs []error

	if req.Source.IsZero() && o.src != nil {
		if acc, ok := o.src.Current(); ok {
			req.Source = acc
		}
	}
	if req.Destination.IsZero() && o.dst != nil {
		if acc, ok := o.dst.Current(); ok {
			req.Destination = acc
		}
	}
	if req.Source.IsZero() {
		errs = append(errs, errors.New("source account not connected"))
	}
	if req.Destination.IsZero() {
		errs = append(errs, errors.New("destination account not connected"))
	}
	if o.bridgeAddress == "" {
		errs = append(errs, errors.New("bridge address not configured"))
	}

	native, err := amount.ParseNative(req.SourceAmount, o.decimals)
	if err != nil {
		errs = append(errs, fmt.Errorf("amount %q: %w", req.SourceAmount, err))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	bridged, err := amount.ToBridgeToken(native, o.rate)
	if err != nil {
		return nil, err
	}

	typeTag := domain.TypeTag(o.mint.packageID, o.mint.module, o.mint.tokenType)
	call, err := domain.NewMoveCall(o.mint.packageID, o.mint.module, o.mint.function,
		[]string{typeTag},
		[]string{typeTag, bridged.String(), req.Destination.Address},
	)
	if err != nil {
		return nil, fmt.Errorf("mint call: %w", err)
	}

	return &plan{
		source:      req.Source,
		destination: req.Destination,
		native:      native,
		bridged:     bridged,
		mintCall:    call,
	}, nil
}

func (o *Orchestrator) params(kind domain.StepKind, p *plan) (domain.SubmitParams, *big.Int) {
	switch kind {
	case domain.StepConvert:
		return domain.SubmitParams{From: p.source.Address, Value: p.native}, p.native
	case domain.StepApprove, domain.StepTransfer:
		return domain.SubmitParams{From: p.source.Address, Spender: o.bridgeAddress, Amount: p.bridged}, p.bridged
	default:
		return domain.SubmitParams{From: p.destination.Address, Call: p.mintCall}, p.bridged
	}
}

// runStep submits one step and waits for its confirmation. The stage label
// is published before the submission.
func (o *Orchestrator) runStep(ctx context.Context, stop <-chan struct{}, kind domain.StepKind, p *plan) error {
	if err := ctx.Err(); err != nil {
		return domain.NewCancelledError(kind, err)
	}
	select {
	case <-stop:
		return domain.NewCancelledError(kind, errCancelRequested)
	default:
	}

	params, stepAmount := o.params(kind, p)
	o.update(func(r *domain.Run) {
		r.StageLabel = kind.Label()
		r.Step(kind).Amount = new(big.Int).Set(stepAmount)
	})
	log := o.log.With("step", kind)
	log.Info(kind.Label())

	h, err := o.gw.Submit(ctx, kind, params)
	if err != nil {
		return err
	}

	submittedAt := o.now()
	o.update(func(r *domain.Run) {
		s := r.Step(kind)
		s.Status = domain.StepSubmitted
		s.TxID = h.TxID
		s.SubmittedAt = &submittedAt
	})
	log.Info("Step submitted", "tx", h.TxID)

	receipt, err := o.gw.AwaitConfirmation(ctx, h)
	if err != nil {
		return err
	}

	confirmedAt := o.now()
	o.update(func(r *domain.Run) {
		s := r.Step(kind)
		s.Status = domain.StepConfirmed
		s.ConfirmedAt = &confirmedAt
	})
	metrics.StepDuration.WithLabelValues(string(kind)).Observe(confirmedAt.Sub(submittedAt).Seconds())
	log.Info("Step confirmed", "tx", h.TxID, "block", receipt.Block)
	return nil
}

func (o *Orchestrator) fail(kind domain.StepKind, err error) domain.Run {
	reason := err.Error()
	var be *domain.BridgeError
	if errors.As(err, &be) {
		reason = be.Reason()
	}

	final := o.complete(func(r *domain.Run) {
		s := r.Step(kind)
		s.Status = domain.StepFailed
		s.Error = reason
		r.StageLabel = ""
		r.Outcome = domain.Outcome{State: domain.OutcomeFailed, Reason: reason, FailedStep: kind}
		r.FinishedAt = o.now()
	})

	metrics.RunsTotal.WithLabelValues(string(domain.OutcomeFailed)).Inc()
	metrics.StepFailures.WithLabelValues(string(kind), domain.ErrorKind(err)).Inc()
	o.log.Error("Bridge run failed", "run", final.ID, "step", kind, "error", err)
	return final
}

// update applies fn to the active run and publishes the result.
func (o *Orchestrator) update(fn func(r *domain.Run)) domain.Run {
	o.mu.Lock()
	fn(&o.run)
	snap := o.run.Clone()
	o.mu.Unlock()

	o.publish(snap)
	return snap
}

// complete applies the terminal transition fn and releases the orchestrator
// in the same critical section.
func (o *Orchestrator) complete(fn func(r *domain.Run)) domain.Run {
	o.mu.Lock()
	fn(&o.run)
	o.stop = nil
	metrics.RunInProgress.Set(0)
	snap := o.run.Clone()
	o.mu.Unlock()

	o.publish(snap)
	return snap
}

func (o *Orchestrator) publish(r domain.Run) {
	for _, obs := range o.observers {
		obs.Observe(r.Clone())
	}
}

// Snapshot returns a copy of the current run.
func (o *Orchestrator) Snapshot() domain.Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run.Clone()
}

// Busy reports whether a run is in progress.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run.InProgress()
}

// Cancel stops the active run before its next submission. A step already
// submitted is still awaited. It reports whether a run was active.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stop == nil {
		return false
	}
	select {
	case <-o.stop:
	default:
		close(o.stop)
	}
	return true
}

// Reset returns a finished run to the not-started state.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	if o.run.InProgress() {
		o.mu.Unlock()
		return domain.ErrBusy
	}
	o.run = idleRun()
	snap := o.run.Clone()
	o.mu.Unlock()

	o.publish(snap)
	return nil
}
