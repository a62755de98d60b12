package gateway

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/vietddude/bridge/internal/core/domain"
)

type mockSource struct {
	submitted []domain.StepKind
	submitErr error
	await     func(ctx context.Context) (domain.Receipt, error)
}

func (m *mockSource) Submit(ctx context.Context, kind domain.StepKind, p domain.SubmitParams) (string, error) {
	if m.submitErr != nil {
		return "", m.submitErr
	}
	m.submitted = append(m.submitted, kind)
	return "0xsource", nil
}

func (m *mockSource) AwaitConfirmation(ctx context.Context, txHash string) (domain.Receipt, error) {
	if m.await != nil {
		return m.await(ctx)
	}
	return domain.Receipt{TxID: txHash, Status: domain.TxStatusSuccess}, nil
}

type mockDest struct {
	calls []*domain.MoveCall
	err   error
}

func (m *mockDest) Execute(ctx context.Context, call *domain.MoveCall) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.calls = append(m.calls, call)
	return "Dig3st", nil
}

func (m *mockDest) AwaitConfirmation(ctx context.Context, digest string) (domain.Receipt, error) {
	return domain.Receipt{TxID: digest, Status: domain.TxStatusSuccess}, nil
}

func TestGateway_SubmitRoutesByChain(t *testing.T) {
	src, dst := &mockSource{}, &mockDest{}
	g := New(src, dst)

	h, err := g.Submit(context.Background(), domain.StepApprove, domain.SubmitParams{Amount: big.NewInt(1)})
	if err != nil {
		t.Fatalf("Submit approve: %v", err)
	}
	if h.Chain != domain.ChainSource || h.TxID != "0xsource" || h.Kind != domain.StepApprove {
		t.Errorf("unexpected handle %+v", h)
	}

	call, _ := domain.NewMoveCall("0x1", "m", "f", nil, nil)
	h, err = g.Submit(context.Background(), domain.StepMint, domain.SubmitParams{Call: call})
	if err != nil {
		t.Fatalf("Submit mint: %v", err)
	}
	if h.Chain != domain.ChainDestination || h.TxID != "Dig3st" {
		t.Errorf("unexpected handle %+v", h)
	}
	if len(src.submitted) != 1 || len(dst.calls) != 1 {
		t.Errorf("source=%d dest=%d submissions", len(src.submitted), len(dst.calls))
	}
}

func TestGateway_SubmitErrors(t *testing.T) {
	g := New(&mockSource{submitErr: errors.New("insufficient funds")}, &mockDest{})

	_, err := g.Submit(context.Background(), domain.StepConvert, domain.SubmitParams{})
	if !errors.Is(err, domain.ErrSubmission) {
		t.Fatalf("expected submission error, got %v", err)
	}
	var be *domain.BridgeError
	if !errors.As(err, &be) || be.Step != domain.StepConvert {
		t.Errorf("expected step on error, got %v", err)
	}

	if _, err := g.Submit(context.Background(), domain.StepMint, domain.SubmitParams{}); !errors.Is(err, domain.ErrSubmission) {
		t.Errorf("expected submission error for missing call, got %v", err)
	}
	if _, err := g.Submit(context.Background(), "bogus", domain.SubmitParams{}); !errors.Is(err, domain.ErrSubmission) {
		t.Errorf("expected submission error for unknown step, got %v", err)
	}
}

func TestGateway_AwaitConfirmation(t *testing.T) {
	src := &mockSource{await: func(ctx context.Context) (domain.Receipt, error) {
		return domain.Receipt{Status: domain.TxStatusReverted}, errors.New("transaction reverted")
	}}
	g := New(src, &mockDest{})

	_, err := g.AwaitConfirmation(context.Background(), domain.Handle{Kind: domain.StepTransfer, Chain: domain.ChainSource, TxID: "0x1"})
	if !errors.Is(err, domain.ErrConfirmation) {
		t.Fatalf("expected confirmation error, got %v", err)
	}

	receipt, err := g.AwaitConfirmation(context.Background(), domain.Handle{Kind: domain.StepMint, Chain: domain.ChainDestination, TxID: "Dig3st"})
	if err != nil || receipt.TxID != "Dig3st" {
		t.Errorf("receipt=%+v err=%v", receipt, err)
	}
}

func TestGateway_AwaitConfirmationTimeout(t *testing.T) {
	src := &mockSource{await: func(ctx context.Context) (domain.Receipt, error) {
		<-ctx.Done()
		return domain.Receipt{}, ctx.Err()
	}}
	g := New(src, nil, WithConfirmationTimeout(10*time.Millisecond))

	start := time.Now()
	_, err := g.AwaitConfirmation(context.Background(), domain.Handle{Kind: domain.StepConvert, Chain: domain.ChainSource, TxID: "0x1"})
	if !errors.Is(err, domain.ErrConfirmation) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected confirmation timeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("timeout was not applied")
	}
}
