package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/storage/memory"
)

func finishedRun(finished time.Time) domain.Run {
	r := domain.NewRun(domain.Request{SourceAmount: "1"})
	r.StartedAt = finished.Add(-time.Minute)
	r.FinishedAt = finished
	r.Outcome = domain.Outcome{State: domain.OutcomeSucceeded}
	return r
}

func TestPruner_DeletesOnlyExpiredFinishedRuns(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	repo := memory.NewRunRepo(memory.NewMemoryStorage())

	old := finishedRun(now.Add(-48 * time.Hour))
	recent := finishedRun(now.Add(-time.Hour))
	active := domain.NewRun(domain.Request{SourceAmount: "1"})
	active.StartedAt = now.Add(-72 * time.Hour)
	active.Outcome = domain.Outcome{State: domain.OutcomeInProgress}

	for _, r := range []domain.Run{old, recent, active} {
		if err := repo.Save(ctx, r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	p := NewPruner(repo, 24*time.Hour)
	p.now = func() time.Time { return now }

	if n := p.prune(ctx); n != 1 {
		t.Fatalf("pruned %d runs, want 1", n)
	}
	if _, err := repo.Get(ctx, old.ID); err == nil {
		t.Error("expired run still present")
	}
	for _, keep := range []domain.Run{recent, active} {
		if _, err := repo.Get(ctx, keep.ID); err != nil {
			t.Errorf("run %s should be kept: %v", keep.ID, err)
		}
	}
}

type failingPruner struct{}

func (failingPruner) DeleteFinishedBefore(context.Context, time.Time) (int64, error) {
	return 0, errors.New("db down")
}

func TestPruner_ErrorIsNotFatal(t *testing.T) {
	p := NewPruner(failingPruner{}, time.Hour)
	if n := p.prune(context.Background()); n != 0 {
		t.Errorf("pruned %d, want 0", n)
	}
}

func TestPruner_DisabledReturnsImmediately(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewPruner(failingPruner{}, 0).Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return with retention disabled")
	}
}
