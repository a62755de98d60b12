package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/bridge/internal/infra/storage"
	"github.com/vietddude/bridge/internal/metrics"
)

// Pruner deletes finished runs based on retention policy.
type Pruner struct {
	repo      storage.RunPruner
	retention time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// NewPruner creates a new Pruner worker.
func NewPruner(repo storage.RunPruner, retention time.Duration) *Pruner {
	return &Pruner{
		repo:      repo,
		retention: retention,
		now:       time.Now,
		log:       slog.Default().With("component", "pruner"),
	}
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check at 10% of the retention period, between a minute and an hour.
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) int64 {
	cutoff := p.now().Add(-p.retention)

	n, err := p.repo.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		p.log.Error("Failed to prune runs", "cutoff", cutoff, "error", err)
		return 0
	}
	if n > 0 {
		metrics.JournalPrunedTotal.Add(float64(n))
		p.log.Info("Pruned finished runs", "count", n, "cutoff", cutoff)
	}
	return n
}
