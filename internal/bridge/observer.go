package bridge

import (
	"context"
	"sync"
	"time"

	logger "log/slog"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/storage"
	"github.com/vietddude/bridge/internal/metrics"
)

// Observer receives a snapshot after every run transition. Snapshots are
// copies; observers cannot influence the run.
type Observer interface {
	Observe(run domain.Run)
}

type ObserverFunc func(run domain.Run)

func (f ObserverFunc) Observe(run domain.Run) {
	f(run)
}

// JournalObserver persists every snapshot of a started run.
type JournalObserver struct {
	repo    storage.RunRepository
	timeout time.Duration
	log     *logger.Logger
}

func NewJournalObserver(repo storage.RunRepository) *JournalObserver {
	return &JournalObserver{
		repo:    repo,
		timeout: 5 * time.Second,
		log:     logger.Default().With("component", "journal"),
	}
}

func (j *JournalObserver) Observe(run domain.Run) {
	if run.Outcome.State == domain.OutcomeNotStarted {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.repo.Save(ctx, run); err != nil {
		metrics.JournalErrorsTotal.Inc()
		j.log.Error("Failed to journal run", "run", run.ID, "state", run.Outcome.State, "error", err)
	}
}

// LogObserver logs stage label and outcome changes.
type LogObserver struct {
	log *logger.Logger

	mu      sync.Mutex
	label   string
	outcome domain.OutcomeState
}

func NewLogObserver(l *logger.Logger) *LogObserver {
	if l == nil {
		l = logger.Default()
	}
	return &LogObserver{log: l}
}

func (o *LogObserver) Observe(run domain.Run) {
	o.mu.Lock()
	labelChanged := run.StageLabel != o.label
	outcomeChanged := run.Outcome.State != o.outcome
	o.label = run.StageLabel
	o.outcome = run.Outcome.State
	o.mu.Unlock()

	if labelChanged && run.StageLabel != "" {
		o.log.Info(run.StageLabel, "run", run.ID)
	}
	if !outcomeChanged || !run.Outcome.Terminal() {
		return
	}
	switch run.Outcome.State {
	case domain.OutcomeSucceeded:
		o.log.Info("Bridge complete", "run", run.ID)
	case domain.OutcomeFailed:
		args := []any{"run", run.ID, "reason", run.Outcome.Reason}
		if run.Outcome.FailedStep != "" {
			args = append(args, "step", run.Outcome.FailedStep)
		}
		o.log.Error("Bridge failed", args...)
	}
}
