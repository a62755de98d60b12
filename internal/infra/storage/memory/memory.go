package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/storage"
)

type MemoryStorage struct {
	runs map[uuid.UUID]domain.Run
	mu   sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		runs: make(map[uuid.UUID]domain.Run),
	}
}

// Ensure RunRepo implements storage.RunRepository
var (
	_ storage.RunRepository = (*RunRepo)(nil)
	_ storage.RunPruner     = (*RunRepo)(nil)
)

type RunRepo struct {
	store *MemoryStorage
}

func NewRunRepo(store *MemoryStorage) *RunRepo {
	return &RunRepo{store: store}
}

func (r *RunRepo) Save(ctx context.Context, run domain.Run) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.runs[run.ID] = run.Clone()
	return nil
}

func (r *RunRepo) Get(ctx context.Context, id uuid.UUID) (domain.Run, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	run, ok := r.store.runs[id]
	if !ok {
		return domain.Run{}, storage.ErrRunNotFound
	}
	return run.Clone(), nil
}

func (r *RunRepo) List(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	r.store.mu.RLock()
	out := make([]domain.Run, 0, len(r.store.runs))
	for _, run := range r.store.runs {
		out = append(out, run.Clone())
	}
	r.store.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *RunRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var n int64
	for id, run := range r.store.runs {
		if run.FinishedAt.IsZero() || !run.FinishedAt.Before(cutoff) {
			continue
		}
		delete(r.store.runs, id)
		n++
	}
	return n, nil
}
