package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/bridge/internal/core/domain"
)

var (
	// ErrRunNotFound is returned when a run doesn't exist
	ErrRunNotFound = errors.New("run not found")
)

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// RunRepository journals run snapshots. Save is an upsert keyed by run ID so
// the latest snapshot always wins.
type RunRepository interface {
	// Save stores the snapshot of a run
	Save(ctx context.Context, run domain.Run) error

	// Get retrieves a run by ID
	Get(ctx context.Context, id uuid.UUID) (domain.Run, error)

	// List returns the most recently started runs first
	List(ctx context.Context, limit int) ([]domain.Run, error)
}

// RunPruner removes finished runs. Backends with native expiry don't need it.
type RunPruner interface {
	// DeleteFinishedBefore deletes runs that finished before the cutoff and
	// returns how many were removed. Runs still in progress are kept.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
