package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/storage"
)

// Ensure RunRepo implements storage.RunRepository
var _ storage.RunRepository = (*RunRepo)(nil)

// RunRepo implements storage.RunRepository using Redis. Snapshots are JSON
// values indexed by a sorted set scored by start time.
type RunRepo struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRunRepo creates a new Redis-backed run repository.
func NewRunRepo(client *Client, prefix string, ttl time.Duration) *RunRepo {
	if prefix == "" {
		prefix = "bridge"
	}
	return &RunRepo{
		rdb:    client.rdb,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Key helpers
func (r *RunRepo) indexKey() string {
	return fmt.Sprintf("%s:runs", r.prefix)
}

func (r *RunRepo) runKey(id string) string {
	return fmt.Sprintf("%s:run:%s", r.prefix, id)
}

// Save stores the snapshot and indexes it.
func (r *RunRepo) Save(ctx context.Context, run domain.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	id := run.ID.String()
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, r.runKey(id), data, r.ttl)
	pipe.ZAdd(ctx, r.indexKey(), redis.Z{
		Score:  float64(run.StartedAt.UnixMilli()),
		Member: id,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (r *RunRepo) Get(ctx context.Context, id uuid.UUID) (domain.Run, error) {
	data, err := r.rdb.Get(ctx, r.runKey(id.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Run{}, storage.ErrRunNotFound
	}
	if err != nil {
		return domain.Run{}, fmt.Errorf("get failed: %w", err)
	}

	var run domain.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return domain.Run{}, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return run, nil
}

// List returns runs newest first. Index entries whose snapshot expired are
// dropped from the index.
func (r *RunRepo) List(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	ids, err := r.rdb.ZRevRange(ctx, r.indexKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.runKey(id)
	}
	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget failed: %w", err)
	}

	runs := make([]domain.Run, 0, len(values))
	var expired []any
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var run domain.Run
		if err := json.Unmarshal([]byte(s), &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run %s: %w", ids[i], err)
		}
		runs = append(runs, run)
	}

	if len(expired) > 0 {
		r.rdb.ZRem(ctx, r.indexKey(), expired...)
	}
	return runs, nil
}
