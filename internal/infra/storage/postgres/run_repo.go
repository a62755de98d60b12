package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/storage"
)

// Ensure RunRepo implements storage.RunRepository
var (
	_ storage.RunRepository = (*RunRepo)(nil)
	_ storage.RunPruner     = (*RunRepo)(nil)
)

// RunRepo implements storage.RunRepository using PostgreSQL.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new PostgreSQL run repository.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

type runRow struct {
	ID                 uuid.UUID    `db:"id"`
	SourceAmount       string       `db:"source_amount"`
	SourceAddress      string       `db:"source_address"`
	DestinationAddress string       `db:"destination_address"`
	StageLabel         string       `db:"stage_label"`
	OutcomeState       string       `db:"outcome_state"`
	OutcomeReason      string       `db:"outcome_reason"`
	FailedStep         string       `db:"failed_step"`
	Steps              []byte       `db:"steps"`
	StartedAt          time.Time    `db:"started_at"`
	FinishedAt         sql.NullTime `db:"finished_at"`
}

const runColumns = `id, source_amount, source_address, destination_address, stage_label,
	outcome_state, outcome_reason, failed_step, steps, started_at, finished_at`

func toRow(run domain.Run) (runRow, error) {
	steps, err := json.Marshal(run.Steps)
	if err != nil {
		return runRow{}, fmt.Errorf("failed to encode steps: %w", err)
	}
	row := runRow{
		ID:                 run.ID,
		SourceAmount:       run.SourceAmount,
		SourceAddress:      run.SourceAddress,
		DestinationAddress: run.DestinationAddress,
		StageLabel:         run.StageLabel,
		OutcomeState:       string(run.Outcome.State),
		OutcomeReason:      run.Outcome.Reason,
		FailedStep:         string(run.Outcome.FailedStep),
		Steps:              steps,
		StartedAt:          run.StartedAt,
	}
	if !run.FinishedAt.IsZero() {
		row.FinishedAt = sql.NullTime{Time: run.FinishedAt, Valid: true}
	}
	return row, nil
}

func (r runRow) toDomain() (domain.Run, error) {
	run := domain.Run{
		ID:                 r.ID,
		SourceAmount:       r.SourceAmount,
		SourceAddress:      r.SourceAddress,
		DestinationAddress: r.DestinationAddress,
		StageLabel:         r.StageLabel,
		Outcome: domain.Outcome{
			State:      domain.OutcomeState(r.OutcomeState),
			Reason:     r.OutcomeReason,
			FailedStep: domain.StepKind(r.FailedStep),
		},
		StartedAt: r.StartedAt,
	}
	if r.FinishedAt.Valid {
		run.FinishedAt = r.FinishedAt.Time
	}
	if err := json.Unmarshal(r.Steps, &run.Steps); err != nil {
		return domain.Run{}, fmt.Errorf("failed to decode steps of run %s: %w", r.ID, err)
	}
	return run, nil
}

// Save upserts the run snapshot.
func (r *RunRepo) Save(ctx context.Context, run domain.Run) error {
	row, err := toRow(run)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bridge_runs (` + runColumns + `, updated_at)
		VALUES (:id, :source_amount, :source_address, :destination_address, :stage_label,
			:outcome_state, :outcome_reason, :failed_step, :steps, :started_at, :finished_at, NOW())
		ON CONFLICT (id) DO UPDATE SET
			stage_label = EXCLUDED.stage_label,
			outcome_state = EXCLUDED.outcome_state,
			outcome_reason = EXCLUDED.outcome_reason,
			failed_step = EXCLUDED.failed_step,
			steps = EXCLUDED.steps,
			finished_at = EXCLUDED.finished_at,
			updated_at = NOW()
	`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (r *RunRepo) Get(ctx context.Context, id uuid.UUID) (domain.Run, error) {
	var row runRow
	query := `SELECT ` + runColumns + ` FROM bridge_runs WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Run{}, storage.ErrRunNotFound
		}
		return domain.Run{}, fmt.Errorf("failed to get run: %w", err)
	}
	return row.toDomain()
}

// List returns runs newest first.
func (r *RunRepo) List(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	var rows []runRow
	query := `SELECT ` + runColumns + ` FROM bridge_runs ORDER BY started_at DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]domain.Run, 0, len(rows))
	for _, row := range rows {
		run, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// DeleteFinishedBefore removes finished runs older than cutoff.
func (r *RunRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM bridge_runs WHERE finished_at IS NOT NULL AND finished_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}
